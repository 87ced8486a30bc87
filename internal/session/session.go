// Package session holds ephemeral per-session state: auth token, backend
// settings and the most recent successfully fetched graph. Nothing here is
// persisted; sessions live in memory and die with the process or after the
// idle TTL.
package session

import (
	"sync"
	"time"

	"usergraph-portal/internal/domain"
	"usergraph-portal/internal/gateway"
)

// Session is one user's ephemeral state. All access goes through the
// accessor methods; the zero value is not usable, sessions come from the
// Store.
type Session struct {
	id string

	mu        sync.RWMutex
	token     string
	fallback  bool
	settings  gateway.Settings
	lastGraph *domain.GraphResult
	lastSeen  time.Time
}

// ID returns the opaque session identifier carried by the cookie.
func (s *Session) ID() string {
	return s.id
}

// Authenticated reports whether a login (real or fallback) has happened.
func (s *Session) Authenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token != ""
}

// SetAuth transitions the session to authenticated state. There is no
// transition back: logout is a UI concern, not part of this core.
func (s *Session) SetAuth(result gateway.AuthResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = result.Token
	s.fallback = result.Fallback
}

// Auth returns the current token and whether it is a fallback token.
func (s *Session) Auth() (token string, fallback bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token, s.fallback
}

// Settings returns the session's backend settings.
func (s *Session) Settings() gateway.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// UpdateSettings applies live edits from the settings panel. Empty fields
// leave the current value untouched.
func (s *Session) UpdateSettings(baseURL, apiKey string) gateway.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	if baseURL != "" {
		s.settings.BaseURL = baseURL
	}
	if apiKey != "" {
		s.settings.APIKey = apiKey
	}
	return s.settings
}

// SetGraph stores the most recent successfully fetched graph. Failed
// resubmissions never reach this method, so the prior graph survives them.
func (s *Session) SetGraph(result domain.GraphResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastGraph = &result
}

// Graph returns the last fetched graph, or false when none exists yet.
func (s *Session) Graph() (domain.GraphResult, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.lastGraph == nil {
		return domain.GraphResult{}, false
	}
	return *s.lastGraph, true
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince(now time.Time) time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return now.Sub(s.lastSeen)
}
