package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"usergraph-portal/internal/gateway"
)

// Store is the in-memory session registry. New sessions start with the
// configured backend defaults; each session can override them live.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	defaults gateway.Settings
	idleTTL  time.Duration
	now      func() time.Time
}

// NewStore creates a store seeding new sessions with the given backend
// defaults.
func NewStore(defaults gateway.Settings, idleTTL time.Duration) *Store {
	return &Store{
		sessions: make(map[string]*Session),
		defaults: defaults,
		idleTTL:  idleTTL,
		now:      time.Now,
	}
}

// Create starts a fresh unauthenticated session.
func (st *Store) Create() *Session {
	s := &Session{
		id:       uuid.NewString(),
		settings: st.defaults,
		lastSeen: st.now(),
	}

	st.mu.Lock()
	st.sessions[s.id] = s
	st.mu.Unlock()
	return s
}

// Lookup returns the session for id and refreshes its idle timer.
func (st *Store) Lookup(id string) (*Session, bool) {
	st.mu.RLock()
	s, ok := st.sessions[id]
	st.mu.RUnlock()
	if !ok {
		return nil, false
	}
	s.touch(st.now())
	return s, true
}

// GetOrCreate resolves id to an existing session or starts a new one when
// the id is unknown or empty.
func (st *Store) GetOrCreate(id string) *Session {
	if id != "" {
		if s, ok := st.Lookup(id); ok {
			return s
		}
	}
	return st.Create()
}

// SetDefaults replaces the seed settings used for future sessions, for
// config hot reload. Existing sessions keep their current settings.
func (st *Store) SetDefaults(defaults gateway.Settings) {
	st.mu.Lock()
	st.defaults = defaults
	st.mu.Unlock()
}

// Len returns the number of live sessions.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// Sweep drops sessions idle past the TTL so the map cannot grow without
// bound. Called periodically from the server's housekeeping goroutine.
func (st *Store) Sweep() {
	now := st.now()

	st.mu.Lock()
	defer st.mu.Unlock()
	for id, s := range st.sessions {
		if s.idleSince(now) > st.idleTTL {
			delete(st.sessions, id)
		}
	}
}
