// Package cache provides a small in-memory key→(value, expiry) store used
// for graph response caching. Entries expire by time only and are never
// invalidated early.
package cache

import (
	"sync"
	"time"
)

// Store is a TTL-bounded in-memory cache.
type Store struct {
	items    map[string]item
	maxItems int
	ttl      time.Duration
	mu       sync.RWMutex

	// now is replaceable in tests.
	now func() time.Time
}

type item struct {
	value     interface{}
	expiresAt time.Time
}

// New creates a store with the given capacity and default TTL.
func New(maxItems int, defaultTTL time.Duration) *Store {
	return &Store{
		items:    make(map[string]item),
		maxItems: maxItems,
		ttl:      defaultTTL,
		now:      time.Now,
	}
}

// Get returns the cached value for key, or false when the key is absent
// or expired.
func (s *Store) Get(key string) (interface{}, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	it, exists := s.items[key]
	if !exists {
		return nil, false
	}
	if s.now().After(it.expiresAt) {
		return nil, false
	}
	return it.value, true
}

// Set stores value under key with the default TTL.
func (s *Store) Set(key string, value interface{}) {
	s.SetWithTTL(key, value, s.ttl)
}

// SetWithTTL stores value under key with an explicit TTL.
func (s *Store) SetWithTTL(key string, value interface{}, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ttl <= 0 {
		ttl = s.ttl
	}
	if len(s.items) >= s.maxItems {
		s.evictOldest()
	}
	s.items[key] = item{
		value:     value,
		expiresAt: s.now().Add(ttl),
	}
}

// Len returns the number of entries, expired ones included until a sweep.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// evictOldest drops the entry closest to expiry. Called with the lock held.
func (s *Store) evictOldest() {
	var oldestKey string
	var oldestTime time.Time

	for key, it := range s.items {
		if oldestTime.IsZero() || it.expiresAt.Before(oldestTime) {
			oldestKey = key
			oldestTime = it.expiresAt
		}
	}
	if oldestKey != "" {
		delete(s.items, oldestKey)
	}
}

// Sweep removes expired entries. Run it periodically from a goroutine owned
// by the caller so shutdown stays in one place.
func (s *Store) Sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for key, it := range s.items {
		if now.After(it.expiresAt) {
			delete(s.items, key)
		}
	}
}
