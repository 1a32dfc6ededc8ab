package auth

import (
	"sync"
	"time"
)

// TokenRevocationStore tracks session tokens invalidated by sign-out.
// Revoked token ids are kept until the token would have expired anyway,
// then dropped by a background cleanup loop. Thread-safe.
type TokenRevocationStore struct {
	mu      sync.RWMutex
	entries map[string]time.Time // token id -> natural expiry
	done    chan struct{}
}

// NewTokenRevocationStore creates a store and starts a background goroutine
// that cleans up expired entries every 5 minutes.
func NewTokenRevocationStore() *TokenRevocationStore {
	s := &TokenRevocationStore{
		entries: make(map[string]time.Time),
		done:    make(chan struct{}),
	}
	go s.cleanupLoop()
	return s
}

// Revoke marks a token id as revoked. Revoking the same id twice is a
// no-op, which makes sign-out idempotent.
func (s *TokenRevocationStore) Revoke(tokenID string, expiresAt time.Time) {
	if tokenID == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[tokenID] = expiresAt
}

// IsRevoked reports whether a token id has been revoked.
func (s *TokenRevocationStore) IsRevoked(tokenID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.entries[tokenID]
	return ok
}

// Count returns the number of currently tracked revocations.
func (s *TokenRevocationStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Close stops the background cleanup loop.
func (s *TokenRevocationStore) Close() {
	close(s.done)
}

func (s *TokenRevocationStore) cleanupLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.removeExpired(time.Now())
		case <-s.done:
			return
		}
	}
}

func (s *TokenRevocationStore) removeExpired(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, exp := range s.entries {
		if now.After(exp) {
			delete(s.entries, id)
		}
	}
}
