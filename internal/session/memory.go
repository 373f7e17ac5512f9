// Package session provides per-user conversation session storage.
//
// This file implements an in-memory store with the same TTL semantics as
// the Redis store, used by tests and as a fallback when Redis is not
// configured.
package session

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/Luks-code/luna-sub000/internal/models"
)

type memoryEntry struct {
	payload   []byte
	expiresAt time.Time
}

// MemoryStore implements Store with an in-process map. Entries expire on
// read; there is no background sweeper.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	ttl     time.Duration
}

// NewMemoryStore creates an in-memory session store with the given TTL.
// A non-positive TTL falls back to DefaultTTL.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
	}
}

// Get retrieves the session blob for a user, or nil when absent/expired.
func (s *MemoryStore) Get(ctx context.Context, userID string) (*models.SessionBlob, error) {
	s.mu.Lock()
	entry, ok := s.entries[userID]
	if ok && time.Now().After(entry.expiresAt) {
		delete(s.entries, userID)
		ok = false
	}
	s.mu.Unlock()

	if !ok {
		return nil, nil
	}
	return decodeBlob(entry.payload)
}

// Put stores the session blob for a user, refreshing its TTL.
func (s *MemoryStore) Put(ctx context.Context, userID string, blob *models.SessionBlob) error {
	payload, err := json.Marshal(blob)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.entries[userID] = memoryEntry{payload: payload, expiresAt: time.Now().Add(s.ttl)}
	s.mu.Unlock()
	slog.Debug("MemoryStore.Put: session stored", "userID", userID)
	return nil
}

// Delete removes the session for a user.
func (s *MemoryStore) Delete(ctx context.Context, userID string) error {
	s.mu.Lock()
	delete(s.entries, userID)
	s.mu.Unlock()
	return nil
}

// PutRaw stores a raw payload under a user key, bypassing blob encoding.
// It exists so tests can exercise the legacy payload read-path.
func (s *MemoryStore) PutRaw(userID string, payload []byte) {
	s.mu.Lock()
	s.entries[userID] = memoryEntry{payload: payload, expiresAt: time.Now().Add(s.ttl)}
	s.mu.Unlock()
}
