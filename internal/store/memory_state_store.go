package store

import (
	"context"
	"sync"

	"github.com/brucargo/qmsync/internal/model"
)

// MemoryStateStore implements StateStore with an in-process map. It backs
// --dry-run passes and tests; it does not survive restarts and must not be
// used for real syncs.
type MemoryStateStore struct {
	mu      sync.RWMutex
	entries map[stateKey]*model.SyncStateEntry
}

type stateKey struct {
	sourceType model.EntityType
	sourceID   string
}

// NewMemoryStateStore creates an empty in-memory state store.
func NewMemoryStateStore() *MemoryStateStore {
	return &MemoryStateStore{
		entries: make(map[stateKey]*model.SyncStateEntry),
	}
}

// Lookup returns the entry for the key, or ErrNotFound.
func (s *MemoryStateStore) Lookup(ctx context.Context, sourceType model.EntityType, sourceID string) (*model.SyncStateEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[stateKey{sourceType, sourceID}]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *entry
	return &cp, nil
}

// Record stores an entry, overwriting any stale entry for the same key.
func (s *MemoryStateStore) Record(ctx context.Context, entry *model.SyncStateEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *entry
	s.entries[stateKey{entry.SourceType, entry.SourceID}] = &cp
	return nil
}

// Remove deletes the entry for the key. Removing an absent key is a no-op.
func (s *MemoryStateStore) Remove(ctx context.Context, sourceType model.EntityType, sourceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, stateKey{sourceType, sourceID})
	return nil
}

// ListAll returns copies of every entry.
func (s *MemoryStateStore) ListAll(ctx context.Context) ([]*model.SyncStateEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*model.SyncStateEntry, 0, len(s.entries))
	for _, entry := range s.entries {
		cp := *entry
		out = append(out, &cp)
	}
	return out, nil
}

// Ping always succeeds.
func (s *MemoryStateStore) Ping(ctx context.Context) error { return nil }

// Close is a no-op.
func (s *MemoryStateStore) Close() error { return nil }
