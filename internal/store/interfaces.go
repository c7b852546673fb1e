package store

import (
	"context"
	"errors"

	"github.com/brucargo/qmsync/internal/model"
)

// ErrNotFound is returned when no entry exists for a key
var ErrNotFound = errors.New("not found")

// StateStore is the durable mapping from source entity keys to the Maximo
// identifiers created for them. It is the sole source of truth for
// idempotency and the only input the cleanup engine may consume.
//
// Durability contract: Record and Remove must be flushed to durable storage
// before returning; a sync or cleanup step is only considered complete once
// the corresponding store call has returned nil. The store assumes a single
// pass at a time and is not designed for concurrent writer processes.
type StateStore interface {
	// Lookup returns the entry for the key, or ErrNotFound.
	Lookup(ctx context.Context, sourceType model.EntityType, sourceID string) (*model.SyncStateEntry, error)

	// Record persists an entry after a successful target creation. It
	// overwrites any stale entry for the same key, which is only expected
	// when a prior cleanup removed the target record.
	Record(ctx context.Context, entry *model.SyncStateEntry) error

	// Remove deletes the entry after a successful target deletion.
	Remove(ctx context.Context, sourceType model.EntityType, sourceID string) error

	// ListAll returns every entry. Used by the cleanup engine.
	ListAll(ctx context.Context) ([]*model.SyncStateEntry, error)

	// Ping checks the backing storage
	Ping(ctx context.Context) error
	Close() error
}
