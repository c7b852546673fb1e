package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brucargo/qmsync/internal/model"
)

func TestMemoryStateStore_RecordAndLookup(t *testing.T) {
	s := NewMemoryStateStore()
	ctx := context.Background()

	entry := &model.SyncStateEntry{
		SourceType:     model.EntityLocation,
		SourceID:       "guid-floor-1",
		TargetType:     model.EntityLocation,
		TargetID:       "FLOOR-1",
		TargetParentID: "BUILDING-A",
		SyncedAt:       time.Now().UTC(),
	}
	require.NoError(t, s.Record(ctx, entry))

	got, err := s.Lookup(ctx, model.EntityLocation, "guid-floor-1")
	require.NoError(t, err)
	assert.Equal(t, "FLOOR-1", got.TargetID)
	assert.Equal(t, "BUILDING-A", got.TargetParentID)

	// Lookup returns a copy, not the stored entry.
	got.TargetID = "mutated"
	again, err := s.Lookup(ctx, model.EntityLocation, "guid-floor-1")
	require.NoError(t, err)
	assert.Equal(t, "FLOOR-1", again.TargetID)
}

func TestMemoryStateStore_LookupMissing(t *testing.T) {
	s := NewMemoryStateStore()

	_, err := s.Lookup(context.Background(), model.EntityAsset, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStateStore_RecordOverwrites(t *testing.T) {
	s := NewMemoryStateStore()
	ctx := context.Background()

	first := &model.SyncStateEntry{
		SourceType: model.EntityAsset,
		SourceID:   "guid-pump",
		TargetType: model.EntityAsset,
		TargetID:   "A-100",
		SyncedAt:   time.Now().UTC(),
	}
	require.NoError(t, s.Record(ctx, first))

	second := *first
	second.TargetID = "A-200"
	require.NoError(t, s.Record(ctx, &second))

	got, err := s.Lookup(ctx, model.EntityAsset, "guid-pump")
	require.NoError(t, err)
	assert.Equal(t, "A-200", got.TargetID)

	entries, err := s.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestMemoryStateStore_Remove(t *testing.T) {
	s := NewMemoryStateStore()
	ctx := context.Background()

	entry := &model.SyncStateEntry{
		SourceType: model.EntityAsset,
		SourceID:   "guid-pump",
		TargetType: model.EntityAsset,
		TargetID:   "A-100",
		SyncedAt:   time.Now().UTC(),
	}
	require.NoError(t, s.Record(ctx, entry))
	require.NoError(t, s.Remove(ctx, model.EntityAsset, "guid-pump"))

	_, err := s.Lookup(ctx, model.EntityAsset, "guid-pump")
	assert.ErrorIs(t, err, ErrNotFound)

	// Removing an absent entry is not an error.
	assert.NoError(t, s.Remove(ctx, model.EntityAsset, "guid-pump"))
}
