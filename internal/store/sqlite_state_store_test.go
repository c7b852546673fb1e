package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/brucargo/qmsync/internal/model"
)

func openTestStore(t *testing.T, path string) *SQLiteStateStore {
	t.Helper()
	s, err := NewSQLiteStateStore(path, zap.NewNop())
	require.NoError(t, err)
	return s
}

func TestSQLiteStateStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")
	s := openTestStore(t, path)
	defer s.Close()
	ctx := context.Background()

	entry := &model.SyncStateEntry{
		SourceType:       model.EntityAsset,
		SourceID:         "guid-ahu-07",
		TargetType:       model.EntityAsset,
		TargetID:         "A-4711",
		TargetLocationID: "ROOM-201",
		SyncedAt:         time.Now().UTC().Truncate(time.Second),
	}
	require.NoError(t, s.Record(ctx, entry))

	got, err := s.Lookup(ctx, model.EntityAsset, "guid-ahu-07")
	require.NoError(t, err)
	assert.Equal(t, entry.TargetID, got.TargetID)
	assert.Equal(t, entry.TargetLocationID, got.TargetLocationID)
	assert.Equal(t, model.EntityAsset, got.TargetType)

	_, err = s.Lookup(ctx, model.EntityLocation, "guid-ahu-07")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteStateStore_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")
	ctx := context.Background()

	s := openTestStore(t, path)
	entry := &model.SyncStateEntry{
		SourceType:     model.EntityLocation,
		SourceID:       "guid-floor-2",
		TargetType:     model.EntityLocation,
		TargetID:       "FLOOR-2",
		TargetParentID: "BUILDING-A",
		SyncedAt:       time.Now().UTC().Truncate(time.Second),
	}
	require.NoError(t, s.Record(ctx, entry))
	require.NoError(t, s.Close())

	reopened := openTestStore(t, path)
	defer reopened.Close()

	got, err := reopened.Lookup(ctx, model.EntityLocation, "guid-floor-2")
	require.NoError(t, err)
	assert.Equal(t, "FLOOR-2", got.TargetID)
	assert.Equal(t, "BUILDING-A", got.TargetParentID)
}

func TestSQLiteStateStore_RecordUpserts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")
	s := openTestStore(t, path)
	defer s.Close()
	ctx := context.Background()

	entry := &model.SyncStateEntry{
		SourceType: model.EntityAsset,
		SourceID:   "guid-pump",
		TargetType: model.EntityAsset,
		TargetID:   "A-1",
		SyncedAt:   time.Now().UTC(),
	}
	require.NoError(t, s.Record(ctx, entry))

	entry.TargetID = "A-2"
	require.NoError(t, s.Record(ctx, entry))

	entries, err := s.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "A-2", entries[0].TargetID)
}

func TestSQLiteStateStore_RemoveAndListAll(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")
	s := openTestStore(t, path)
	defer s.Close()
	ctx := context.Background()

	for _, e := range []*model.SyncStateEntry{
		{SourceType: model.EntityLocation, SourceID: "loc-1", TargetType: model.EntityLocation, TargetID: "L1", SyncedAt: time.Now().UTC()},
		{SourceType: model.EntityAsset, SourceID: "asset-1", TargetType: model.EntityAsset, TargetID: "A1", SyncedAt: time.Now().UTC()},
		{SourceType: model.EntityAsset, SourceID: "asset-2", TargetType: model.EntityAsset, TargetID: "A2", SyncedAt: time.Now().UTC()},
	} {
		require.NoError(t, s.Record(ctx, e))
	}

	entries, err := s.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	// Asset entries sort before location entries.
	assert.Equal(t, model.EntityAsset, entries[0].TargetType)
	assert.Equal(t, model.EntityAsset, entries[1].TargetType)
	assert.Equal(t, model.EntityLocation, entries[2].TargetType)

	require.NoError(t, s.Remove(ctx, model.EntityAsset, "asset-1"))
	_, err = s.Lookup(ctx, model.EntityAsset, "asset-1")
	assert.ErrorIs(t, err, ErrNotFound)

	entries, err = s.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestSQLiteStateStore_Ping(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")
	s := openTestStore(t, path)
	assert.NoError(t, s.Ping(context.Background()))
	require.NoError(t, s.Close())
}
