package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/brucargo/qmsync/internal/model"
	"github.com/brucargo/qmsync/internal/store"
	"github.com/brucargo/qmsync/internal/syncerr"
)

func TestHierarchyResolver_FullChain(t *testing.T) {
	source := new(MockSourceClient)
	stateStore := store.NewMemoryStateStore()
	testTree(source)

	r := NewHierarchyResolver(source, stateStore, zap.NewNop())
	chain, err := r.Resolve(context.Background(), "guid-r")
	require.NoError(t, err)

	require.Len(t, chain.Pending, 3)
	assert.Equal(t, "guid-b", chain.Pending[0].GUID)
	assert.Equal(t, "guid-f", chain.Pending[1].GUID)
	assert.Equal(t, "guid-r", chain.Pending[2].GUID)
	assert.Empty(t, chain.ParentTargetID)
}

func TestHierarchyResolver_StopsAtSyncedAncestor(t *testing.T) {
	source := new(MockSourceClient)
	stateStore := store.NewMemoryStateStore()
	testTree(source)

	require.NoError(t, stateStore.Record(context.Background(), &model.SyncStateEntry{
		SourceType: model.EntityLocation,
		SourceID:   "guid-f",
		TargetType: model.EntityLocation,
		TargetID:   "FLOOR-1",
		SyncedAt:   time.Now().UTC(),
	}))

	r := NewHierarchyResolver(source, stateStore, zap.NewNop())
	chain, err := r.Resolve(context.Background(), "guid-r")
	require.NoError(t, err)

	require.Len(t, chain.Pending, 1)
	assert.Equal(t, "guid-r", chain.Pending[0].GUID)
	assert.Equal(t, "FLOOR-1", chain.ParentTargetID)

	// The walk never asked the source above the synced ancestor.
	source.AssertNotCalled(t, "GetLocation", mock.Anything, "guid-b")
	source.AssertNotCalled(t, "GetLocation", mock.Anything, "guid-f")
}

func TestHierarchyResolver_AlreadySyncedLeaf(t *testing.T) {
	source := new(MockSourceClient)
	stateStore := store.NewMemoryStateStore()

	require.NoError(t, stateStore.Record(context.Background(), &model.SyncStateEntry{
		SourceType: model.EntityLocation,
		SourceID:   "guid-r",
		TargetType: model.EntityLocation,
		TargetID:   "ROOM-101",
		SyncedAt:   time.Now().UTC(),
	}))

	r := NewHierarchyResolver(source, stateStore, zap.NewNop())
	chain, err := r.Resolve(context.Background(), "guid-r")
	require.NoError(t, err)

	assert.Empty(t, chain.Pending)
	assert.Equal(t, "ROOM-101", chain.ParentTargetID)
	source.AssertNotCalled(t, "GetLocation", mock.Anything, mock.Anything)
}

func TestHierarchyResolver_CycleDetected(t *testing.T) {
	source := new(MockSourceClient)
	stateStore := store.NewMemoryStateStore()

	source.On("GetLocation", mock.Anything, "guid-x").
		Return(&model.SourceLocation{GUID: "guid-x", Name: "X", ParentGUID: "guid-y"}, nil)
	source.On("GetLocation", mock.Anything, "guid-y").
		Return(&model.SourceLocation{GUID: "guid-y", Name: "Y", ParentGUID: "guid-x"}, nil)

	r := NewHierarchyResolver(source, stateStore, zap.NewNop())
	_, err := r.Resolve(context.Background(), "guid-x")
	assert.ErrorIs(t, err, syncerr.ErrCycleDetected)
}

func TestHierarchyResolver_MissingAncestor(t *testing.T) {
	source := new(MockSourceClient)
	stateStore := store.NewMemoryStateStore()

	source.On("GetLocation", mock.Anything, "guid-x").
		Return(nil, syncerr.ErrLocationNotFound)

	r := NewHierarchyResolver(source, stateStore, zap.NewNop())
	_, err := r.Resolve(context.Background(), "guid-x")
	assert.ErrorIs(t, err, syncerr.ErrLocationNotFound)
}

func TestHierarchyResolver_DefaultRootExcluded(t *testing.T) {
	source := new(MockSourceClient)
	stateStore := store.NewMemoryStateStore()

	// Some models carry a synthetic "Default" root node; it must not
	// become a Maximo location.
	source.On("GetLocation", mock.Anything, "guid-root").
		Return(&model.SourceLocation{GUID: "guid-root", Name: "Default"}, nil)
	source.On("GetLocation", mock.Anything, "guid-b").
		Return(&model.SourceLocation{GUID: "guid-b", Name: "Building A", ParentGUID: "guid-root"}, nil)

	r := NewHierarchyResolver(source, stateStore, zap.NewNop())
	chain, err := r.Resolve(context.Background(), "guid-b")
	require.NoError(t, err)

	require.Len(t, chain.Pending, 1)
	assert.Equal(t, "guid-b", chain.Pending[0].GUID)
	assert.Empty(t, chain.ParentTargetID)
}
