package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/brucargo/qmsync/internal/client"
	"github.com/brucargo/qmsync/internal/model"
	"github.com/brucargo/qmsync/internal/store"
	"github.com/brucargo/qmsync/internal/syncerr"
	"go.uber.org/zap"
)

// defaultRootName marks the synthetic root node some Qonic models carry.
// A parent chain ending there attaches to the configured Maximo root
// instead, the same as a chain ending at a true root.
const defaultRootName = "Default"

// HierarchyResolver computes, for one spatial location, the ordered list of
// ancestor locations that still have to be created in Maximo. Read-only:
// it touches the state store only through Lookup.
type HierarchyResolver struct {
	source     client.SourceClient
	stateStore store.StateStore
	logger     *zap.Logger
}

// ResolvedChain is the resolver output.
type ResolvedChain struct {
	// Pending lists the locations to create, root-first, so every create
	// call can reference an existing parent.
	Pending []*model.SourceLocation

	// ParentTargetID is the Maximo id of the nearest already-synced
	// ancestor, or empty when the chain reaches a source root. The root
	// case attaches to the deployment's configured root location.
	ParentTargetID string
}

// NewHierarchyResolver creates a hierarchy resolver.
func NewHierarchyResolver(source client.SourceClient, stateStore store.StateStore, logger *zap.Logger) *HierarchyResolver {
	return &HierarchyResolver{source: source, stateStore: stateStore, logger: logger}
}

// Resolve walks parent links upward from locationID. The walk stops at the
// first ancestor with a state entry (its target id seeds the chain) or at a
// source root. Revisiting an id fails with ErrCycleDetected; an ancestor
// the source cannot resolve fails with ErrLocationNotFound. Both fail only
// the asset being processed.
func (r *HierarchyResolver) Resolve(ctx context.Context, locationID string) (*ResolvedChain, error) {
	visited := make(map[string]bool)
	chain := &ResolvedChain{}

	current := locationID
	for current != "" {
		if visited[current] {
			return nil, fmt.Errorf("%w: %s revisited while walking ancestors of %s",
				syncerr.ErrCycleDetected, current, locationID)
		}
		visited[current] = true

		entry, err := r.stateStore.Lookup(ctx, model.EntityLocation, current)
		if err == nil {
			chain.ParentTargetID = entry.TargetID
			break
		}
		if !errors.Is(err, store.ErrNotFound) {
			return nil, syncerr.StateStore(err)
		}

		loc, err := r.source.GetLocation(ctx, current)
		if err != nil {
			return nil, err
		}
		if loc.Name == defaultRootName {
			break
		}

		chain.Pending = append(chain.Pending, loc)
		current = loc.ParentGUID
	}

	// Collected leaf-first; creation order is root-first.
	for i, j := 0, len(chain.Pending)-1; i < j; i, j = i+1, j-1 {
		chain.Pending[i], chain.Pending[j] = chain.Pending[j], chain.Pending[i]
	}

	r.logger.Debug("Resolved location hierarchy",
		zap.String("location", locationID),
		zap.Int("pending", len(chain.Pending)),
		zap.String("parent_target", chain.ParentTargetID))

	return chain, nil
}
