package service

import (
	"context"
	"sort"

	"github.com/brucargo/qmsync/internal/client"
	"github.com/brucargo/qmsync/internal/metrics"
	"github.com/brucargo/qmsync/internal/model"
	"github.com/brucargo/qmsync/internal/store"
	"github.com/brucargo/qmsync/internal/syncerr"
	"go.uber.org/zap"
)

// CleanupService rolls back previously synced records. It consumes the
// state store exclusively: an entry is the only evidence a target record
// exists, and a successful delete removes the entry immediately. Failures
// leave entries in place for the next invocation.
type CleanupService struct {
	target       client.TargetClient
	stateStore   store.StateStore
	rootParentID string
	metrics      *metrics.Metrics
	logger       *zap.Logger
}

// NewCleanupService creates a cleanup engine.
func NewCleanupService(
	target client.TargetClient,
	stateStore store.StateStore,
	rootParentID string,
	m *metrics.Metrics,
	logger *zap.Logger,
) *CleanupService {
	if rootParentID == "" {
		rootParentID = "BUILDINGS"
	}
	return &CleanupService{
		target:       target,
		stateStore:   stateStore,
		rootParentID: rootParentID,
		metrics:      m,
		logger:       logger,
	}
}

// Run deletes every synced record in reverse dependency order: assets
// first, then locations leaf-before-parent. A location whose referencing
// asset could not be deleted, or that still has a live child location
// entry, is skipped and retried on a later run.
func (s *CleanupService) Run(ctx context.Context) (*model.CleanupReport, error) {
	entries, err := s.stateStore.ListAll(ctx)
	if err != nil {
		return nil, syncerr.StateStore(err)
	}

	var assets, locations []*model.SyncStateEntry
	for _, entry := range entries {
		switch entry.TargetType {
		case model.EntityAsset:
			assets = append(assets, entry)
		case model.EntityLocation:
			locations = append(locations, entry)
		}
	}

	s.logger.Info("Starting cleanup",
		zap.Int("asset_entries", len(assets)),
		zap.Int("location_entries", len(locations)))

	report := &model.CleanupReport{}

	// Target location ids still referenced by an asset whose deletion
	// failed. Those locations must not be touched this run.
	blocked := make(map[string]bool)

	for _, entry := range assets {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if err := s.target.DeleteAsset(ctx, entry.TargetID); err != nil {
			report.AssetsFailed++
			report.Failures = append(report.Failures, model.Failure{
				Type:   model.EntityAsset,
				ID:     entry.SourceID,
				Reason: syncerr.Reason(err),
			})
			s.metrics.CleanupFailures.WithLabelValues(string(model.EntityAsset)).Inc()
			blocked[entry.TargetLocationID] = true
			s.logger.Warn("Failed to delete asset",
				zap.String("assetnum", entry.TargetID),
				zap.Error(err))
			continue
		}
		if err := s.stateStore.Remove(ctx, entry.SourceType, entry.SourceID); err != nil {
			return report, syncerr.StateStore(err)
		}
		report.AssetsDeleted++
		s.metrics.AssetsDeleted.Inc()
		s.logger.Info("Deleted asset", zap.String("assetnum", entry.TargetID))
	}

	// Live child count per parent target id, maintained as deletions
	// succeed; a location with live children cannot be deleted yet.
	liveChildren := make(map[string]int, len(locations))
	for _, entry := range locations {
		liveChildren[entry.TargetParentID]++
	}

	for _, entry := range deletionOrder(locations) {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if entry.TargetID == s.rootParentID {
			continue
		}
		if blocked[entry.TargetID] || liveChildren[entry.TargetID] > 0 {
			report.LocationsSkipped++
			s.logger.Info("Skipping location with live dependents",
				zap.String("location", entry.TargetID))
			continue
		}

		if err := s.target.DeleteLocation(ctx, entry.TargetID); err != nil {
			report.LocationsFailed++
			report.Failures = append(report.Failures, model.Failure{
				Type:   model.EntityLocation,
				ID:     entry.SourceID,
				Reason: syncerr.Reason(err),
			})
			s.metrics.CleanupFailures.WithLabelValues(string(model.EntityLocation)).Inc()
			s.logger.Warn("Failed to delete location",
				zap.String("location", entry.TargetID),
				zap.Error(err))
			continue
		}
		if err := s.stateStore.Remove(ctx, entry.SourceType, entry.SourceID); err != nil {
			return report, syncerr.StateStore(err)
		}
		liveChildren[entry.TargetParentID]--
		report.LocationsDeleted++
		s.metrics.LocationsDeleted.Inc()
		s.logger.Info("Deleted location", zap.String("location", entry.TargetID))
	}

	s.logger.Info("Cleanup complete",
		zap.Int("assets_deleted", report.AssetsDeleted),
		zap.Int("locations_deleted", report.LocationsDeleted),
		zap.Int("assets_failed", report.AssetsFailed),
		zap.Int("locations_failed", report.LocationsFailed),
		zap.Int("locations_skipped", report.LocationsSkipped))

	return report, nil
}

// deletionOrder sorts location entries leaf-before-parent using the
// recorded parent links, children in name order so runs are deterministic.
func deletionOrder(locations []*model.SyncStateEntry) []*model.SyncStateEntry {
	byTarget := make(map[string]*model.SyncStateEntry, len(locations))
	childrenOf := make(map[string][]*model.SyncStateEntry, len(locations))
	for _, entry := range locations {
		byTarget[entry.TargetID] = entry
	}
	for _, entry := range locations {
		childrenOf[entry.TargetParentID] = append(childrenOf[entry.TargetParentID], entry)
	}
	for parent := range childrenOf {
		children := childrenOf[parent]
		sort.Slice(children, func(i, j int) bool { return children[i].TargetID < children[j].TargetID })
	}

	// Roots: entries whose parent is not itself a synced location.
	var roots []*model.SyncStateEntry
	for _, entry := range locations {
		if _, ok := byTarget[entry.TargetParentID]; !ok {
			roots = append(roots, entry)
		}
	}
	sort.Slice(roots, func(i, j int) bool { return roots[i].TargetID < roots[j].TargetID })

	ordered := make([]*model.SyncStateEntry, 0, len(locations))
	visited := make(map[string]bool, len(locations))
	var walk func(entry *model.SyncStateEntry)
	walk = func(entry *model.SyncStateEntry) {
		if visited[entry.TargetID] {
			return
		}
		visited[entry.TargetID] = true
		for _, child := range childrenOf[entry.TargetID] {
			walk(child)
		}
		ordered = append(ordered, entry)
	}
	for _, root := range roots {
		walk(root)
	}

	// Entries trapped in a parent-link cycle (should not happen, but the
	// store is external input) still get a deterministic slot at the end.
	for _, entry := range locations {
		if !visited[entry.TargetID] {
			ordered = append(ordered, entry)
		}
	}

	return ordered
}
