package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/brucargo/qmsync/internal/client"
	"github.com/brucargo/qmsync/internal/mapper"
	"github.com/brucargo/qmsync/internal/metrics"
	"github.com/brucargo/qmsync/internal/model"
	"github.com/brucargo/qmsync/internal/store"
	"github.com/brucargo/qmsync/internal/syncerr"
	"github.com/brucargo/qmsync/internal/util/workerpool"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// syncPhase tracks one asset's progress through the sync pipeline.
type syncPhase int

const (
	phasePending syncPhase = iota
	phaseLocationsResolved
	phaseLocationsCreated
	phaseAssetCreated
	phaseSourceUpdated
	phaseFailed
)

func (p syncPhase) String() string {
	switch p {
	case phasePending:
		return "PENDING"
	case phaseLocationsResolved:
		return "LOCATIONS_RESOLVED"
	case phaseLocationsCreated:
		return "LOCATIONS_CREATED"
	case phaseAssetCreated:
		return "ASSET_CREATED"
	case phaseSourceUpdated:
		return "SOURCE_UPDATED"
	case phaseFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// SyncConfig holds orchestrator settings for one deployment.
type SyncConfig struct {
	// RootParentID is the Maximo location adopted as parent for source
	// roots (the custom structure's anchor, e.g. BUILDINGS).
	RootParentID string
	// Workers > 1 processes independent assets concurrently. Location
	// creation stays serialized either way.
	Workers   int
	QueueSize int
	// ProgressEvery logs a progress line every N assets.
	ProgressEvery int
	Filter        model.AssetFilter
}

// SyncService drives one sync pass: enumerate candidate assets, resolve and
// create location hierarchies root-first, create assets, record state after
// every successful target creation, and write Maximo identifiers back to
// the source. One asset's failure never aborts the batch; a state store
// failure halts the pass immediately.
type SyncService struct {
	source     client.SourceClient
	target     client.TargetClient
	stateStore store.StateStore
	resolver   *HierarchyResolver
	locations  *mapper.LocationBuilder
	translator *mapper.AssetTranslator
	cfg        SyncConfig
	metrics    *metrics.Metrics
	logger     *zap.Logger

	// locationMu serializes the check-then-create of shared ancestor
	// locations when assets are processed concurrently.
	locationMu sync.Mutex
}

// NewSyncService creates a sync orchestrator.
func NewSyncService(
	source client.SourceClient,
	target client.TargetClient,
	stateStore store.StateStore,
	resolver *HierarchyResolver,
	locations *mapper.LocationBuilder,
	translator *mapper.AssetTranslator,
	cfg SyncConfig,
	m *metrics.Metrics,
	logger *zap.Logger,
) *SyncService {
	if cfg.RootParentID == "" {
		cfg.RootParentID = "BUILDINGS"
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.ProgressEvery <= 0 {
		cfg.ProgressEvery = 100
	}

	return &SyncService{
		source:     source,
		target:     target,
		stateStore: stateStore,
		resolver:   resolver,
		locations:  locations,
		translator: translator,
		cfg:        cfg,
		metrics:    m,
		logger:     logger,
	}
}

// assetOutcome is the result of one asset's pipeline.
type assetOutcome struct {
	link    *model.AssetLink
	created bool
	locationsCreated int
}

// Run executes one complete sync pass and reports the aggregate outcome.
// The returned error is non-nil only for pass-fatal conditions (candidate
// enumeration failure or a state store failure).
func (s *SyncService) Run(ctx context.Context) (*model.SyncReport, error) {
	report := &model.SyncReport{
		RunID:     uuid.New().String(),
		StartedAt: time.Now(),
	}

	s.logger.Info("Starting sync pass",
		zap.String("run_id", report.RunID),
		zap.Int("workers", s.cfg.Workers))

	assets, err := s.source.ListCandidateAssets(ctx, s.cfg.Filter)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate candidate assets: %w", err)
	}
	report.AssetsTotal = len(assets)

	var links []model.AssetLink
	if s.cfg.Workers <= 1 {
		links, err = s.runSequential(ctx, assets, report)
	} else {
		links, err = s.runParallel(ctx, assets, report)
	}
	if err != nil {
		return report, err
	}

	s.writeBack(ctx, links, report)

	report.Duration = time.Since(report.StartedAt)
	s.metrics.PassDuration.Observe(report.Duration.Seconds())

	s.logger.Info("Sync pass complete",
		zap.String("run_id", report.RunID),
		zap.Int("assets_total", report.AssetsTotal),
		zap.Int("assets_created", report.AssetsCreated),
		zap.Int("assets_skipped", report.AssetsSkipped),
		zap.Int("assets_failed", report.AssetsFailed),
		zap.Int("locations_created", report.LocationsCreated),
		zap.Int("writebacks_failed", report.WriteBacksFailed),
		zap.Duration("duration", report.Duration))

	return report, nil
}

func (s *SyncService) runSequential(ctx context.Context, assets []*model.SourceAsset, report *model.SyncReport) ([]model.AssetLink, error) {
	var links []model.AssetLink

	for i, asset := range assets {
		if err := ctx.Err(); err != nil {
			return links, err
		}

		outcome, err := s.processAsset(ctx, asset)
		if outcome != nil {
			// Ancestor locations created before a failure stay recorded
			// and count as created.
			report.LocationsCreated += outcome.locationsCreated
		}
		if err != nil {
			if syncerr.IsFatal(err) {
				s.logger.Error("State store failure, halting pass", zap.Error(err))
				return links, err
			}
			s.recordFailure(report, asset, err)
			continue
		}
		s.recordOutcome(report, outcome)
		if outcome.link != nil {
			links = append(links, *outcome.link)
		}

		if (i+1)%s.cfg.ProgressEvery == 0 {
			s.logger.Info("Sync progress",
				zap.Int("processed", i+1),
				zap.Int("total", len(assets)),
				zap.Int("created", report.AssetsCreated))
		}
	}

	return links, nil
}

func (s *SyncService) runParallel(ctx context.Context, assets []*model.SourceAsset, report *model.SyncReport) ([]model.AssetLink, error) {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	pool := workerpool.New(&workerpool.Config{
		Name:       "asset-sync",
		MaxWorkers: s.cfg.Workers,
		QueueSize:  s.cfg.QueueSize,
		Logger:     s.logger,
	})

	var (
		mu       sync.Mutex
		links    []model.AssetLink
		fatalErr error
		wg       sync.WaitGroup
	)

	for _, asset := range assets {
		asset := asset
		wg.Add(1)
		task := workerpool.Task{
			ID: asset.GUID,
			Fn: func(context.Context) error {
				defer wg.Done()

				if runCtx.Err() != nil {
					return nil
				}
				outcome, err := s.processAsset(runCtx, asset)

				mu.Lock()
				defer mu.Unlock()
				if outcome != nil {
					report.LocationsCreated += outcome.locationsCreated
				}
				if err != nil {
					if syncerr.IsFatal(err) {
						if fatalErr == nil {
							fatalErr = err
						}
						cancel()
						return err
					}
					s.recordFailure(report, asset, err)
					return err
				}
				s.recordOutcome(report, outcome)
				if outcome.link != nil {
					links = append(links, *outcome.link)
				}
				return nil
			},
		}
		if err := pool.Submit(runCtx, task); err != nil {
			wg.Done()
			break
		}
	}

	wg.Wait()
	pool.Stop(30 * time.Second)

	if fatalErr != nil {
		s.logger.Error("State store failure, halting pass", zap.Error(fatalErr))
		return links, fatalErr
	}
	return links, nil
}

// processAsset runs one asset through the state machine. The returned error
// is either pass-fatal (state store) or per-asset; callers distinguish with
// syncerr.IsFatal.
func (s *SyncService) processAsset(ctx context.Context, asset *model.SourceAsset) (*assetOutcome, error) {
	outcome := &assetOutcome{}
	phase := phasePending

	var (
		chain            *ResolvedChain
		targetLocationID string
	)

	for {
		switch phase {
		case phasePending:
			// Idempotency gate. A hit means the asset already exists in
			// Maximo; only the write-back is re-issued (it overwrites the
			// same fields, so retrying a failed write-back is safe).
			entry, err := s.stateStore.Lookup(ctx, model.EntityAsset, asset.GUID)
			if err == nil {
				outcome.link = &model.AssetLink{
					SourceGUID:       asset.GUID,
					TargetAssetID:    entry.TargetID,
					TargetLocationID: entry.TargetLocationID,
				}
				return outcome, nil
			}
			if !errors.Is(err, store.ErrNotFound) {
				return nil, syncerr.StateStore(err)
			}

			if asset.LocationGUID == "" {
				return nil, fmt.Errorf("%w: asset %s has no spatial location", syncerr.ErrLocationNotFound, asset.GUID)
			}
			chain, err = s.resolver.Resolve(ctx, asset.LocationGUID)
			if err != nil {
				return nil, err
			}
			phase = phaseLocationsResolved

		case phaseLocationsResolved:
			var err error
			var created int
			targetLocationID, created, err = s.createLocations(ctx, chain)
			outcome.locationsCreated = created
			if err != nil {
				// Already-created ancestors keep their state entries; the
				// next pass resumes from where this one stopped.
				return outcome, err
			}
			phase = phaseLocationsCreated

		case phaseLocationsCreated:
			payload, err := s.translator.Translate(asset, targetLocationID)
			if err != nil {
				return outcome, err
			}
			assetID, err := s.target.CreateAsset(ctx, payload)
			if err != nil {
				return outcome, err
			}
			entry := &model.SyncStateEntry{
				SourceType:       model.EntityAsset,
				SourceID:         asset.GUID,
				TargetType:       model.EntityAsset,
				TargetID:         assetID,
				TargetLocationID: targetLocationID,
				SyncedAt:         time.Now().UTC(),
			}
			if err := s.stateStore.Record(ctx, entry); err != nil {
				return outcome, syncerr.StateStore(err)
			}
			outcome.created = true
			outcome.link = &model.AssetLink{
				SourceGUID:       asset.GUID,
				TargetAssetID:    assetID,
				TargetLocationID: targetLocationID,
			}
			phase = phaseAssetCreated

		case phaseAssetCreated:
			// SOURCE_UPDATED happens batched at the end of the pass; the
			// link is handed up for it.
			return outcome, nil
		}
	}
}

// createLocations creates the pending chain root-first and returns the
// Maximo id of the deepest location, i.e. the one the asset attaches to.
// The whole chain runs under the location mutex so a concurrently processed
// asset sharing an ancestor observes the recorded state instead of
// re-creating it.
func (s *SyncService) createLocations(ctx context.Context, chain *ResolvedChain) (string, int, error) {
	s.locationMu.Lock()
	defer s.locationMu.Unlock()

	parentID := chain.ParentTargetID
	if parentID == "" {
		parentID = s.cfg.RootParentID
	}
	created := 0

	for i, loc := range chain.Pending {
		// A concurrent asset may have created this ancestor while we
		// waited for the mutex.
		entry, err := s.stateStore.Lookup(ctx, model.EntityLocation, loc.GUID)
		if err == nil {
			parentID = entry.TargetID
			continue
		}
		if !errors.Is(err, store.ErrNotFound) {
			return "", created, syncerr.StateStore(err)
		}

		hasChildren := i < len(chain.Pending)-1
		payload, err := s.locations.Build(loc, parentID, hasChildren)
		if err != nil {
			return "", created, fmt.Errorf("%w: %v", syncerr.ErrTargetCreate, err)
		}

		targetID, err := s.target.CreateLocation(ctx, payload)
		if err != nil {
			return "", created, err
		}

		stateEntry := &model.SyncStateEntry{
			SourceType:     model.EntityLocation,
			SourceID:       loc.GUID,
			TargetType:     model.EntityLocation,
			TargetID:       targetID,
			TargetParentID: parentID,
			SyncedAt:       time.Now().UTC(),
		}
		if err := s.stateStore.Record(ctx, stateEntry); err != nil {
			return "", created, syncerr.StateStore(err)
		}

		created++
		s.metrics.LocationsCreated.Inc()
		parentID = targetID
	}

	return parentID, created, nil
}

// writeBack pushes all collected identifier links to the source in one
// request. Failures are reported, never fatal: the asset already exists in
// Maximo and the write-back retries on the next pass.
func (s *SyncService) writeBack(ctx context.Context, links []model.AssetLink, report *model.SyncReport) {
	if len(links) == 0 {
		return
	}

	rejected, err := s.source.UpdateAssetLinks(ctx, links)
	if err != nil {
		report.WriteBacksFailed = len(links)
		s.metrics.WriteBacksFailed.Add(float64(len(links)))
		for _, link := range links {
			report.Failures = append(report.Failures, model.Failure{
				Type:   model.EntityAsset,
				ID:     link.SourceGUID,
				Reason: syncerr.Reason(err),
			})
		}
		s.logger.Error("Identifier write-back failed, will retry next pass",
			zap.Int("links", len(links)),
			zap.Error(err))
		return
	}

	report.WriteBacksFailed = len(rejected)
	for _, reject := range rejected {
		s.metrics.WriteBacksFailed.Inc()
		report.Failures = append(report.Failures, model.Failure{
			Type:   model.EntityAsset,
			ID:     reject.SourceGUID,
			Reason: fmt.Sprintf("SourceWriteBackFailed: %s %s", reject.Field, reject.Message),
		})
		s.logger.Warn("Source rejected identifier write-back",
			zap.String("source_guid", reject.SourceGUID),
			zap.String("field", reject.Field),
			zap.String("message", reject.Message))
	}
	if len(rejected) == 0 {
		s.logger.Info("Identifier write-back complete", zap.Int("links", len(links)))
	}
}

func (s *SyncService) recordOutcome(report *model.SyncReport, outcome *assetOutcome) {
	if outcome.created {
		report.AssetsCreated++
		s.metrics.AssetsCreated.Inc()
	} else if outcome.link != nil {
		report.AssetsSkipped++
		s.metrics.AssetsSkipped.Inc()
	}
}

func (s *SyncService) recordFailure(report *model.SyncReport, asset *model.SourceAsset, err error) {
	reason := syncerr.Reason(err)
	report.AssetsFailed++
	report.Failures = append(report.Failures, model.Failure{
		Type:   model.EntityAsset,
		ID:     asset.GUID,
		Reason: reason,
	})
	s.metrics.AssetsFailed.WithLabelValues(reason).Inc()
	s.logger.Warn("Asset sync failed",
		zap.String("asset", asset.GUID),
		zap.String("state", phaseFailed.String()),
		zap.String("reason", reason),
		zap.Error(err))
}
