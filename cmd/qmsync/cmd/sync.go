package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/brucargo/qmsync/internal/client"
	"github.com/brucargo/qmsync/internal/mapper"
	"github.com/brucargo/qmsync/internal/metrics"
	"github.com/brucargo/qmsync/internal/model"
	"github.com/brucargo/qmsync/internal/server"
	"github.com/brucargo/qmsync/internal/service"
	"github.com/brucargo/qmsync/internal/store"
)

var (
	dryRun      bool
	syncWorkers int
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run one sync pass from Qonic to Maximo",
	Long: `Enumerates candidate assets in the source model, creates their
location hierarchies and asset records in Maximo, and writes the assigned
identifiers back to the source. Already-synced records are skipped, so
rerunning after a partial failure completes the remainder.

With --dry-run no record is created, deleted, or written back; the pass
runs against a no-op target and an in-memory state store and reports what
a real run would do.`,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().BoolVar(&dryRun, "dry-run", false, "report planned work without touching Maximo or the source")
	syncCmd.Flags().IntVar(&syncWorkers, "workers", 0, "override sync.workers from the config")
}

func runSync(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadRuntime()
	if err != nil {
		return err
	}
	defer logger.Sync()

	if syncWorkers > 0 {
		cfg.Sync.Workers = syncWorkers
	}

	table, err := mapper.LoadTable(cfg.Sync.MappingPath)
	if err != nil {
		return fmt.Errorf("failed to load classification mapping: %w", err)
	}
	codeFilter := cfg.Sync.CodeFilter
	if len(codeFilter) == 0 {
		// No explicit filter: sync everything the mapping table covers.
		codeFilter = table.Codes()
	}

	var stateStore store.StateStore
	if dryRun {
		stateStore = store.NewMemoryStateStore()
	} else {
		stateStore, err = openStateStore(cfg, logger)
		if err != nil {
			return fmt.Errorf("failed to open state store: %w", err)
		}
	}
	defer stateStore.Close()

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	if cfg.Metrics.Enabled && !dryRun {
		metricsServer := server.NewMetricsServer(
			&server.MetricsServerConfig{Port: cfg.Metrics.Port},
			registry, stateStore, logger,
		)
		if err := metricsServer.Start(); err != nil {
			return fmt.Errorf("failed to start metrics server: %w", err)
		}
		defer metricsServer.Stop()
	}

	var source client.SourceClient = newQonicClient(cfg, logger)
	var target client.TargetClient = newMaximoClient(cfg, logger)
	if dryRun {
		source = &dryRunSource{SourceClient: source, logger: logger}
		target = &dryRunTarget{logger: logger}
	}

	classMapper := mapper.New(table, cfg.Maximo.OrgID, logger)
	locations := mapper.NewLocationBuilder(cfg.Maximo.SiteID, cfg.Maximo.OrgID, cfg.Maximo.SystemID)
	translator := mapper.NewAssetTranslator(classMapper, cfg.Maximo.SiteID, cfg.Maximo.OrgID, logger)
	resolver := service.NewHierarchyResolver(source, stateStore, logger)

	syncSvc := service.NewSyncService(
		source, target, stateStore, resolver, locations, translator,
		service.SyncConfig{
			RootParentID:  cfg.Maximo.RootParentID,
			Workers:       cfg.Sync.Workers,
			QueueSize:     cfg.Sync.QueueSize,
			ProgressEvery: cfg.Sync.ProgressEvery,
			Filter: model.AssetFilter{
				Properties: cfg.Sync.Filters,
				Codes:      codeFilter,
			},
		},
		m, logger,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := syncSvc.Run(ctx)
	if err != nil {
		return fmt.Errorf("sync pass failed: %w", err)
	}

	logger.Info("Sync pass finished",
		zap.String("run_id", report.RunID),
		zap.Duration("duration", report.Duration),
		zap.Int("assets_total", report.AssetsTotal),
		zap.Int("assets_created", report.AssetsCreated),
		zap.Int("assets_skipped", report.AssetsSkipped),
		zap.Int("assets_failed", report.AssetsFailed),
		zap.Int("locations_created", report.LocationsCreated),
		zap.Int("writebacks_failed", report.WriteBacksFailed))

	for _, f := range report.Failures {
		logger.Warn("Record failed",
			zap.String("type", string(f.Type)),
			zap.String("id", f.ID),
			zap.String("reason", f.Reason))
	}

	if report.AssetsFailed > 0 || report.WriteBacksFailed > 0 {
		return fmt.Errorf("%d assets and %d write-backs failed", report.AssetsFailed, report.WriteBacksFailed)
	}
	return nil
}

// dryRunTarget acknowledges every create without calling Maximo. Location
// and asset identifiers are echoed from the payload so the hierarchy
// resolution still exercises the real code paths.
type dryRunTarget struct {
	logger *zap.Logger
}

var _ client.TargetClient = (*dryRunTarget)(nil)

func (t *dryRunTarget) CreateLocation(ctx context.Context, payload *model.LocationPayload) (string, error) {
	t.logger.Info("Dry run: would create location",
		zap.String("location", payload.Location),
		zap.String("parent", payload.Parent))
	return payload.Location, nil
}

func (t *dryRunTarget) CreateAsset(ctx context.Context, payload *model.AssetPayload) (string, error) {
	t.logger.Info("Dry run: would create asset",
		zap.String("description", payload.Description),
		zap.String("location", payload.Location))
	return "DRYRUN-" + payload.BimIfcGUID, nil
}

func (t *dryRunTarget) DeleteLocation(ctx context.Context, locationID string) error {
	return nil
}

func (t *dryRunTarget) DeleteAsset(ctx context.Context, assetID string) error {
	return nil
}

// dryRunSource reads from the real source but swallows write-backs.
type dryRunSource struct {
	client.SourceClient
	logger *zap.Logger
}

func (s *dryRunSource) UpdateAssetLinks(ctx context.Context, links []model.AssetLink) ([]client.WriteBackError, error) {
	s.logger.Info("Dry run: would write back identifiers", zap.Int("assets", len(links)))
	return nil, nil
}
