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

	"github.com/brucargo/qmsync/internal/metrics"
	"github.com/brucargo/qmsync/internal/service"
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete every record a previous sync created in Maximo",
	Long: `Walks the sync state store and deletes the recorded Maximo records
in reverse dependency order: assets first, then locations leaf-before-parent.
Entries whose delete fails stay in the store, so rerunning cleanup retries
only what is left.`,
	RunE: runCleanup,
}

func runCleanup(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadRuntime()
	if err != nil {
		return err
	}
	defer logger.Sync()

	stateStore, err := openStateStore(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to open state store: %w", err)
	}
	defer stateStore.Close()

	m := metrics.New(prometheus.NewRegistry())
	target := newMaximoClient(cfg, logger)

	cleanupSvc := service.NewCleanupService(target, stateStore, cfg.Maximo.RootParentID, m, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := cleanupSvc.Run(ctx)
	if err != nil {
		return fmt.Errorf("cleanup failed: %w", err)
	}

	logger.Info("Cleanup finished",
		zap.Int("assets_deleted", report.AssetsDeleted),
		zap.Int("locations_deleted", report.LocationsDeleted),
		zap.Int("assets_failed", report.AssetsFailed),
		zap.Int("locations_skipped", report.LocationsSkipped),
		zap.Int("locations_failed", report.LocationsFailed))

	for _, f := range report.Failures {
		logger.Warn("Delete failed",
			zap.String("type", string(f.Type)),
			zap.String("id", f.ID),
			zap.String("reason", f.Reason))
	}

	if report.AssetsFailed > 0 || report.LocationsFailed > 0 {
		return fmt.Errorf("%d assets and %d locations could not be deleted", report.AssetsFailed, report.LocationsFailed)
	}
	return nil
}
