package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/brucargo/qmsync/internal/client"
	"github.com/brucargo/qmsync/internal/config"
	"github.com/brucargo/qmsync/internal/logging"
	"github.com/brucargo/qmsync/internal/store"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "qmsync",
	Short: "One-way sync of model locations and assets into Maximo",
	Long: `qmsync pushes a building model's spatial hierarchy and assets from
Qonic into IBM Maximo, records every created record in a durable state
store so reruns are idempotent, and writes the assigned Maximo
identifiers back onto the source assets. The cleanup command reverses
a sync by deleting everything the state store knows about.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file (default ./qmsync.yaml)")
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(cleanupCmd)
}

// loadRuntime loads configuration and builds the logger shared by all
// subcommands.
func loadRuntime() (*config.Config, *zap.Logger, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, nil, err
	}

	logger, err := logging.NewLogger(cfg.Logging)
	if err != nil {
		return nil, nil, err
	}

	return cfg, logger, nil
}

// openStateStore opens the configured state store backend.
func openStateStore(cfg *config.Config, logger *zap.Logger) (store.StateStore, error) {
	switch cfg.State.Backend {
	case "sqlite":
		return store.NewSQLiteStateStore(cfg.State.SQLite.Path, logger)
	case "postgres":
		pg := cfg.State.Postgres
		return store.NewPostgresStateStore(pg.Host, pg.Port, pg.Database, pg.User, pg.Password, pg.MaxConnections, logger)
	default:
		return nil, fmt.Errorf("unknown state backend %q", cfg.State.Backend)
	}
}

func newMaximoClient(cfg *config.Config, logger *zap.Logger) *client.MaximoClient {
	return client.NewMaximoClient(client.MaximoConfig{
		BaseURL:  cfg.Maximo.APIURL,
		APIKey:   cfg.Maximo.APIKey,
		SiteID:   cfg.Maximo.SiteID,
		OrgID:    cfg.Maximo.OrgID,
		SystemID: cfg.Maximo.SystemID,
		Timeout:  cfg.Maximo.Timeout,
	}, logger)
}

func newQonicClient(cfg *config.Config, logger *zap.Logger) *client.QonicClient {
	return client.NewQonicClient(client.QonicConfig{
		BaseURL:   cfg.Qonic.APIURL,
		ProjectID: cfg.Qonic.ProjectID,
		ModelID:   cfg.Qonic.ModelID,
		Timeout:   cfg.Qonic.Timeout,
	}, client.NewStaticTokenSource(cfg.Qonic.Token), logger)
}
