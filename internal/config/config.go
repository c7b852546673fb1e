package config

import (
	"errors"
	"time"
)

// Config represents the sync service configuration
type Config struct {
	Qonic   QonicConfig   `mapstructure:"qonic"`
	Maximo  MaximoConfig  `mapstructure:"maximo"`
	Sync    SyncConfig    `mapstructure:"sync"`
	State   StateConfig   `mapstructure:"state"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// QonicConfig represents the source system connection
type QonicConfig struct {
	APIURL    string        `mapstructure:"api_url"`
	ProjectID string        `mapstructure:"project_id"`
	ModelID   string        `mapstructure:"model_id"`
	Token     string        `mapstructure:"token"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// MaximoConfig represents the target system connection and the fixed
// organizational identifiers every created record carries
type MaximoConfig struct {
	APIURL       string        `mapstructure:"api_url"`
	APIKey       string        `mapstructure:"api_key"`
	OrgID        string        `mapstructure:"org_id"`
	SiteID       string        `mapstructure:"site_id"`
	SystemID     string        `mapstructure:"system_id"`
	RootParentID string        `mapstructure:"root_parent_id"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

// SyncConfig represents sync pass behavior
type SyncConfig struct {
	Workers       int               `mapstructure:"workers"`
	QueueSize     int               `mapstructure:"queue_size"`
	ProgressEvery int               `mapstructure:"progress_every"`
	MappingPath   string            `mapstructure:"mapping_path"`
	CodeFilter    []string          `mapstructure:"code_filter"`
	Filters       map[string]string `mapstructure:"filters"`
}

// StateConfig represents the sync state store backend
type StateConfig struct {
	Backend  string         `mapstructure:"backend"` // sqlite or postgres
	SQLite   SQLiteConfig   `mapstructure:"sqlite"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

// SQLiteConfig represents the file-backed state store
type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

// PostgresConfig represents the shared state store
type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
}

// MetricsConfig represents the Prometheus metrics endpoint
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Qonic.APIURL == "" {
		return errors.New("qonic.api_url is required")
	}
	if c.Qonic.ProjectID == "" {
		return errors.New("qonic.project_id is required")
	}
	if c.Qonic.ModelID == "" {
		return errors.New("qonic.model_id is required")
	}
	if c.Maximo.APIURL == "" {
		return errors.New("maximo.api_url is required")
	}
	if c.Maximo.OrgID == "" {
		return errors.New("maximo.org_id is required")
	}
	if c.Maximo.SiteID == "" {
		return errors.New("maximo.site_id is required")
	}
	if c.Sync.MappingPath == "" {
		return errors.New("sync.mapping_path is required")
	}
	switch c.State.Backend {
	case "sqlite":
		if c.State.SQLite.Path == "" {
			return errors.New("state.sqlite.path is required")
		}
	case "postgres":
		if c.State.Postgres.Host == "" {
			return errors.New("state.postgres.host is required")
		}
		if c.State.Postgres.Database == "" {
			return errors.New("state.postgres.database is required")
		}
		if c.State.Postgres.User == "" {
			return errors.New("state.postgres.user is required")
		}
	default:
		return errors.New("state.backend must be one of: sqlite, postgres")
	}
	if c.Metrics.Enabled && (c.Metrics.Port <= 0 || c.Metrics.Port > 65535) {
		return errors.New("metrics.port must be between 1 and 65535")
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
	return nil
}

// DefaultConfig returns default configuration values
func DefaultConfig() *Config {
	return &Config{
		Qonic: QonicConfig{
			Timeout: 60 * time.Second,
		},
		Maximo: MaximoConfig{
			SystemID:     "PRIMARY",
			RootParentID: "BUILDINGS",
			Timeout:      60 * time.Second,
		},
		Sync: SyncConfig{
			Workers:       1,
			QueueSize:     64,
			ProgressEvery: 100,
			MappingPath:   "./mapping.yaml",
		},
		State: StateConfig{
			Backend: "sqlite",
			SQLite: SQLiteConfig{
				Path: "./qmsync-state.db",
			},
			Postgres: PostgresConfig{
				Port:           5432,
				MaxConnections: 4,
			},
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Port:    9091,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}
