package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// LoadConfig loads configuration from a file and environment variables.
// Environment variables use the QMSYNC_ prefix with underscores for
// nesting, e.g. QMSYNC_MAXIMO_API_KEY overrides maximo.api_key.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	config := DefaultConfig()
	setDefaults(v, config)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("qmsync")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/qmsync")
	}

	v.SetEnvPrefix("QMSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

func setDefaults(v *viper.Viper, config *Config) {
	v.SetDefault("qonic.timeout", config.Qonic.Timeout)
	// Secrets are usually supplied via environment; viper only applies an
	// env override to a key it already knows about.
	v.SetDefault("qonic.token", "")
	v.SetDefault("maximo.api_key", "")
	v.SetDefault("maximo.system_id", config.Maximo.SystemID)
	v.SetDefault("maximo.root_parent_id", config.Maximo.RootParentID)
	v.SetDefault("maximo.timeout", config.Maximo.Timeout)
	v.SetDefault("sync.workers", config.Sync.Workers)
	v.SetDefault("sync.queue_size", config.Sync.QueueSize)
	v.SetDefault("sync.progress_every", config.Sync.ProgressEvery)
	v.SetDefault("sync.mapping_path", config.Sync.MappingPath)
	v.SetDefault("state.backend", config.State.Backend)
	v.SetDefault("state.sqlite.path", config.State.SQLite.Path)
	v.SetDefault("state.postgres.port", config.State.Postgres.Port)
	v.SetDefault("state.postgres.max_connections", config.State.Postgres.MaxConnections)
	v.SetDefault("metrics.enabled", config.Metrics.Enabled)
	v.SetDefault("metrics.port", config.Metrics.Port)
	v.SetDefault("logging.level", config.Logging.Level)
	v.SetDefault("logging.format", config.Logging.Format)
}
