// Package config loads tracedemo's host configuration: viper binds
// flags/env/a YAML file onto a mapstructure'd Config, matching the
// teacher's internal/config.LoadConfig. Unlike internal/config's single
// monolithic app config, tracedemo's surface is small enough to need
// only logging/server/workload/storage sections.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config is tracedemo's full configuration tree.
type Config struct {
	Logging  LoggingConfig  `mapstructure:"logging"`
	Server   ServerConfig   `mapstructure:"server"`
	Workload WorkloadConfig `mapstructure:"workload"`
	Storage  StorageConfig  `mapstructure:"storage"`
}

// LoggingConfig configures the shared logger built via pkg/logger.NewLogger.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	Filename   string `mapstructure:"filename"`
	MaxSize    int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// ServerConfig configures the HTTP/websocket live-reporter endpoint.
type ServerConfig struct {
	Addr              string        `mapstructure:"addr"`
	BroadcastRatePerS float64       `mapstructure:"broadcast_rate_per_s"`
	BroadcastBurst    int           `mapstructure:"broadcast_burst"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
}

// WorkloadConfig configures the simulated traced workload.
type WorkloadConfig struct {
	Interval   time.Duration `mapstructure:"interval"`
	MaxDepth   int           `mapstructure:"max_depth"`
	ReporterID string        `mapstructure:"reporter_id"`
}

// StorageConfig selects and configures the durable writer(s), mirroring
// the teacher's StorageConfig.Backend switch between filesystem and
// Postgres-backed profiles.
type StorageConfig struct {
	OutputDirectory string `mapstructure:"output_directory"`

	Postgres StorageBackendPostgres `mapstructure:"postgres"`
	SQLite   StorageBackendSQLite   `mapstructure:"sqlite"`
}

// StorageBackendPostgres is empty-DSN-means-disabled, same convention
// the teacher uses for optional Redis (internal/config's Redis.Addr).
type StorageBackendPostgres struct {
	DSN string `mapstructure:"dsn"`
}

// StorageBackendSQLite is empty-Path-means-disabled.
type StorageBackendSQLite struct {
	Path string `mapstructure:"path"`
}

// Load reads configuration from (in ascending priority) built-in
// defaults, an optional YAML file at configPath, and environment
// variables prefixed TRACEDEMO_ (e.g. TRACEDEMO_SERVER_ADDR).
func Load(configPath string) (*Config, error) {
	setDefaults()

	viper.SetEnvPrefix("tracedemo")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if configPath != "" {
		viper.SetConfigFile(configPath)
		viper.SetConfigType("yaml")
		if err := viper.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("config: reading %s: %w", configPath, err)
			}
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshaling: %w", err)
	}
	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.output", "stdout")

	viper.SetDefault("server.addr", ":8089")
	viper.SetDefault("server.broadcast_rate_per_s", 50.0)
	viper.SetDefault("server.broadcast_burst", 20)
	viper.SetDefault("server.write_timeout", "5s")

	viper.SetDefault("workload.interval", "500ms")
	viper.SetDefault("workload.max_depth", 3)
	viper.SetDefault("workload.reporter_id", "tracedemo")

	viper.SetDefault("storage.output_directory", "./tracedemo-output")
}

// WriteExample renders cfg as YAML, used by `tracedemo config example`
// to print a starter file — a secondary format alongside viper's own
// bindings, matching internal/config/example.go's role for the teacher.
func WriteExample(cfg Config) ([]byte, error) {
	return yaml.Marshal(cfg)
}
