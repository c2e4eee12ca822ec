package config

import (
	"strings"
	"time"

	"github.com/marmos91/clusterfs/pkg/adapter/tcp"
	"github.com/marmos91/clusterfs/pkg/alloc"
	"github.com/marmos91/clusterfs/pkg/store/content/cache"
)

// DefaultStoragePath is where the filesystem content store keeps blobs.
const DefaultStoragePath = ".storage"

// DefaultMetricsPort is the port of the Prometheus HTTP server.
const DefaultMetricsPort = 9090

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// This function is called after loading configuration from file and environment
// variables to fill in any missing values with sensible defaults.
//
// Default Strategy:
//   - Zero values (0, "", nil) are replaced with defaults
//   - Explicit values are preserved
//   - Booleans are left alone; their defaults come from GetDefaultConfig
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyServerDefaults(&cfg.Server)
	applyDiskDefaults(&cfg.Disk)
	applyContentDefaults(&cfg.Content)
	applyAdaptersDefaults(&cfg.Adapters)
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	// Normalize log level to uppercase for consistent internal representation
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

// applyServerDefaults sets server defaults.
func applyServerDefaults(cfg *ServerConfig) {
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
	if cfg.Metrics.Port == 0 {
		cfg.Metrics.Port = DefaultMetricsPort
	}
}

// applyDiskDefaults sets the block pool geometry defaults.
func applyDiskDefaults(cfg *DiskConfig) {
	if cfg.BlockSize == 0 {
		cfg.BlockSize = alloc.DefaultBlockSize
	}
	if cfg.NumBlocks == 0 {
		cfg.NumBlocks = alloc.DefaultNumBlocks
	}
	if cfg.Alphabet == "" {
		cfg.Alphabet = alloc.DefaultAlphabet
	}
}

// applyContentDefaults sets content store defaults.
func applyContentDefaults(cfg *ContentConfig) {
	if cfg.Type == "" {
		cfg.Type = "filesystem"
	}

	if cfg.Filesystem == nil {
		cfg.Filesystem = make(map[string]any)
	}
	if cfg.Memory == nil {
		cfg.Memory = make(map[string]any)
	}
	if cfg.S3 == nil {
		cfg.S3 = make(map[string]any)
	}
	if cfg.Badger == nil {
		cfg.Badger = make(map[string]any)
	}

	if _, ok := cfg.Filesystem["path"]; !ok {
		cfg.Filesystem["path"] = DefaultStoragePath
	}
	if _, ok := cfg.Badger["db_path"]; !ok {
		cfg.Badger["db_path"] = ".storage-badger"
	}

	if cfg.Cache.MaxBytes == 0 {
		cfg.Cache.MaxBytes = cache.DefaultMaxBytes
	}
}

// applyAdaptersDefaults sets adapter defaults.
func applyAdaptersDefaults(cfg *AdaptersConfig) {
	cfg.TCP.ApplyDefaults()
}

// GetDefaultConfig returns a Config struct with all default values applied.
//
// This is used for generating sample config files and as the base of the
// viper defaults, so boolean defaults that differ from false live here.
func GetDefaultConfig() *Config {
	cfg := &Config{
		Disk: DiskConfig{
			ResetOnStart: true,
		},
		Adapters: AdaptersConfig{
			TCP: tcp.Config{
				Enabled: true,
				Port:    tcp.DefaultPort,
			},
		},
	}

	ApplyDefaults(cfg)

	return cfg
}
