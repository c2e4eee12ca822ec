package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/marmos91/clusterfs/pkg/adapter/tcp"
	"github.com/spf13/viper"
)

// Config represents the complete clusterfs configuration.
//
// Configuration sources (in order of precedence):
//  1. CLI flags (highest priority)
//  2. Environment variables (CLUSTERFS_*)
//  3. Configuration file (YAML)
//  4. Default values (lowest priority)
//
// Store Configuration Pattern:
// Each content store backend defines its own options. The Content section
// holds one map per backend and only the map matching Type is decoded.
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging"`

	// Server contains server-wide settings
	Server ServerConfig `mapstructure:"server"`

	// Disk describes the simulated disk geometry
	Disk DiskConfig `mapstructure:"disk"`

	// Content specifies the content store type and type-specific configuration
	Content ContentConfig `mapstructure:"content"`

	// Adapters contains protocol adapter configurations
	Adapters AdaptersConfig `mapstructure:"adapters"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive, normalized to uppercase)
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`

	// Format specifies the log output format
	// Valid values: text, json
	Format string `mapstructure:"format" validate:"required,oneof=text json"`

	// Output specifies where logs are written
	// Valid values: stdout, stderr, or a file path
	Output string `mapstructure:"output" validate:"required"`
}

// ServerConfig contains server-wide settings.
type ServerConfig struct {
	// ShutdownTimeout is the maximum time to wait for graceful shutdown
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0"`

	// Metrics configures the Prometheus endpoint
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// MetricsConfig controls the Prometheus metrics HTTP server.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`

	// Port of the metrics HTTP server
	Port int `mapstructure:"port" validate:"min=0,max=65535"`
}

// DiskConfig describes the block pool. These values are fixed for the
// lifetime of the process.
type DiskConfig struct {
	// BlockSize is the size of one block in bytes
	BlockSize int `mapstructure:"block_size" validate:"gt=0"`

	// NumBlocks is the number of blocks in the pool
	NumBlocks int `mapstructure:"num_blocks" validate:"gt=0"`

	// Alphabet is the pool of single-character file identifiers.
	// It also bounds the number of files stored at once.
	Alphabet string `mapstructure:"alphabet" validate:"required,printascii,excludesall=.,max=255"`

	// ResetOnStart wipes the content store at startup. When false, blobs
	// left by a previous run are registered again.
	ResetOnStart bool `mapstructure:"reset_on_start"`
}

// ContentConfig specifies content store configuration.
//
// The Type field determines which store implementation is used.
// Only the corresponding type-specific configuration section is used.
type ContentConfig struct {
	// Type specifies which content store implementation to use
	// Valid values: filesystem, memory, s3, badger
	Type string `mapstructure:"type" validate:"required,oneof=filesystem memory s3 badger"`

	// Filesystem contains filesystem-specific configuration
	// Only used when Type = "filesystem"
	Filesystem map[string]any `mapstructure:"filesystem"`

	// Memory contains memory-specific configuration
	// Only used when Type = "memory"
	Memory map[string]any `mapstructure:"memory"`

	// S3 contains S3-specific configuration
	// Only used when Type = "s3"
	S3 map[string]any `mapstructure:"s3"`

	// Badger contains BadgerDB-specific configuration
	// Only used when Type = "badger"
	Badger map[string]any `mapstructure:"badger"`

	// Cache keeps recently used blobs in memory in front of the backend
	Cache CacheConfig `mapstructure:"cache"`
}

// CacheConfig configures the in-memory read cache.
type CacheConfig struct {
	// Enabled wraps the content store with the cache
	Enabled bool `mapstructure:"enabled"`

	// MaxBytes bounds the cached payload (default: 64MiB)
	MaxBytes int64 `mapstructure:"max_bytes" validate:"gte=0"`
}

// AdaptersConfig contains all protocol adapter configurations.
type AdaptersConfig struct {
	// TCP contains the disk protocol listener configuration.
	// Uses the tcp.Config type directly to avoid duplication.
	TCP tcp.Config `mapstructure:"tcp"`
}

// Load loads configuration from file, environment, and defaults.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (CLUSTERFS_*)
//  2. Configuration file
//  3. Default values
//
// Parameters:
//   - configPath: Path to config file (empty string uses default location)
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: Configuration loading or validation error
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setupViper(v, configPath)

	if err := readConfigFile(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// setupViper configures viper with environment variables and config file settings.
func setupViper(v *viper.Viper, configPath string) {
	// Environment variables use the CLUSTERFS_ prefix and underscores
	// Example: CLUSTERFS_LOGGING_LEVEL=DEBUG
	v.SetEnvPrefix("CLUSTERFS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Registering every scalar key lets env overrides work without a file
	registerDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Default location: $XDG_CONFIG_HOME/clusterfs/config.yaml
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// registerDefaults seeds viper with the default value of every scalar key.
func registerDefaults(v *viper.Viper) {
	cfg := GetDefaultConfig()

	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)
	v.SetDefault("logging.output", cfg.Logging.Output)

	v.SetDefault("server.shutdown_timeout", cfg.Server.ShutdownTimeout)
	v.SetDefault("server.metrics.enabled", cfg.Server.Metrics.Enabled)
	v.SetDefault("server.metrics.port", cfg.Server.Metrics.Port)

	v.SetDefault("disk.block_size", cfg.Disk.BlockSize)
	v.SetDefault("disk.num_blocks", cfg.Disk.NumBlocks)
	v.SetDefault("disk.alphabet", cfg.Disk.Alphabet)
	v.SetDefault("disk.reset_on_start", cfg.Disk.ResetOnStart)

	v.SetDefault("content.type", cfg.Content.Type)
	v.SetDefault("content.cache.enabled", cfg.Content.Cache.Enabled)
	v.SetDefault("content.cache.max_bytes", cfg.Content.Cache.MaxBytes)

	tcpCfg := cfg.Adapters.TCP
	v.SetDefault("adapters.tcp.enabled", tcpCfg.Enabled)
	v.SetDefault("adapters.tcp.port", tcpCfg.Port)
	v.SetDefault("adapters.tcp.max_connections", tcpCfg.MaxConnections)
	v.SetDefault("adapters.tcp.timeouts.read", tcpCfg.Timeouts.Read)
	v.SetDefault("adapters.tcp.timeouts.write", tcpCfg.Timeouts.Write)
	v.SetDefault("adapters.tcp.timeouts.idle", tcpCfg.Timeouts.Idle)
	v.SetDefault("adapters.tcp.timeouts.shutdown", tcpCfg.Timeouts.Shutdown)
	v.SetDefault("adapters.tcp.metrics_log_interval", tcpCfg.MetricsLogInterval)
	v.SetDefault("adapters.tcp.max_line_length", tcpCfg.MaxLineLength)
	v.SetDefault("adapters.tcp.rate_limit.requests_per_second", tcpCfg.RateLimit.RequestsPerSecond)
	v.SetDefault("adapters.tcp.rate_limit.burst", tcpCfg.RateLimit.Burst)
}

// readConfigFile reads the configuration file if it exists.
func readConfigFile(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		// A missing file at the default location means defaults only
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	return nil
}

// getConfigDir returns the configuration directory path.
//
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config, or falls back to current
// directory (.) if home directory cannot be determined.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "clusterfs")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", "clusterfs")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// ConfigExists checks if a config file exists at the default location.
func ConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}

// GetConfigDir returns the configuration directory path (exposed for init command).
func GetConfigDir() string {
	return getConfigDir()
}
