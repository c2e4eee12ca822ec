package config

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/marmos91/clusterfs/internal/logger"
	"github.com/marmos91/clusterfs/pkg/alloc"
	"github.com/marmos91/clusterfs/pkg/disk"
	"github.com/marmos91/clusterfs/pkg/metrics"
	"github.com/marmos91/clusterfs/pkg/store/content"
	contentBadger "github.com/marmos91/clusterfs/pkg/store/content/badger"
	"github.com/marmos91/clusterfs/pkg/store/content/cache"
	contentFs "github.com/marmos91/clusterfs/pkg/store/content/fs"
	contentMemory "github.com/marmos91/clusterfs/pkg/store/content/memory"
	contentS3 "github.com/marmos91/clusterfs/pkg/store/content/s3"
	"github.com/mitchellh/mapstructure"
)

// PoolConfig converts the disk section into the allocator geometry.
func (c DiskConfig) PoolConfig() alloc.PoolConfig {
	return alloc.PoolConfig{
		BlockSize: c.BlockSize,
		NumBlocks: c.NumBlocks,
		Alphabet:  c.Alphabet,
	}
}

// CreateContentStore creates a content store based on configuration.
//
// This factory function uses the Type field to determine which store implementation
// to create, then decodes the type-specific configuration from the corresponding
// map and passes it to the store's constructor.
//
// Supported types:
//   - "filesystem": pkg/store/content/fs (one file per blob in a local directory)
//   - "memory": pkg/store/content/memory (ephemeral)
//   - "s3": pkg/store/content/s3 (Amazon S3 or compatible storage)
//   - "badger": pkg/store/content/badger (embedded BadgerDB)
//
// Parameters:
//   - ctx: Context for initialization operations
//   - cfg: Content store configuration
//   - s3Metrics: Optional S3 metrics collector (nil = no metrics)
//   - cacheMetrics: Optional read cache metrics collector (nil = no metrics)
//
// When cfg.Cache.Enabled is set the backend is wrapped with the read cache.
//
// Returns:
//   - content.ContentStore: Initialized content store
//   - error: Configuration or initialization error
func CreateContentStore(ctx context.Context, cfg *ContentConfig, s3Metrics contentS3.S3Metrics, cacheMetrics cache.CacheMetrics) (content.ContentStore, error) {
	var (
		store content.ContentStore
		err   error
	)

	switch cfg.Type {
	case "filesystem":
		store, err = createFilesystemContentStore(ctx, cfg.Filesystem)
	case "memory":
		store, err = createMemoryContentStore(ctx)
	case "s3":
		store, err = createS3ContentStore(ctx, cfg.S3, s3Metrics)
	case "badger":
		store, err = createBadgerContentStore(ctx, cfg.Badger)
	default:
		return nil, fmt.Errorf("unknown content store type: %q", cfg.Type)
	}
	if err != nil {
		return nil, err
	}

	if !cfg.Cache.Enabled {
		return store, nil
	}

	cached, err := cache.New(store, cache.Config{
		MaxBytes: cfg.Cache.MaxBytes,
		Metrics:  cacheMetrics,
	})
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	logger.Info("Content cache enabled: max_bytes=%d", cfg.Cache.MaxBytes)

	return cached, nil
}

// CreateDisk opens the simulated disk over store using the disk section.
func CreateDisk(ctx context.Context, cfg *Config, store content.ContentStore, diskMetrics metrics.DiskMetrics) (*disk.Disk, error) {
	return disk.Open(ctx, disk.Config{
		Pool:         cfg.Disk.PoolConfig(),
		ResetOnStart: cfg.Disk.ResetOnStart,
	}, store, diskMetrics)
}

// decodeOptions decodes a backend option map. Values coming from env
// overrides or hand-written YAML may be strings, so decoding is weak.
func decodeOptions(options map[string]any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(options)
}

// createFilesystemContentStore creates a filesystem-based content store.
func createFilesystemContentStore(ctx context.Context, options map[string]any) (content.ContentStore, error) {
	type FilesystemContentStoreConfig struct {
		Path string `mapstructure:"path"`
	}

	var storeCfg FilesystemContentStoreConfig
	if err := decodeOptions(options, &storeCfg); err != nil {
		return nil, fmt.Errorf("failed to decode filesystem content store config: %w", err)
	}

	if storeCfg.Path == "" {
		return nil, fmt.Errorf("filesystem content store: path is required")
	}

	store, err := contentFs.NewFSContentStore(ctx, storeCfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to create filesystem content store: %w", err)
	}

	return store, nil
}

// createMemoryContentStore creates an in-memory content store. It takes no
// options; everything is lost when the process exits.
func createMemoryContentStore(ctx context.Context) (content.ContentStore, error) {
	store, err := contentMemory.NewMemoryContentStore(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create memory content store: %w", err)
	}
	return store, nil
}

// createBadgerContentStore creates a BadgerDB-backed content store.
func createBadgerContentStore(ctx context.Context, options map[string]any) (content.ContentStore, error) {
	type BadgerYAMLConfig struct {
		DBPath           string `mapstructure:"db_path"`
		InMemory         bool   `mapstructure:"in_memory"`
		BlockCacheSizeMB int64  `mapstructure:"block_cache_size_mb"`
	}

	var storeCfg BadgerYAMLConfig
	if err := decodeOptions(options, &storeCfg); err != nil {
		return nil, fmt.Errorf("failed to decode badger content store config: %w", err)
	}

	store, err := contentBadger.NewBadgerContentStore(ctx, contentBadger.BadgerContentStoreConfig{
		DBPath:           storeCfg.DBPath,
		InMemory:         storeCfg.InMemory,
		BlockCacheSizeMB: storeCfg.BlockCacheSizeMB,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create badger content store: %w", err)
	}

	return store, nil
}

// s3YAMLConfig represents S3 configuration loaded from YAML files.
type s3YAMLConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	Region          string `mapstructure:"region"`
	Bucket          string `mapstructure:"bucket"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	KeyPrefix       string `mapstructure:"key_prefix"`
	ForcePathStyle  bool   `mapstructure:"force_path_style"`
	MaxRetries      int    `mapstructure:"max_retries"`
}

// createS3ContentStore creates an S3-based content store.
func createS3ContentStore(ctx context.Context, options map[string]any, s3Metrics contentS3.S3Metrics) (content.ContentStore, error) {
	var storeCfg s3YAMLConfig
	if err := decodeOptions(options, &storeCfg); err != nil {
		return nil, fmt.Errorf("failed to decode S3 content store config: %w", err)
	}

	if storeCfg.Bucket == "" {
		return nil, fmt.Errorf("S3 content store: bucket is required")
	}

	if storeCfg.Region == "" {
		return nil, fmt.Errorf("S3 content store: region is required")
	}

	// ========================================================================
	// Step 1: Build AWS Config
	// ========================================================================

	configOptions := []func(*awsConfig.LoadOptions) error{
		awsConfig.WithRegion(storeCfg.Region),
	}

	// Static credentials if provided, otherwise the default credential chain
	if storeCfg.AccessKeyID != "" && storeCfg.SecretAccessKey != "" {
		credProvider := credentials.NewStaticCredentialsProvider(
			storeCfg.AccessKeyID,
			storeCfg.SecretAccessKey,
			"",
		)
		configOptions = append(configOptions, awsConfig.WithCredentialsProvider(credProvider))
	}

	maxRetries := storeCfg.MaxRetries
	if maxRetries == 0 {
		maxRetries = 10
	}
	configOptions = append(configOptions, awsConfig.WithRetryer(func() aws.Retryer {
		return retry.NewStandard(func(o *retry.StandardOptions) {
			o.MaxAttempts = maxRetries
		})
	}))

	awsCfg, err := awsConfig.LoadDefaultConfig(ctx, configOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	// ========================================================================
	// Step 2: Create S3 Client
	// ========================================================================

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		// Custom endpoints (MinIO, Localstack) need path-style addressing
		if storeCfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(storeCfg.Endpoint)
			o.UsePathStyle = true
		}
		if storeCfg.ForcePathStyle {
			o.UsePathStyle = true
		}
	})

	// ========================================================================
	// Step 3: Create S3 Content Store
	// ========================================================================

	store, err := contentS3.NewS3ContentStore(ctx, contentS3.S3ContentStoreConfig{
		Client:    client,
		Bucket:    storeCfg.Bucket,
		KeyPrefix: storeCfg.KeyPrefix,
		Metrics:   s3Metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 content store: %w", err)
	}

	logger.Info("S3 content store initialized: bucket=%s, region=%s, prefix=%s",
		storeCfg.Bucket, storeCfg.Region, storeCfg.KeyPrefix)

	return store, nil
}
