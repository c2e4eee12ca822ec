package e2e

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/marmos91/clusterfs/pkg/config"
	"github.com/marmos91/clusterfs/pkg/store/content"
)

// ContentStoreType represents the type of content store
type ContentStoreType string

const (
	ContentMemory     ContentStoreType = "memory"
	ContentFilesystem ContentStoreType = "filesystem"
	ContentBadger     ContentStoreType = "badger"
	ContentS3         ContentStoreType = "s3"
)

// TestConfig holds the configuration for a test run
type TestConfig struct {
	Name         string
	ContentStore ContentStoreType

	// Cached wraps the backend with the in-memory read cache
	Cached bool

	// Disk geometry; zero values select the server defaults
	BlockSize int
	NumBlocks int
	Alphabet  string

	// S3-specific fields (set by localstack setup)
	s3Endpoint string
	s3Bucket   string
	s3Client   *s3.Client
}

// String returns a string representation of the configuration
func (tc *TestConfig) String() string {
	if tc.Cached {
		return string(tc.ContentStore) + "+cache"
	}
	return string(tc.ContentStore)
}

// ContentConfig builds the content section the server would load from
// its configuration file, keeping persistent backends under dataDir.
func (tc *TestConfig) ContentConfig(dataDir string) (*config.ContentConfig, error) {
	cfg := &config.ContentConfig{
		Type:  string(tc.ContentStore),
		Cache: config.CacheConfig{Enabled: tc.Cached, MaxBytes: 1 << 20},
	}

	switch tc.ContentStore {
	case ContentMemory:

	case ContentFilesystem:
		cfg.Filesystem = map[string]any{"path": dataDir}

	case ContentBadger:
		cfg.Badger = map[string]any{"db_path": filepath.Join(dataDir, "badger")}

	case ContentS3:
		if tc.s3Client == nil {
			return nil, fmt.Errorf("S3 client not initialized (localstack not running?)")
		}
		cfg.S3 = map[string]any{
			"endpoint":          tc.s3Endpoint,
			"region":            "us-east-1",
			"bucket":            tc.s3Bucket,
			"access_key_id":     "test",
			"secret_access_key": "test",
			"key_prefix":        "e2e/",
			"force_path_style":  true,
		}

	default:
		return nil, fmt.Errorf("unknown content store type: %s", tc.ContentStore)
	}

	return cfg, nil
}

// CreateContentStore creates a content store through the same factory the
// server binary uses.
func (tc *TestConfig) CreateContentStore(ctx context.Context, dataDir string) (content.ContentStore, error) {
	cfg, err := tc.ContentConfig(dataDir)
	if err != nil {
		return nil, err
	}
	return config.CreateContentStore(ctx, cfg, nil, nil)
}

// AllConfigurations returns all test configurations to run
func AllConfigurations() []*TestConfig {
	return []*TestConfig{
		{Name: "memory", ContentStore: ContentMemory},
		{Name: "filesystem", ContentStore: ContentFilesystem},
		{Name: "badger", ContentStore: ContentBadger},
		{Name: "filesystem-cached", ContentStore: ContentFilesystem, Cached: true},
	}
}

// PersistentConfigurations returns configurations whose data survives a
// server restart.
func PersistentConfigurations() []*TestConfig {
	return []*TestConfig{
		{Name: "filesystem", ContentStore: ContentFilesystem},
		{Name: "badger", ContentStore: ContentBadger},
	}
}

// S3Configurations returns configurations that use S3 (requires localstack)
func S3Configurations() []*TestConfig {
	return []*TestConfig{
		{Name: "s3", ContentStore: ContentS3},
		{Name: "s3-cached", ContentStore: ContentS3, Cached: true},
	}
}
