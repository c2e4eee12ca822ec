package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// InitConfig writes a sample configuration file to the default location.
//
// Returns the path of the written file. Unless force is set, an existing
// file is left untouched and an error is returned.
func InitConfig(force bool) (string, error) {
	path := GetDefaultConfigPath()
	if err := InitConfigToPath(path, force); err != nil {
		return "", err
	}
	return path, nil
}

// InitConfigToPath writes a sample configuration file to path.
func InitConfigToPath(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file already exists at %s (use --force to overwrite)", path)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := generateYAMLWithComments(GetDefaultConfig())
	if err != nil {
		return fmt.Errorf("failed to generate config: %w", err)
	}

	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// yamlSection is one top-level key of the generated file.
type yamlSection struct {
	key     string
	comment string
	value   any
}

// generateYAMLWithComments renders cfg as YAML with a comment above every
// top-level section. Durations are written in their string form so the
// file stays readable and round-trips through viper.
func generateYAMLWithComments(cfg *Config) (string, error) {
	tcpCfg := cfg.Adapters.TCP

	sections := []yamlSection{
		{
			key:     "logging",
			comment: "Logging: level is DEBUG, INFO, WARN or ERROR; format is text or json;\noutput is stdout, stderr or a file path.",
			value: map[string]any{
				"level":  cfg.Logging.Level,
				"format": cfg.Logging.Format,
				"output": cfg.Logging.Output,
			},
		},
		{
			key:     "server",
			comment: "Server-wide settings. The metrics endpoint serves Prometheus text at /metrics.",
			value: map[string]any{
				"shutdown_timeout": cfg.Server.ShutdownTimeout.String(),
				"metrics": map[string]any{
					"enabled": cfg.Server.Metrics.Enabled,
					"port":    cfg.Server.Metrics.Port,
				},
			},
		},
		{
			key:     "disk",
			comment: "Simulated disk geometry. The alphabet is the pool of one-character file\nidentifiers and bounds how many files can exist at once.",
			value: map[string]any{
				"block_size":     cfg.Disk.BlockSize,
				"num_blocks":     cfg.Disk.NumBlocks,
				"alphabet":       cfg.Disk.Alphabet,
				"reset_on_start": cfg.Disk.ResetOnStart,
			},
		},
		{
			key:     "content",
			comment: "Where file bytes are kept: filesystem, memory, s3 or badger.\nOnly the section matching type is used. cache adds an in-memory read cache.",
			value: map[string]any{
				"type":       cfg.Content.Type,
				"filesystem": cfg.Content.Filesystem,
				"memory":     cfg.Content.Memory,
				"badger":     cfg.Content.Badger,
				"s3": map[string]any{
					"region":   "us-east-1",
					"bucket":   "clusterfs",
					"endpoint": "",
				},
				"cache": map[string]any{
					"enabled":   cfg.Content.Cache.Enabled,
					"max_bytes": cfg.Content.Cache.MaxBytes,
				},
			},
		},
		{
			key:     "adapters",
			comment: "Protocol listeners. A timeout of 0 disables it; a requests_per_second of 0\ndisables rate limiting.",
			value: map[string]any{
				"tcp": map[string]any{
					"enabled":         tcpCfg.Enabled,
					"port":            tcpCfg.Port,
					"max_connections": tcpCfg.MaxConnections,
					"timeouts": map[string]any{
						"read":     tcpCfg.Timeouts.Read.String(),
						"write":    tcpCfg.Timeouts.Write.String(),
						"idle":     tcpCfg.Timeouts.Idle.String(),
						"shutdown": tcpCfg.Timeouts.Shutdown.String(),
					},
					"metrics_log_interval": tcpCfg.MetricsLogInterval.String(),
					"max_line_length":      tcpCfg.MaxLineLength,
					"rate_limit": map[string]any{
						"requests_per_second": tcpCfg.RateLimit.RequestsPerSecond,
						"burst":               tcpCfg.RateLimit.Burst,
					},
				},
			},
		},
	}

	root := &yaml.Node{Kind: yaml.MappingNode}
	for _, section := range sections {
		var value yaml.Node
		if err := value.Encode(section.value); err != nil {
			return "", fmt.Errorf("encode %s: %w", section.key, err)
		}
		root.Content = append(root.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: section.key, HeadComment: section.comment},
			&value,
		)
	}

	var buf bytes.Buffer
	buf.WriteString("# clusterfs Configuration File\n")
	buf.WriteString("#\n")
	buf.WriteString("# Every key can be overridden with an environment variable, for example\n")
	buf.WriteString("# CLUSTERFS_ADAPTERS_TCP_PORT=9000 or CLUSTERFS_LOGGING_LEVEL=DEBUG.\n\n")

	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(root); err != nil {
		return "", err
	}
	if err := enc.Close(); err != nil {
		return "", err
	}

	return buf.String(), nil
}
