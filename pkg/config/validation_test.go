package config

import (
	"strings"
	"testing"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(cfg *Config)
		wantErr string
	}{
		{
			name:   "defaults",
			mutate: func(cfg *Config) {},
		},
		{
			name:    "unknown log format",
			mutate:  func(cfg *Config) { cfg.Logging.Format = "xml" },
			wantErr: "Format",
		},
		{
			name:    "empty output",
			mutate:  func(cfg *Config) { cfg.Logging.Output = "" },
			wantErr: "Output",
		},
		{
			name:    "zero shutdown timeout",
			mutate:  func(cfg *Config) { cfg.Server.ShutdownTimeout = 0 },
			wantErr: "ShutdownTimeout",
		},
		{
			name:    "metrics port out of range",
			mutate:  func(cfg *Config) { cfg.Server.Metrics.Port = 70000 },
			wantErr: "Port",
		},
		{
			name: "metrics port clashes with listener",
			mutate: func(cfg *Config) {
				cfg.Server.Metrics.Enabled = true
				cfg.Server.Metrics.Port = cfg.Adapters.TCP.Port
			},
			wantErr: "already used",
		},
		{
			name:    "zero blocks",
			mutate:  func(cfg *Config) { cfg.Disk.NumBlocks = 0 },
			wantErr: "NumBlocks",
		},
		{
			name:    "control character identifier",
			mutate:  func(cfg *Config) { cfg.Disk.Alphabet = "A\tB" },
			wantErr: "Alphabet",
		},
		{
			name:    "duplicate identifier",
			mutate:  func(cfg *Config) { cfg.Disk.Alphabet = "AA" },
			wantErr: "duplicate",
		},
		{
			name:    "unknown content type",
			mutate:  func(cfg *Config) { cfg.Content.Type = "tape" },
			wantErr: "Type",
		},
		{
			name:    "no adapters",
			mutate:  func(cfg *Config) { cfg.Adapters.TCP.Enabled = false },
			wantErr: "at least one adapter",
		},
		{
			name:    "tcp line length",
			mutate:  func(cfg *Config) { cfg.Adapters.TCP.MaxLineLength = 4 },
			wantErr: "adapters.tcp",
		},
		{
			name:    "tcp negative connections",
			mutate:  func(cfg *Config) { cfg.Adapters.TCP.MaxConnections = -1 },
			wantErr: "MaxConnections",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := GetDefaultConfig()
			tt.mutate(cfg)

			err := Validate(cfg)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Expected valid config, got: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got: %v", tt.wantErr, err)
			}
		})
	}
}
