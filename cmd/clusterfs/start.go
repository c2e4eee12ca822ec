package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/marmos91/clusterfs/internal/logger"
	"github.com/marmos91/clusterfs/pkg/config"
	"github.com/marmos91/clusterfs/pkg/server"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(newStartCmd())
}

func newStartCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the storage server",
		Long: `Start the storage server and block until SIGINT or SIGTERM.

Configuration is read from --config (or the default location), then
CLUSTERFS_* environment variables, then the flags below.

Example:
  clusterfs start
  clusterfs start --port 9000 --log-level DEBUG`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, port)
			if err != nil {
				return err
			}
			return runStart(cmd.Context(), cfg)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "Override the listening port")

	return cmd
}

// loadConfig loads the configuration and applies flag overrides.
func loadConfig(cmd *cobra.Command, port int) (*config.Config, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}

	if cmd.Flags().Changed("port") {
		cfg.Adapters.TCP.Port = port
	}
	if logLevel != "" {
		cfg.Logging.Level = strings.ToUpper(logLevel)
	}

	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid flag override: %w", err)
	}

	return cfg, nil
}

func runStart(parent context.Context, cfg *config.Config) error {
	if parent == nil {
		parent = context.Background()
	}

	if err := logger.Init(logger.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("clusterfs %s starting", version)
	logger.Debug("Content store: %s", cfg.Content.Type)

	metricsResult := config.InitializeMetrics(cfg)

	store, err := config.CreateContentStore(ctx, &cfg.Content, metricsResult.S3Metrics, metricsResult.CacheMetrics)
	if err != nil {
		return fmt.Errorf("failed to prepare storage: %w", err)
	}

	d, err := config.CreateDisk(ctx, cfg, store, metricsResult.DiskMetrics)
	if err != nil {
		_ = store.Close()
		return fmt.Errorf("failed to open disk: %w", err)
	}
	defer func() {
		if err := d.Close(); err != nil {
			logger.Error("Failed to close content store: %v", err)
		}
	}()

	srv := server.New(d, cfg.Server.ShutdownTimeout)

	adapters, err := config.CreateAdapters(cfg, metricsResult.TCPMetrics)
	if err != nil {
		return err
	}
	for _, a := range adapters {
		if err := srv.AddAdapter(a); err != nil {
			return err
		}
	}

	if metricsResult.Server != nil {
		go func() {
			if err := metricsResult.Server.Start(ctx); err != nil {
				logger.Error("Metrics server error: %v", err)
			}
		}()
	}

	err = srv.Serve(ctx)
	if errors.Is(err, context.Canceled) {
		logger.Info("Shutdown complete")
		return nil
	}
	return err
}
