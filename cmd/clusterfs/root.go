package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	configFile string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "clusterfs",
	Short: "Simulated clustered-disk storage server",
	Long: `clusterfs serves a fixed pool of storage blocks over a line-oriented TCP
protocol (STORE, READ, DELETE, DIR). File bytes are kept in a pluggable
content store while an in-memory allocator tracks which blocks belong to
which file and how fragmented each allocation is.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().
		StringVarP(&configFile, "config", "c", "", "Config file (default $XDG_CONFIG_HOME/clusterfs/config.yaml)")
	rootCmd.PersistentFlags().
		StringVar(&logLevel, "log-level", "", "Override the configured log level (DEBUG, INFO, WARN, ERROR)")
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
