// Do Worker: the background daemon of the Do session memory system.
//
// The godo launcher starts this binary when a coding session begins.
// Hook scripts post session events to it over loopback HTTP, and the
// dashboard reads sessions, observations, and summaries back out.
//
// Usage:
//
//	do-worker            # Start the daemon (default)
//	do-worker status     # Check whether a daemon is running
//	do-worker export     # Dump the database as JSON
//	do-worker mcp        # Serve read-only MCP tools over stdio
//	do-worker update     # Update to the latest release
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/yejune/do-worker/internal/config"
)

// Version is set at build time via ldflags.
var Version = "dev"

var configPath string

// The launcher execs the binary with no arguments, so a bare
// invocation starts the daemon.
var rootCmd = &cobra.Command{
	Use:          "do-worker",
	Short:        "Local session memory worker for AI coding assistants",
	SilenceUsage: true,
	RunE:         runServe,
}

func init() {
	rootCmd.Version = Version
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath(), "config file path")
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the do-worker version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("do-worker v%s\n", Version)
		},
	})
}

func loadConfig() *config.Config {
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

func setupLogging(cfg *config.Config) {
	var level slog.Level
	switch strings.ToLower(cfg.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
