package main

import (
	"fmt"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"github.com/yejune/do-worker/internal/memtools"
	"github.com/yejune/do-worker/internal/store"
)

func init() {
	rootCmd.AddCommand(mcpCmd)
}

// The MCP surface is read-only: writes go through the HTTP API so
// there is a single ingest path with one set of validation rules.
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve read-only memory tools over MCP (stdio transport)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		setupLogging(cfg)

		storeCfg := store.DefaultConfig()
		storeCfg.Path = cfg.DatabasePath()
		st, err := store.New(storeCfg)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer st.Close()

		s := server.NewMCPServer(
			"do-worker",
			Version,
			server.WithToolCapabilities(true),
			server.WithRecovery(),
		)

		searchTool := memtools.NewSearchTool(st)
		s.AddTool(searchTool.Definition(), searchTool.Handle)

		recentTool := memtools.NewRecentTool(st)
		s.AddTool(recentTool.Definition(), recentTool.Handle)

		sessionsTool := memtools.NewSessionsTool(st)
		s.AddTool(sessionsTool.Definition(), sessionsTool.Handle)

		return server.ServeStdio(s)
	},
}
