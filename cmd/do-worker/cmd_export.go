package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/yejune/do-worker/internal/store"
)

var exportOutput string

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "write to file instead of stdout")
	rootCmd.AddCommand(exportCmd)
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Dump all sessions, observations, and prompts as JSON",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()

		storeCfg := store.DefaultConfig()
		storeCfg.Path = cfg.DatabasePath()
		st, err := store.New(storeCfg)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer st.Close()

		export, err := st.Export(Version)
		if err != nil {
			return fmt.Errorf("export: %w", err)
		}

		data, err := json.MarshalIndent(export, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal export: %w", err)
		}
		data = append(data, '\n')

		if exportOutput == "" {
			_, err = os.Stdout.Write(data)
			return err
		}
		if err := os.WriteFile(exportOutput, data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", exportOutput, err)
		}
		fmt.Fprintf(os.Stderr, "Exported %d sessions, %d observations, %d prompts to %s\n",
			len(export.Sessions), len(export.Observations), len(export.Prompts), exportOutput)
		return nil
	},
}
