package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/yejune/do-worker/internal/updater"
)

func init() {
	rootCmd.AddCommand(updateCmd)
}

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Update do-worker to the latest release",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintln(os.Stderr, "Checking for updates...")

		result := updater.CheckVersion(Version)
		if !result.UpdateAvailable {
			fmt.Fprintf(os.Stderr, "Already at the latest version (v%s)\n", result.CurrentVersion)
			return nil
		}

		fmt.Fprintf(os.Stderr, "New version available: v%s -> v%s\nDownloading...\n",
			result.CurrentVersion, result.LatestVersion)

		if err := updater.SelfUpdate(Version); err != nil {
			fmt.Fprintf(os.Stderr, "You can download manually from:\n  %s\n", result.ReleaseURL)
			return fmt.Errorf("update failed: %w", err)
		}

		fmt.Fprintf(os.Stderr, "Updated to v%s. Restart the worker to use the new version.\n",
			result.LatestVersion)
		return nil
	},
}
