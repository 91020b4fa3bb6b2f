package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(statusCmd, stopCmd)
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check whether a worker daemon is running",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()

		client := &http.Client{Timeout: 2 * time.Second}
		url := fmt.Sprintf("http://127.0.0.1:%d/health", cfg.Worker.Port)
		resp, err := client.Get(url)
		if err != nil {
			return fmt.Errorf("worker not running on port %d", cfg.Worker.Port)
		}
		defer resp.Body.Close()

		var health struct {
			Status  string `json:"status"`
			Version string `json:"version"`
			DBType  string `json:"db_type"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
			return fmt.Errorf("unexpected health response: %w", err)
		}

		fmt.Printf("Worker running on port %d (v%s, db: %s)\n",
			cfg.Worker.Port, health.Version, health.DBType)
		return nil
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running worker daemon",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		pid, err := readPID(filepath.Dir(cfg.DatabasePath()))
		if err != nil {
			return err
		}

		proc, err := os.FindProcess(pid)
		if err != nil {
			return fmt.Errorf("find process: %w", err)
		}
		if err := proc.Signal(syscall.SIGTERM); err != nil {
			return fmt.Errorf("send SIGTERM: %w", err)
		}

		fmt.Printf("Sent SIGTERM to worker (PID %d).\n", pid)
		return nil
	},
}

// readPID reads the PID file and validates the process still exists by
// sending signal 0.
func readPID(dataDir string) (int, error) {
	pidPath := filepath.Join(dataDir, "do-worker.pid")

	data, err := os.ReadFile(pidPath)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, fmt.Errorf("no running worker (PID file not found)")
		}
		return 0, fmt.Errorf("read PID file: %w", err)
	}

	var pid int
	if _, err := fmt.Sscanf(string(data), "%d", &pid); err != nil {
		return 0, fmt.Errorf("invalid PID file content: %w", err)
	}

	proc, err := os.FindProcess(pid)
	if err != nil {
		return 0, fmt.Errorf("find process %d: %w", pid, err)
	}
	if err := proc.Signal(syscall.Signal(0)); err != nil {
		return 0, fmt.Errorf("no running worker (process %d not found)", pid)
	}
	return pid, nil
}
