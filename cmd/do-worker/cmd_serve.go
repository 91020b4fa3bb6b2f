package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/yejune/do-worker/internal/store"
	"github.com/yejune/do-worker/internal/worker"
	"golang.org/x/sync/errgroup"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the worker daemon",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func writePIDFile(dataDir string) (string, error) {
	pidPath := filepath.Join(dataDir, "do-worker.pid")
	pid := os.Getpid()
	if err := os.WriteFile(pidPath, []byte(strconv.Itoa(pid)+"\n"), 0o644); err != nil {
		return "", fmt.Errorf("write PID file: %w", err)
	}
	return pidPath, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	setupLogging(cfg)

	dbPath := cfg.DatabasePath()
	dataDir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	pidPath, err := writePIDFile(dataDir)
	if err != nil {
		return err
	}
	defer os.Remove(pidPath)

	storeCfg := store.DefaultConfig()
	storeCfg.Path = dbPath
	st, err := store.New(storeCfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	maint, err := worker.StartMaintenance(st, worker.DefaultMaintenanceSchedule)
	if err != nil {
		return fmt.Errorf("start maintenance: %w", err)
	}
	defer maint.Stop()

	// Loopback only. The hooks and the dashboard both run on this
	// machine, and nothing here is authenticated.
	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Worker.Port)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           worker.NewServer(st, Version),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	slog.Info("do-worker started",
		"addr", addr,
		"db", dbPath,
		"version", Version,
		"log_level", cfg.LogLevel,
		"pid_file", pidPath,
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		slog.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
