package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadWritesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Worker.Port != 3778 {
		t.Errorf("worker port = %d, want 3778", cfg.Worker.Port)
	}
	if cfg.Viewer.Port != 3777 {
		t.Errorf("viewer port = %d, want 3777", cfg.Viewer.Port)
	}
	if cfg.Database.Type != "sqlite" {
		t.Errorf("db type = %q", cfg.Database.Type)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("log level = %q", cfg.LogLevel)
	}

	// The defaults must now exist on disk for the launcher to read.
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("defaults not written: %v", err)
	}
	var onDisk Config
	if err := json.Unmarshal(data, &onDisk); err != nil {
		t.Fatalf("defaults not valid JSON: %v", err)
	}
	if onDisk.Worker.Port != 3778 {
		t.Errorf("on-disk port = %d", onDisk.Worker.Port)
	}
}

func TestLoadExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	content := `{"worker":{"port":4000},"log_level":"debug"}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Worker.Port != 4000 {
		t.Errorf("port = %d, want 4000", cfg.Worker.Port)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("log level = %q, want debug", cfg.LogLevel)
	}
	// Fields absent from the file keep their defaults.
	if cfg.Database.Type != "sqlite" {
		t.Errorf("db type = %q, want default", cfg.Database.Type)
	}
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte("{broken"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected error for malformed config")
	}
}

func TestEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	t.Setenv("DO_WORKER_PORT", "5555")
	t.Setenv("DO_DB_PATH", "/tmp/other.db")
	t.Setenv("DO_LOG_LEVEL", "warn")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Worker.Port != 5555 {
		t.Errorf("port = %d, want env override", cfg.Worker.Port)
	}
	if cfg.Database.Path != "/tmp/other.db" {
		t.Errorf("db path = %q", cfg.Database.Path)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("log level = %q", cfg.LogLevel)
	}
}

func TestEnvOverrideBadPort(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	t.Setenv("DO_WORKER_PORT", "not-a-port")

	if _, err := Load(path); err == nil {
		t.Error("expected error for unparseable DO_WORKER_PORT")
	}
}

func TestDatabasePathExpandsTilde(t *testing.T) {
	cfg := &Config{}
	cfg.Database.Path = "~/.do/memory.db"

	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home dir")
	}
	want := filepath.Join(home, ".do", "memory.db")
	if got := cfg.DatabasePath(); got != want {
		t.Errorf("DatabasePath = %q, want %q", got, want)
	}
}

func TestDatabasePathAbsoluteUnchanged(t *testing.T) {
	cfg := &Config{}
	cfg.Database.Path = "/var/lib/do/memory.db"
	if got := cfg.DatabasePath(); got != "/var/lib/do/memory.db" {
		t.Errorf("DatabasePath = %q", got)
	}
}
