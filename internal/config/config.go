// Package config loads the shared Do configuration from
// ~/.do/config.json. The same file is read by the godo launcher, so
// the shape must stay compatible: worker port, viewer port, and the
// database location all live here.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Config is the on-disk ~/.do/config.json document.
type Config struct {
	Version string `json:"version"`
	Worker  struct {
		Port      int  `json:"port"`
		AutoStart bool `json:"auto_start"`
	} `json:"worker"`
	Viewer struct {
		Port int `json:"port"`
	} `json:"viewer"`
	Database struct {
		Type string `json:"type"`
		Path string `json:"path"`
	} `json:"database"`
	LogLevel string `json:"log_level"`
}

// DefaultPath returns ~/.do/config.json.
func DefaultPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".do", "config.json")
}

// Load reads the config at path, writing defaults first if the file
// does not exist. Environment variables take highest precedence:
// DO_WORKER_PORT, DO_DB_PATH, and DO_LOG_LEVEL (the hooks use
// DO_WORKER_PORT to find the worker, so both sides must agree).
func Load(path string) (*Config, error) {
	cfg := &Config{}
	cfg.Version = "1.0.0"
	cfg.Worker.Port = 3778
	cfg.Worker.AutoStart = true
	cfg.Viewer.Port = 3777
	cfg.Database.Type = "sqlite"
	cfg.Database.Path = "~/.do/memory.db"
	cfg.LogLevel = "info"

	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	} else if os.IsNotExist(err) {
		if err := writeDefaults(path, cfg); err != nil {
			return nil, err
		}
	} else {
		return nil, fmt.Errorf("config: stat %s: %w", path, err)
	}

	if port := os.Getenv("DO_WORKER_PORT"); port != "" {
		n, err := strconv.Atoi(port)
		if err != nil {
			return nil, fmt.Errorf("config: DO_WORKER_PORT %q: %w", port, err)
		}
		cfg.Worker.Port = n
	}
	if dbPath := os.Getenv("DO_DB_PATH"); dbPath != "" {
		cfg.Database.Path = dbPath
	}
	if level := os.Getenv("DO_LOG_LEVEL"); level != "" {
		cfg.LogLevel = level
	}

	return cfg, nil
}

// DatabasePath returns the database location with a leading ~ expanded.
func (c *Config) DatabasePath() string {
	p := c.Database.Path
	if strings.HasPrefix(p, "~/") || p == "~" {
		home, err := os.UserHomeDir()
		if err == nil {
			p = filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}

// writeDefaults persists the default config atomically so a concurrent
// launcher never reads a half-written file.
func writeDefaults(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("config: create directory: %w", err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("config: marshal defaults: %w", err)
	}
	data = append(data, '\n')

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("config: write defaults: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("config: rename defaults: %w", err)
	}
	return nil
}
