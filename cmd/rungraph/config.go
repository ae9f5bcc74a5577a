package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Config holds rungraph CLI configuration.
// Priority: env vars > settings.json > defaults.
type Config struct {
	DBPath       string `json:"db_path"`
	LogLevel     string `json:"log_level"`
	PollSeconds  int    `json:"poll_seconds"`
	SnapshotCron string `json:"snapshot_cron"`
}

func defaultConfig() Config {
	return Config{
		DBPath:      "file:" + filepath.Join(rungraphDir(), "rungraph.db"),
		LogLevel:    "info",
		PollSeconds: 5,
	}
}

func rungraphDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".rungraph"
	}
	return filepath.Join(home, ".rungraph")
}

func settingsPath() string {
	return filepath.Join(rungraphDir(), "settings.json")
}

func loadConfig() Config {
	cfg := defaultConfig()

	// Layer 2: settings.json (ignore if missing).
	if data, err := os.ReadFile(settingsPath()); err == nil {
		_ = json.Unmarshal(data, &cfg)
	}

	// Layer 3: env vars override.
	if v := os.Getenv("RUNGRAPH_DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("RUNGRAPH_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("RUNGRAPH_POLL_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.PollSeconds = n
		}
	}
	if v := os.Getenv("RUNGRAPH_SNAPSHOT_CRON"); v != "" {
		cfg.SnapshotCron = v
	}

	return cfg
}

func (c Config) pollInterval() time.Duration {
	return time.Duration(c.PollSeconds) * time.Second
}
