// Package config holds client configuration and logger setup.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration values.
type Config struct {
	// Daemon connection
	DaemonURL string

	// Decision log the daemon writes (SQLite file)
	HistoryDB string

	// Logging
	LogFile  string
	LogLevel slog.Level
}

// fileConfig is the optional YAML config file shape.
type fileConfig struct {
	DaemonURL string `yaml:"daemon_url"`
	HistoryDB string `yaml:"history_db"`
	LogFile   string `yaml:"log_file"`
	LogLevel  string `yaml:"log_level"`
}

// Load builds the configuration: built-in defaults matching the daemon,
// overridden by ~/.config/sortdesk/config.yaml (or SORTDESK_CONFIG) when
// present, overridden in turn by SORTDESK_* environment variables.
func Load() (Config, error) {
	cfg := Config{
		DaemonURL: "ws://localhost:8765",
		HistoryDB: "file_logs.db",
		LogFile:   filepath.Join(os.TempDir(), "sortdesk.log"),
		LogLevel:  slog.LevelInfo,
	}

	path := os.Getenv("SORTDESK_CONFIG")
	explicit := path != ""
	if !explicit {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, ".config", "sortdesk", "config.yaml")
		}
	}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			var fc fileConfig
			if err := yaml.Unmarshal(data, &fc); err != nil {
				return Config{}, fmt.Errorf("parse config %s: %w", path, err)
			}
			applyFile(&cfg, fc)
		case explicit:
			// A config file the user pointed at must exist.
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	cfg.DaemonURL = getEnv("SORTDESK_DAEMON_URL", cfg.DaemonURL)
	cfg.HistoryDB = getEnv("SORTDESK_HISTORY_DB", cfg.HistoryDB)
	cfg.LogFile = getEnv("SORTDESK_LOG_FILE", cfg.LogFile)
	if lvl := os.Getenv("SORTDESK_LOG_LEVEL"); lvl != "" {
		cfg.LogLevel = parseLogLevel(lvl)
	}
	return cfg, nil
}

func applyFile(cfg *Config, fc fileConfig) {
	if fc.DaemonURL != "" {
		cfg.DaemonURL = fc.DaemonURL
	}
	if fc.HistoryDB != "" {
		cfg.HistoryDB = fc.HistoryDB
	}
	if fc.LogFile != "" {
		cfg.LogFile = fc.LogFile
	}
	if fc.LogLevel != "" {
		cfg.LogLevel = parseLogLevel(fc.LogLevel)
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
