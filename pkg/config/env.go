package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Environment variables that fill in tracker settings left empty in the config file.
const (
	EnvServerHost = "MONOLITH_SERVER_HOST"
	EnvDataPort   = "MONOLITH_DATA_PORT"
)

// LoadEnv reads KEY=VALUE files into the process environment without overriding variables
// that are already set. Missing files are skipped.
func LoadEnv(paths ...string) error {
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load env file %s: %w", p, err)
		}
		slog.Debug("Loaded environment file", "path", p)
	}
	return nil
}

func applyEnv(cfg *Config) {
	if cfg.Tracker.ServerHost == "" {
		cfg.Tracker.ServerHost = os.Getenv(EnvServerHost)
	}
	if cfg.Tracker.DataPort == 0 {
		if v := os.Getenv(EnvDataPort); v != "" {
			port, err := strconv.Atoi(v)
			if err != nil {
				slog.Warn("Ignoring invalid data port from environment", "var", EnvDataPort, "value", v)
				return
			}
			cfg.Tracker.DataPort = port
		}
	}
}
