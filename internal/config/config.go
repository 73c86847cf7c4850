// Package config loads the optional TOML configuration file. File values
// seed the AGROCORE_* environment variables consumed by the storage and blob
// factories; variables already set in the environment always win, so
// deployments can override any file setting without editing it.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

// Config captures the tunables agrocore reads at startup.
type Config struct {
	StorageDriver      string `toml:"storage_driver"`
	FilePath           string `toml:"file_path"`
	SQLitePath         string `toml:"sqlite_path"`
	PostgresDSN        string `toml:"postgres_dsn"`
	SnapshotDebounceMS int    `toml:"snapshot_debounce_ms"`
	BlobDriver         string `toml:"blob_driver"`
	BlobRoot           string `toml:"blob_root"`
	LogLevel           string `toml:"log_level"`
}

const defaultConfigPath = "~/.config/agrocore/config.toml"

// Load locates and parses the config file. A missing file is not an error;
// it yields the zero config so environment variables and built-in defaults
// apply.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	payload, err := os.ReadFile(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Config{}, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(payload, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	cfg.StorageDriver = strings.TrimSpace(cfg.StorageDriver)
	cfg.FilePath = strings.TrimSpace(cfg.FilePath)
	cfg.SQLitePath = strings.TrimSpace(cfg.SQLitePath)
	cfg.PostgresDSN = strings.TrimSpace(cfg.PostgresDSN)
	cfg.BlobDriver = strings.TrimSpace(cfg.BlobDriver)
	cfg.BlobRoot = strings.TrimSpace(cfg.BlobRoot)
	cfg.LogLevel = strings.TrimSpace(cfg.LogLevel)
	return cfg, nil
}

// Export seeds the corresponding AGROCORE_* environment variables for every
// configured field whose variable is not already set.
func (c Config) Export() {
	seed := func(key, value string) {
		if value == "" {
			return
		}
		if _, ok := os.LookupEnv(key); ok {
			return
		}
		os.Setenv(key, value)
	}
	seed("AGROCORE_STORAGE_DRIVER", c.StorageDriver)
	seed("AGROCORE_FILE_PATH", c.FilePath)
	seed("AGROCORE_SQLITE_PATH", c.SQLitePath)
	seed("AGROCORE_POSTGRES_DSN", c.PostgresDSN)
	seed("AGROCORE_BLOB_DRIVER", c.BlobDriver)
	seed("AGROCORE_BLOB_FS_ROOT", c.BlobRoot)
	if c.SnapshotDebounceMS > 0 {
		seed("AGROCORE_SNAPSHOT_DEBOUNCE_MS", strconv.Itoa(c.SnapshotDebounceMS))
	}
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
