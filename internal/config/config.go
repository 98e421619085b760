// Package config loads tally's TOML configuration file.
// The file lives at ~/.config/tally/config.toml; a missing file means defaults.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/natefinch/atomic"
	toml "github.com/pelletier/go-toml/v2"
)

const (
	defaultConfigPath = "~/.config/tally/config.toml"
	defaultLogFile    = "~/.local/state/tally/tally.log"
)

// Config is the full application configuration.
type Config struct {
	// DBPath is the SQLite file backing the key/value store. Empty means
	// store.DefaultDBPath().
	DBPath string       `toml:"db_path"`
	Log    LogConfig    `toml:"log"`
	Writer WriterConfig `toml:"writer"`
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level  string `toml:"level" validate:"oneof=debug info warn error"`
	Format string `toml:"format" validate:"oneof=json console"`
	File   string `toml:"file"`
}

// WriterConfig controls retries of background store writes.
type WriterConfig struct {
	MaxAttempts   int `toml:"max_attempts" validate:"min=1,max=10"`
	BaseBackoffMS int `toml:"base_backoff_ms" validate:"min=1"`
	MaxBackoffMS  int `toml:"max_backoff_ms" validate:"gtefield=BaseBackoffMS"`
}

// BaseBackoff returns the first retry delay.
func (w WriterConfig) BaseBackoff() time.Duration {
	return time.Duration(w.BaseBackoffMS) * time.Millisecond
}

// MaxBackoff returns the retry delay cap.
func (w WriterConfig) MaxBackoff() time.Duration {
	return time.Duration(w.MaxBackoffMS) * time.Millisecond
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		Log: LogConfig{
			Level:  "info",
			Format: "json",
			File:   mustExpand(defaultLogFile),
		},
		Writer: WriterConfig{
			MaxAttempts:   3,
			BaseBackoffMS: 50,
			MaxBackoffMS:  2000,
		},
	}
}

// DefaultPath returns the default configuration file path.
func DefaultPath() string {
	return defaultConfigPath
}

// Load reads the config at path, falling back to defaults when the file is
// missing. Fields left out of the file keep their default values.
func Load(path string) (Config, error) {
	cfg := Default()

	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	if err := toml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	cfg.DBPath = strings.TrimSpace(cfg.DBPath)
	if cfg.DBPath != "" {
		cfg.DBPath = mustExpand(cfg.DBPath)
	}
	if strings.TrimSpace(cfg.Log.File) != "" {
		cfg.Log.File = mustExpand(cfg.Log.File)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Save writes cfg to path atomically, creating directories as needed.
func Save(path string, cfg Config) error {
	resolved, err := resolvePath(path)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := atomic.WriteFile(resolved, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

var validate = validator.New()

// Validate checks field ranges.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
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
