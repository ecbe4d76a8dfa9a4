// Package config loads photoscrub settings from TOML, with sane
// defaults when no config file exists.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Scrub struct {
		Suffix  string `toml:"suffix"`   // appended to scrubbed copies
		Workers int    `toml:"workers"`  // parallel batch workers
		InPlace bool   `toml:"in_place"` // overwrite originals
	} `toml:"scrub"`
	Watch struct {
		Paths       []string `toml:"paths"`
		Extensions  []string `toml:"extensions"`
		ExcludeDirs []string `toml:"exclude_dirs"`
		Recursive   bool     `toml:"recursive"`
		MinFileAge  int      `toml:"min_file_age"` // seconds a file must sit still
	} `toml:"watch"`
	Log struct {
		Level string `toml:"level"` // debug, info, warn, error
		File  string `toml:"file"`  // empty means stderr
	} `toml:"log"`
}

// Default returns the configuration used when no file overrides it.
func Default() *Config {
	cfg := &Config{}
	cfg.Scrub.Suffix = "_clean"
	cfg.Scrub.Workers = runtime.NumCPU()
	cfg.Watch.Paths = []string{filepath.Join(os.Getenv("HOME"), "Downloads")}
	cfg.Watch.Extensions = []string{
		".jpg", ".jpeg", ".png", ".gif", ".webp", ".tif", ".tiff", ".heic",
		".mp3", ".flac", ".wav",
	}
	cfg.Watch.Recursive = true
	cfg.Watch.MinFileAge = 2
	cfg.Log.Level = "info"
	return cfg
}

// Load reads the first config file found in the search paths. No file
// at all is not an error; the defaults come back instead.
func Load() (*Config, error) {
	for _, path := range searchPaths() {
		if _, err := os.Stat(path); err == nil {
			return LoadFile(path)
		}
	}
	return Default(), nil
}

// LoadFile reads one specific config file, layered over the defaults.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if cfg.Scrub.Workers < 1 {
		cfg.Scrub.Workers = 1
	}
	if cfg.Watch.MinFileAge < 0 {
		cfg.Watch.MinFileAge = 0
	}
	return cfg, nil
}

func searchPaths() []string {
	return []string{
		"./photoscrub.toml",
		"config/photoscrub.toml",
		filepath.Join(os.Getenv("HOME"), ".config/photoscrub/config.toml"),
	}
}

// Save writes the configuration to path, creating directories as
// needed.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(cfg)
}

// LogLevel maps the configured level name onto slog's levels. Unknown
// names mean info.
func (c *Config) LogLevel() slog.Level {
	switch strings.ToLower(c.Log.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// WatchesExtension reports whether the watch config covers ext, which
// is matched case-insensitively and must include the dot.
func (c *Config) WatchesExtension(ext string) bool {
	ext = strings.ToLower(ext)
	for _, e := range c.Watch.Extensions {
		if strings.ToLower(e) == ext {
			return true
		}
	}
	return false
}
