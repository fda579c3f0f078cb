// Package config loads the optional TOML configuration file. Every setting
// has a sensible default so a missing file is not an error.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config holds the user-tunable settings.
type Config struct {
	// DataDir is the directory holding the record files.
	DataDir string `toml:"data_dir"`
	// DefaultProject is used by start when no project is given.
	DefaultProject string `toml:"default_project"`
	// Timezone renders timestamps in reports; records keep their own offset.
	Timezone string `toml:"timezone"`
	LogFile  string `toml:"log_file"`
	LogLevel string `toml:"log_level"`
	Debug    bool   `toml:"debug"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		DataDir:  "~/.tempo",
		Timezone: "Local",
		LogLevel: "info",
	}
}

// DefaultPath returns the conventional config file location.
func DefaultPath() string {
	return "~/.tempo/config.toml"
}

// Load reads the TOML file at path and overlays it on the defaults. A
// missing file yields the defaults; a malformed file is an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	expanded, err := ExpandPath(path)
	if err != nil {
		return nil, err
	}
	meta, err := toml.DecodeFile(expanded, cfg)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("load config %s: %w", expanded, err)
	}
	if undec := meta.Undecoded(); len(undec) > 0 {
		return nil, fmt.Errorf("load config %s: unknown key %q", expanded, undec[0].String())
	}
	return cfg, nil
}

// ExpandPath resolves a leading ~/ against the user's home directory.
func ExpandPath(path string) (string, error) {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
	}
	return path, nil
}
