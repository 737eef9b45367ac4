package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"kvlog/internal/store"
)

// Backends accepted in store.backend.
const (
	BackendLog  = "log"
	BackendBolt = "bolt"
)

type Config struct {
	Store StoreConfig `toml:"store" yaml:"store"`
	Log   LogConfig   `toml:"log" yaml:"log"`
	Shell ShellConfig `toml:"shell" yaml:"shell"`
}

type StoreConfig struct {
	Path    string `toml:"path" yaml:"path"`
	Backend string `toml:"backend" yaml:"backend"`
	Replay  string `toml:"replay" yaml:"replay"`
	Fsync   bool   `toml:"fsync" yaml:"fsync"`
}

type LogConfig struct {
	Level  string `toml:"level" yaml:"level"`
	Format string `toml:"format" yaml:"format"`
}

type ShellConfig struct {
	Prompt string `toml:"prompt" yaml:"prompt"`
}

// Defaults returns a Config with sane defaults.
func Defaults() *Config {
	return &Config{
		Store: StoreConfig{
			Path:    "./kv_log.txt",
			Backend: BackendLog,
			Replay:  "strict",
			Fsync:   true,
		},
		Log: LogConfig{
			Level:  "warn",
			Format: "text",
		},
		Shell: ShellConfig{
			Prompt: "> ",
		},
	}
}

// Load reads a TOML or YAML config file (chosen by extension) on top of the
// defaults, then applies KVLOG_* environment overrides. An empty path skips
// the file.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml":
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing config: %w", err)
			}
		default:
			if _, err := toml.Decode(string(data), cfg); err != nil {
				return nil, fmt.Errorf("parsing config: %w", err)
			}
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides lets KVLOG_* environment variables override file values.
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("KVLOG_PATH"); v != "" {
		cfg.Store.Path = v
	}
	if v := os.Getenv("KVLOG_BACKEND"); v != "" {
		cfg.Store.Backend = v
	}
	if v := os.Getenv("KVLOG_REPLAY"); v != "" {
		cfg.Store.Replay = v
	}
	if v := os.Getenv("KVLOG_FSYNC"); v != "" {
		fsync, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid KVLOG_FSYNC value: %w", err)
		}
		cfg.Store.Fsync = fsync
	}
	if v := os.Getenv("KVLOG_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("KVLOG_LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	return nil
}

// Validate checks field values and reports every problem at once.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Store.Path) == "" {
		errs = append(errs, errors.New("store.path: must not be empty"))
	}
	switch c.Store.Backend {
	case BackendLog, BackendBolt:
	default:
		errs = append(errs, fmt.Errorf("store.backend: unknown backend %q (want %s or %s)", c.Store.Backend, BackendLog, BackendBolt))
	}
	if _, err := store.ParseReplayPolicy(c.Store.Replay); err != nil {
		errs = append(errs, fmt.Errorf("store.replay: %w", err))
	}
	switch strings.ToLower(strings.TrimSpace(c.Log.Level)) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level: unknown level %q", c.Log.Level))
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format: unknown format %q (want text or json)", c.Log.Format))
	}
	return errors.Join(errs...)
}

// ReplayPolicy returns the parsed store.replay value. Call Validate first.
func (c *Config) ReplayPolicy() store.ReplayPolicy {
	p, _ := store.ParseReplayPolicy(c.Store.Replay)
	return p
}

// ExpandHome resolves a leading ~/ to the user's home directory.
func ExpandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
