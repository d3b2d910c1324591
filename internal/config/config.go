// Package config loads the nbsync CLI configuration.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Config is the CLI configuration. Command-line flags override it.
type Config struct {
	Journal JournalConfig `toml:"journal" json:"journal" yaml:"journal"`
	Log     LogConfig     `toml:"log" json:"log" yaml:"log"`
	Output  OutputConfig  `toml:"output" json:"output" yaml:"output"`
}

// JournalConfig locates the notification journal.
type JournalConfig struct {
	// Path is the SQLite database file. Empty disables journaling.
	Path string `toml:"path" json:"path" yaml:"path"`
}

// LogConfig controls structured logging.
type LogConfig struct {
	// Level is the log level: "debug", "info", "warn", "error".
	Level string `toml:"level" json:"level" yaml:"level"`

	// Format is the log format: "text" or "json".
	Format string `toml:"format" json:"format" yaml:"format"`
}

// OutputConfig controls command output.
type OutputConfig struct {
	// Format is "text" or "json".
	Format string `toml:"format" json:"format" yaml:"format"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Log:    LogConfig{Level: "warn", Format: "text"},
		Output: OutputConfig{Format: "text"},
	}
}

// Load reads the configuration at path over the defaults. A missing file
// yields the defaults. TOML keys that do not map to a field are an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return finish(cfg)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return finish(cfg)
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	switch ext := filepath.Ext(path); ext {
	case ".toml", "":
		md, err := toml.Decode(string(data), cfg)
		if err != nil {
			return nil, fmt.Errorf("decode TOML: %w", err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for i, k := range undecoded {
				keys[i] = k.String()
			}
			return nil, fmt.Errorf("decode TOML: unknown keys: %s", strings.Join(keys, ", "))
		}
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("decode JSON: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("decode YAML: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config extension %q", ext)
	}

	return finish(cfg)
}

func finish(cfg *Config) (*Config, error) {
	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	return cfg, nil
}

// ApplyEnvOverrides applies NBSYNC_* environment variables.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("NBSYNC_JOURNAL"); v != "" {
		c.Journal.Path = v
	}
	if v := os.Getenv("NBSYNC_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("NBSYNC_LOG_FORMAT"); v != "" {
		c.Log.Format = v
	}
}

// Validate checks enumerated fields. Returns all problems joined.
func (c *Config) Validate() error {
	var errs []error
	if _, err := parseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		errs = append(errs, fmt.Errorf("log.format: invalid %q, must be \"text\" or \"json\"", c.Log.Format))
	}
	if c.Output.Format != "text" && c.Output.Format != "json" {
		errs = append(errs, fmt.Errorf("output.format: invalid %q, must be \"text\" or \"json\"", c.Output.Format))
	}
	return errors.Join(errs...)
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("log.level: invalid %q, must be debug, info, warn or error", s)
	}
}

// NewLogger builds the slog logger described by c, writing to w.
func (c LogConfig) NewLogger(w io.Writer) (*slog.Logger, error) {
	level, err := parseLevel(c.Level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	switch c.Format {
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	case "text", "":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("log.format: invalid %q", c.Format)
	}
}
