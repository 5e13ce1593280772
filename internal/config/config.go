package config

import (
	"bytes"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/natefinch/atomic"
	"gopkg.in/yaml.v3"
)

// NOTE: This file provides the configuration model and full YAML-based
// load/save behavior, including first-run config creation and 0600
// permissions.

const (
	defaultTimezone    = "Asia/Seoul"
	defaultWeekStart   = "monday"
	defaultHorizonDays = 365
	defaultLogLevel    = "info"
	defaultLogFormat   = "console"
)

// SeedConfig describes a single ICS file loaded into the index at startup.
type SeedConfig struct {
	// ID is an internal identifier used for logging.
	ID string `yaml:"id" json:"id"`
	// Path is the ICS file. Relative paths resolve against the config
	// file's directory.
	Path string `yaml:"path" json:"path"`
	// Name is a human-friendly label.
	Name string `yaml:"name" json:"name"`
}

// LogConfig selects the log level and output format.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level" json:"level"`
	// Format is "console" (default) or "json".
	Format string `yaml:"format" json:"format"`
}

// Config is the top-level application configuration.
type Config struct {
	// Timezone is the IANA timezone used as canonical display zone (e.g. "Asia/Seoul").
	Timezone string `yaml:"timezone" json:"timezone"`

	// WeekStart controls which weekday is treated as the first day of the week
	// in agenda ranges. Supported values:
	//   - "monday" (default)
	//   - "sunday"
	WeekStart string `yaml:"week_start" json:"week_start"`

	// HorizonDays is how many days before and after the reference instant
	// recurring seed events are expanded.
	HorizonDays int `yaml:"horizon_days" json:"horizon_days"`

	Log LogConfig `yaml:"log" json:"log"`

	// Seeds is the list of ICS files imported at startup.
	Seeds []SeedConfig `yaml:"seeds" json:"seeds"`

	// EntriesFile, if set, is a YAML document of entry configs imported
	// alongside the seeds.
	EntriesFile string `yaml:"entries_file,omitempty" json:"entries_file,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Timezone:    defaultTimezone,
		WeekStart:   defaultWeekStart,
		HorizonDays: defaultHorizonDays,
		Log: LogConfig{
			Level:  defaultLogLevel,
			Format: defaultLogFormat,
		},
		Seeds: []SeedConfig{},
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs (e.g., older versions) still behave correctly.
func (c *Config) Normalize() {
	if c.Timezone == "" {
		c.Timezone = defaultTimezone
	}
	// WeekStart default & validation.
	c.WeekStart = strings.ToLower(strings.TrimSpace(c.WeekStart))
	switch c.WeekStart {
	case "monday", "sunday":
		// ok
	default:
		// Unknown value; fall back to monday to avoid surprising ranges.
		c.WeekStart = defaultWeekStart
	}
	if c.HorizonDays <= 0 {
		c.HorizonDays = defaultHorizonDays
	}

	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		c.Log.Level = defaultLogLevel
	}
	if c.Log.Format != "json" {
		c.Log.Format = defaultLogFormat
	}

	if c.Seeds == nil {
		c.Seeds = []SeedConfig{}
	}
	for i := range c.Seeds {
		if c.Seeds[i].ID == "" {
			c.Seeds[i].ID = strings.TrimSuffix(filepath.Base(c.Seeds[i].Path), filepath.Ext(c.Seeds[i].Path))
		}
		if c.Seeds[i].Name == "" {
			c.Seeds[i].Name = c.Seeds[i].ID
		}
	}
}

// Location resolves Timezone. An unknown zone falls back to UTC and is
// reported through the error so the caller can log it.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC, err
	}
	return loc, nil
}

// Weekday returns the first day of the week for agenda ranges.
func (c *Config) Weekday() time.Weekday {
	if c.WeekStart == "sunday" {
		return time.Sunday
	}
	return time.Monday
}

// Resolve returns p relative to the directory of the config file at
// configPath. Absolute paths are returned unchanged.
func Resolve(configPath, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(filepath.Dir(configPath), p)
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist:
//   - create parent directory if needed
//   - write a default config with 0600 perms
//   - return the default config
//   - If the file exists:
//   - read YAML and unmarshal into Config
//   - normalize defaults
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes the given configuration to the specified path.
//
// Implementation details:
//   - Ensures parent directory exists (0700).
//   - Marshals cfg to YAML.
//   - Writes atomically via natefinch/atomic (temp file + rename).
//   - Ensures final file permissions are 0600.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return err
	}

	// atomic keeps the mode of a file it replaces; a fresh file gets
	// whatever the temp file had.
	return os.Chmod(path, 0o600)
}

// Save is a convenience method on Config that delegates to the package-level
// Save function:
//
//	cfg, _ := config.Load(path)
//	// ... mutate cfg ...
//	if err := cfg.Save(path); err != nil { ... }
func (c *Config) Save(path string) error {
	return Save(path, c)
}
