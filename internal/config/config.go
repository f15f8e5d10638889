// Package config loads the engine configuration from a YAML file, with
// sensible defaults filled in for anything missing.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"calcore/internal/week"
)

// AccountConfig describes one connected provider account.
type AccountConfig struct {
	// ID is the internal account identifier, also used for token files.
	ID string `yaml:"id"`
	// Platform selects the provider client: "google" or "caldav".
	Platform string `yaml:"platform"`
	Email    string `yaml:"email"`

	// Endpoint, Username and PasswordEnv configure CalDAV accounts; the
	// app-specific password is read from the named environment variable.
	Endpoint    string `yaml:"endpoint,omitempty"`
	Username    string `yaml:"username,omitempty"`
	PasswordEnv string `yaml:"password_env,omitempty"`
}

// Config is the top-level engine configuration.
type Config struct {
	// Timezone is the IANA display timezone, e.g. "America/Sao_Paulo".
	Timezone string `yaml:"timezone"`

	// WeekStart is "monday" or "sunday".
	WeekStart string `yaml:"week_start"`

	// WindowMonthsBack/Forward size the rolling event window around the
	// displayed week.
	WindowMonthsBack    int `yaml:"window_months_back"`
	WindowMonthsForward int `yaml:"window_months_forward"`

	// RefreshCron schedules periodic refresh in watch mode.
	RefreshCron string `yaml:"refresh"`

	// StateDir holds token files and file-backed snapshots.
	StateDir string `yaml:"state_dir"`

	// PostgresDSN, when set, switches snapshots to a Postgres table.
	PostgresDSN string `yaml:"postgres_dsn,omitempty"`

	LogLevel string `yaml:"log_level"`

	// UserID namespaces the persisted event window.
	UserID string `yaml:"user_id"`

	Accounts []AccountConfig `yaml:"accounts"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Timezone:            "UTC",
		WeekStart:           "monday",
		WindowMonthsBack:    2,
		WindowMonthsForward: 3,
		RefreshCron:         "*/5 * * * *",
		StateDir:            ".",
		LogLevel:            "info",
		UserID:              "default",
	}
}

// Load reads the config file at path, or returns defaults when it does not
// exist.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			cfg.Normalize()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	cfg.Normalize()
	return cfg, nil
}

// Normalize fills in missing or invalid values with defaults so partially
// filled configs still behave.
func (c *Config) Normalize() {
	def := DefaultConfig()
	if c.Timezone == "" {
		c.Timezone = def.Timezone
	}
	switch c.WeekStart {
	case "monday", "sunday":
	default:
		c.WeekStart = def.WeekStart
	}
	if c.WindowMonthsBack <= 0 {
		c.WindowMonthsBack = def.WindowMonthsBack
	}
	if c.WindowMonthsForward <= 0 {
		c.WindowMonthsForward = def.WindowMonthsForward
	}
	if c.RefreshCron == "" {
		c.RefreshCron = def.RefreshCron
	}
	if c.StateDir == "" {
		c.StateDir = def.StateDir
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
	if c.UserID == "" {
		c.UserID = def.UserID
	}
	for i := range c.Accounts {
		if c.Accounts[i].Platform == "" {
			c.Accounts[i].Platform = "google"
		}
	}
}

// Location resolves the configured display timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// StartDay maps the configured week start onto the calculator's type.
func (c *Config) StartDay() week.StartDay {
	if c.WeekStart == "sunday" {
		return week.StartSunday
	}
	return week.StartMonday
}
