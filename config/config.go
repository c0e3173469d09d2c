// Package config loads the CLI's YAML configuration.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"library-catalog/library"
)

// Config is the on-disk configuration of the library CLI.
type Config struct {
	Database               string             `yaml:"database"`
	LogFile                string             `yaml:"log_file"`
	LogLevel               string             `yaml:"log_level"`
	BcryptCost             int                `yaml:"bcrypt_cost"`
	LoginAttemptsPerMinute int                `yaml:"login_attempts_per_minute"`
	SeedUsers              []library.SeedUser `yaml:"seed_users"`
	CafeMenu               []library.MenuItem `yaml:"cafe_menu"`
	Tracing                Tracing            `yaml:"tracing"`
}

// Tracing controls the optional span exporter.
type Tracing struct {
	Enabled bool   `yaml:"enabled"`
	File    string `yaml:"file"`
}

// Default returns the configuration written on first run.
func Default() Config {
	return Config{
		Database:               "library.db",
		LogFile:                "book_management.log",
		LogLevel:               "info",
		BcryptCost:             10,
		LoginAttemptsPerMinute: 5,
		SeedUsers: []library.SeedUser{
			{Username: "admin", Password: "admin123", Role: library.RoleAdmin},
			{Username: "librarian", Password: "librarian123", Role: library.RoleLibrarian},
			{Username: "customer", Password: "customer123", Role: library.RoleCustomer, Email: "customer@email.com"},
		},
		CafeMenu: append([]library.MenuItem(nil), library.DefaultMenu...),
		Tracing:  Tracing{File: "traces.jsonl"},
	}
}

// Load reads the configuration at path, creating it with defaults if it does
// not exist yet. Fields missing from the file keep their default values.
func Load(path string) (Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := createDefault(path); err != nil {
			return Config{}, err
		}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read the config file: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse the config file %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// Validate rejects settings the library cannot run with.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Database) == "" {
		return fmt.Errorf("config: database path is required")
	}
	if c.BcryptCost != 0 && (c.BcryptCost < 4 || c.BcryptCost > 31) {
		return fmt.Errorf("config: bcrypt_cost %d out of range 4-31", c.BcryptCost)
	}
	for _, s := range c.SeedUsers {
		if _, err := library.ParseRole(string(s.Role)); err != nil {
			return fmt.Errorf("config: seed user %s: %w", s.Username, err)
		}
	}
	for _, it := range c.CafeMenu {
		if it.Points < 0 {
			return fmt.Errorf("config: cafe item %s has negative price", it.Name)
		}
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Level parses LogLevel.
func (c Config) Level() (slog.Level, error) {
	var lvl slog.Level
	if c.LogLevel == "" {
		return slog.LevelInfo, nil
	}
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("config: log_level %q: %w", c.LogLevel, err)
	}
	return lvl, nil
}

func createDefault(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create the config directory: %w", err)
		}
	}
	data, err := yaml.Marshal(Default())
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
