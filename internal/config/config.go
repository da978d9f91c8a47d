// Package config loads custody settings from defaults, an optional YAML file
// and CUSTODY_* environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable, e.g. CUSTODY_DATABASE_PATH.
const EnvPrefix = "custody"

// DefaultFile is read when no config file is given and it exists.
const DefaultFile = "custody.yaml"

type Config struct {
	DatabasePath    string        `yaml:"databasePath"    split_words:"true"`
	ListenAddr      string        `yaml:"listenAddr"      split_words:"true"`
	MetricsAddr     string        `yaml:"metricsAddr"     split_words:"true"`
	LogPath         string        `yaml:"logPath"         split_words:"true"`
	AdminUser       string        `yaml:"adminUser"       split_words:"true"`
	TimeZone        string        `yaml:"timeZone"        split_words:"true"`
	Units           []string      `yaml:"units"`
	EquipmentTypes  []string      `yaml:"equipmentTypes"  split_words:"true"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout" split_words:"true"`
}

// Default returns the built-in configuration.
func Default() *Config {
	units := make([]string, 22)
	for i := range units {
		units[i] = fmt.Sprintf("%d師団", i+1)
	}
	return &Config{
		DatabasePath:    "custody.sqlite3",
		ListenAddr:      ":8080",
		MetricsAddr:     ":9090",
		AdminUser:       "admin",
		TimeZone:        "Asia/Tokyo",
		Units:           units,
		EquipmentTypes:  []string{"AM-38N", "MCF-10E", "KOF-09", "USB-12", "NCG-10R"},
		ShutdownTimeout: 10 * time.Second,
	}
}

// Load builds the configuration. An empty path falls back to DefaultFile if
// present; a missing explicit path is an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		if _, err := os.Stat(DefaultFile); err == nil {
			path = DefaultFile
		}
	}
	if path != "" {
		buf, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(buf, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}
	return cfg, nil
}

// Validate reports the first setting that cannot be used.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.ListenAddr) == "" {
		errs = append(errs, errors.New("listenAddr must not be empty"))
	}
	if strings.TrimSpace(c.DatabasePath) == "" {
		errs = append(errs, errors.New("databasePath must not be empty"))
	}
	if _, err := time.LoadLocation(c.TimeZone); err != nil {
		errs = append(errs, fmt.Errorf("timeZone %q: %w", c.TimeZone, err))
	}
	if c.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("shutdownTimeout must be positive"))
	}
	return errors.Join(errs...)
}

// Location returns the configured time zone.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}
