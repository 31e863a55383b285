// Package config provides configuration management for membase.
// It loads settings from environment variables with the MEMBASE_ prefix and
// provides sensible defaults. An optional YAML file can overlay the
// environment (file values win when present).
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/scrypster/membase/pkg/types"
)

// Config holds all configuration for the membase persistence layer.
type Config struct {
	Database    DatabaseConfig    `yaml:"database"`
	ObjectStore ObjectStoreConfig `yaml:"object_store"`
	Archive     ArchiveConfig     `yaml:"archive"`
}

// DatabaseConfig configures the relational (hot/cold) tier. A missing DSN is
// a fatal setup error at the point of first use — there is no safe relational
// fallback.
type DatabaseConfig struct {
	Driver string `yaml:"driver"` // postgres or sqlite (default: postgres)
	DSN    string `yaml:"dsn"`
}

// ObjectStoreConfig configures the deep tier. The fields are all-or-nothing:
// when Endpoint, Bucket, AccessKeyID, and SecretAccessKey are not all set the
// backend factory silently degrades to the in-memory reference backend so
// local and test environments keep working without credentials.
type ObjectStoreConfig struct {
	Provider        string `yaml:"provider"` // s3, bos, oss (default: s3)
	Endpoint        string `yaml:"endpoint"`
	Region          string `yaml:"region"`
	Bucket          string `yaml:"bucket"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

// ArchiveConfig holds the tier-transition policy windows, in days, plus the
// interval for the archival loop in cmd/membase-archive.
type ArchiveConfig struct {
	HotDays  int    `yaml:"hot_days"`  // default: 7
	ColdDays int    `yaml:"cold_days"` // default: 180
	DeepDays int    `yaml:"deep_days"` // default: 1095
	Interval string `yaml:"interval"`  // duration string (default: 1h)
}

// Policy converts the day counts into a normalized types.ArchivePolicy.
func (a ArchiveConfig) Policy() types.ArchivePolicy {
	p := types.ArchivePolicy{
		HotWindow:  time.Duration(a.HotDays) * 24 * time.Hour,
		ColdWindow: time.Duration(a.ColdDays) * 24 * time.Hour,
		DeepWindow: time.Duration(a.DeepDays) * 24 * time.Hour,
	}
	p.Normalize()
	return p
}

// IntervalDuration parses the archive loop interval, falling back to 1h.
func (a ArchiveConfig) IntervalDuration() time.Duration {
	if a.Interval != "" {
		if d, err := time.ParseDuration(a.Interval); err == nil && d > 0 {
			return d
		}
	}
	return time.Hour
}

// LoadConfig builds a Config from environment variables and defaults.
func LoadConfig() (*Config, error) {
	return buildBaseConfig(), nil
}

// LoadFile builds a Config from the environment and then overlays values from
// the YAML file at path. Only fields present in the file override.
func LoadFile(path string) (*Config, error) {
	cfg := buildBaseConfig()

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: failed to read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse %s: %w", path, err)
	}

	return cfg, nil
}

// buildBaseConfig constructs a Config with values from environment variables
// and defaults. This is the shared base for LoadConfig and LoadFile.
func buildBaseConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver: getEnv("MEMBASE_DB_DRIVER", "postgres"),
			DSN:    getEnv("MEMBASE_DB_DSN", ""),
		},
		ObjectStore: ObjectStoreConfig{
			Provider:        getEnv("MEMBASE_STORE_PROVIDER", "s3"),
			Endpoint:        getEnv("MEMBASE_STORE_ENDPOINT", ""),
			Region:          getEnv("MEMBASE_STORE_REGION", "us-east-1"),
			Bucket:          getEnv("MEMBASE_STORE_BUCKET", ""),
			AccessKeyID:     getEnv("MEMBASE_STORE_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("MEMBASE_STORE_SECRET_ACCESS_KEY", ""),
		},
		Archive: ArchiveConfig{
			HotDays:  getEnvInt("MEMBASE_ARCHIVE_HOT_DAYS", 7),
			ColdDays: getEnvInt("MEMBASE_ARCHIVE_COLD_DAYS", 180),
			DeepDays: getEnvInt("MEMBASE_ARCHIVE_DEEP_DAYS", 1095),
			Interval: getEnv("MEMBASE_ARCHIVE_INTERVAL", "1h"),
		},
	}
}

// getEnv retrieves a string environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an integer environment variable or returns a default
// value. If the variable exists but cannot be parsed, the default is used.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
