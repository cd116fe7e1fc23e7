// Package config loads the plancore.yaml file and layers environment
// variables on top. The file is optional; a missing file yields defaults so
// the CLI works out of the box with an embedded sqlite database.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultPath is where Load looks when no explicit path is given.
const DefaultPath = "plancore.yaml"

// StorageConfig selects and parameterizes the persistent store backend.
type StorageConfig struct {
	Driver      string `yaml:"driver"` // memory|sqlite|postgres|badger
	SQLitePath  string `yaml:"sqlite_path,omitempty"`
	PostgresDSN string `yaml:"postgres_dsn,omitempty"`
	BadgerDir   string `yaml:"badger_dir,omitempty"`
}

// BlobConfig selects and parameterizes the report artifact backend.
type BlobConfig struct {
	Driver      string `yaml:"driver"` // fs|s3|memory
	FSRoot      string `yaml:"fs_root,omitempty"`
	S3Bucket    string `yaml:"s3_bucket,omitempty"`
	S3Region    string `yaml:"s3_region,omitempty"`
	S3Endpoint  string `yaml:"s3_endpoint,omitempty"`
	S3PathStyle bool   `yaml:"s3_path_style,omitempty"`
}

// Config models plancore.yaml.
type Config struct {
	Storage  StorageConfig `yaml:"storage"`
	Blob     BlobConfig    `yaml:"blob"`
	LogLevel string        `yaml:"log_level,omitempty"` // debug|info|warn|error
}

// Default returns the configuration used when no file or overrides exist.
func Default() Config {
	return Config{
		Storage:  StorageConfig{Driver: "sqlite", SQLitePath: "plancore.db"},
		Blob:     BlobConfig{Driver: "fs", FSRoot: "./reportdata"},
		LogLevel: "info",
	}
}

// Load reads the file at path (DefaultPath when empty), applies environment
// overrides, and validates the result. A missing file is not an error.
func Load(path string) (Config, error) {
	if path == "" {
		path = DefaultPath
	}
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	overlay(&c.Storage.Driver, "PLANCORE_STORAGE_DRIVER")
	overlay(&c.Storage.SQLitePath, "PLANCORE_SQLITE_PATH")
	overlay(&c.Storage.PostgresDSN, "PLANCORE_POSTGRES_DSN")
	overlay(&c.Storage.BadgerDir, "PLANCORE_BADGER_DIR")
	overlay(&c.Blob.Driver, "PLANCORE_BLOB_DRIVER")
	overlay(&c.Blob.FSRoot, "PLANCORE_BLOB_FS_ROOT")
	overlay(&c.Blob.S3Bucket, "PLANCORE_BLOB_S3_BUCKET")
	overlay(&c.Blob.S3Region, "PLANCORE_BLOB_S3_REGION")
	overlay(&c.Blob.S3Endpoint, "PLANCORE_BLOB_S3_ENDPOINT")
	if v := os.Getenv("PLANCORE_BLOB_S3_PATH_STYLE"); v != "" {
		c.Blob.S3PathStyle = strings.EqualFold(v, "true")
	}
	overlay(&c.LogLevel, "PLANCORE_LOG_LEVEL")
}

func overlay(target *string, key string) {
	if v := os.Getenv(key); v != "" {
		*target = v
	}
}

func (c *Config) applyDefaults() {
	def := Default()
	if strings.TrimSpace(c.Storage.Driver) == "" {
		c.Storage.Driver = def.Storage.Driver
	}
	if c.Storage.Driver == "sqlite" && strings.TrimSpace(c.Storage.SQLitePath) == "" {
		c.Storage.SQLitePath = def.Storage.SQLitePath
	}
	if strings.TrimSpace(c.Blob.Driver) == "" {
		c.Blob.Driver = def.Blob.Driver
	}
	if c.Blob.Driver == "fs" && strings.TrimSpace(c.Blob.FSRoot) == "" {
		c.Blob.FSRoot = def.Blob.FSRoot
	}
	if strings.TrimSpace(c.LogLevel) == "" {
		c.LogLevel = def.LogLevel
	}
}

func (c Config) validate() error {
	switch c.Storage.Driver {
	case "memory", "sqlite":
	case "postgres":
		if strings.TrimSpace(c.Storage.PostgresDSN) == "" {
			return fmt.Errorf("storage.postgres_dsn is required for the postgres driver")
		}
	case "badger":
		if strings.TrimSpace(c.Storage.BadgerDir) == "" {
			return fmt.Errorf("storage.badger_dir is required for the badger driver")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	switch c.Blob.Driver {
	case "fs", "memory":
	case "s3":
		if strings.TrimSpace(c.Blob.S3Bucket) == "" {
			return fmt.Errorf("blob.s3_bucket is required for the s3 driver")
		}
	default:
		return fmt.Errorf("unknown blob driver %q", c.Blob.Driver)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.LogLevel)
	}
	return nil
}
