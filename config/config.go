// Package config resolves runtime settings from the environment. Defaults
// cover local development; the database password has no default and must be
// supplied explicitly.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pgstash/pgstash/db"
)

type LookupFunc func(string) (string, bool)

type Config struct {
	Database      DatabaseConfig
	Cache         CacheConfig
	S3            S3Config
	Observability ObservabilityConfig
}

type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	SSLMode  string
}

type CacheConfig struct {
	Dir        string
	SampleRows int
}

type S3Config struct {
	Endpoint        string
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	UseSSL          bool
	Prefix          string
}

type ObservabilityConfig struct {
	LogLevel slog.Level
	LogJSON  bool
}

func LoadFromEnv() (Config, error) {
	return Load(os.LookupEnv)
}

func Load(lookup LookupFunc) (Config, error) {
	if lookup == nil {
		return Config{}, fmt.Errorf("lookup function is required")
	}

	cfg := defaults()

	if err := applyString(lookup, "PGSTASH_HOST", &cfg.Database.Host); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "PGSTASH_PORT", &cfg.Database.Port); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "PGSTASH_DATABASE", &cfg.Database.Name); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "PGSTASH_USER", &cfg.Database.User); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "PGSTASH_PASSWORD", &cfg.Database.Password); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "PGSTASH_SSLMODE", &cfg.Database.SSLMode); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "PGSTASH_CACHE_DIR", &cfg.Cache.Dir); err != nil {
		return Config{}, err
	}
	if err := applyInt(lookup, "PGSTASH_SAMPLE_ROWS", &cfg.Cache.SampleRows); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "PGSTASH_S3_ENDPOINT", &cfg.S3.Endpoint); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "PGSTASH_S3_REGION", &cfg.S3.Region); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "PGSTASH_S3_BUCKET", &cfg.S3.Bucket); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "PGSTASH_S3_ACCESS_KEY", &cfg.S3.AccessKeyID); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "PGSTASH_S3_SECRET_KEY", &cfg.S3.SecretAccessKey); err != nil {
		return Config{}, err
	}
	if err := applyBool(lookup, "PGSTASH_S3_USE_SSL", &cfg.S3.UseSSL); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "PGSTASH_S3_PREFIX", &cfg.S3.Prefix); err != nil {
		return Config{}, err
	}
	if err := applyBool(lookup, "PGSTASH_LOG_JSON", &cfg.Observability.LogJSON); err != nil {
		return Config{}, err
	}
	if err := applyLogLevel(lookup, "PGSTASH_LOG_LEVEL", &cfg.Observability.LogLevel); err != nil {
		return Config{}, err
	}

	if cfg.Cache.SampleRows < 1 {
		return Config{}, fmt.Errorf("PGSTASH_SAMPLE_ROWS must be >= 1")
	}
	return cfg, nil
}

// DB maps the database section onto a connection config.
func (c Config) DB() db.Config {
	return db.Config{
		Host:     c.Database.Host,
		Port:     c.Database.Port,
		Database: c.Database.Name,
		User:     c.Database.User,
		Password: c.Database.Password,
		SSLMode:  c.Database.SSLMode,
	}
}

// ResolveCacheDir expands a leading "~" against the user home directory.
// The directory is not created; stores validate its existence on save.
func (c Config) ResolveCacheDir() (string, error) {
	dir := c.Cache.Dir
	if dir == "~" || strings.HasPrefix(dir, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		dir = filepath.Join(home, strings.TrimPrefix(dir, "~"))
	}
	return dir, nil
}

func defaults() Config {
	return Config{
		Database: DatabaseConfig{
			Host: "localhost",
			Port: "5432",
			Name: "platform",
			User: "postgres",
		},
		Cache: CacheConfig{
			Dir:        "~/shared/rds",
			SampleRows: 5,
		},
		S3: S3Config{
			Region: "us-east-1",
		},
		Observability: ObservabilityConfig{
			LogLevel: slog.LevelInfo,
			LogJSON:  true,
		},
	}
}

func applyString(lookup LookupFunc, key string, dst *string) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	*dst = strings.TrimSpace(raw)
	return nil
}

func applyInt(lookup LookupFunc, key string, dst *int) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyBool(lookup LookupFunc, key string, dst *bool) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyLogLevel(lookup LookupFunc, key string, dst *slog.Level) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		*dst = slog.LevelDebug
	case "info":
		*dst = slog.LevelInfo
	case "warn", "warning":
		*dst = slog.LevelWarn
	case "error":
		*dst = slog.LevelError
	default:
		return fmt.Errorf("invalid %s: %q", key, raw)
	}
	return nil
}
