// Package config reads process settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	DispatchInline = "inline"
	DispatchRedis  = "redis"
)

type Config struct {
	HTTPAddr    string
	MetricsAddr string

	StoreDriver string
	PostgresDSN string
	SQLitePath  string
	DBMaxConns  int

	StorageRoot    string
	MaxUploadBytes int64

	DispatchMode    string
	RedisAddr       string
	QueueKey        string
	ProcessingKey   string
	Workers         int
	RequeueInterval time.Duration

	LogLevel  string
	LogFormat string
}

// Load reads .env files (missing ones are ignored) and then the environment.
// Variables already set in the environment win over the files.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

	cfg := Config{
		HTTPAddr:        envOr("HTTP_ADDR", ":8080"),
		MetricsAddr:     envOr("METRICS_ADDR", ":9090"),
		StoreDriver:     strings.ToLower(envOr("STORE_DRIVER", DriverSQLite)),
		PostgresDSN:     os.Getenv("POSTGRES_DSN"),
		SQLitePath:      envOr("SQLITE_PATH", "data/quality.db"),
		DBMaxConns:      envIntOr("DB_MAX_CONNS", 10),
		StorageRoot:     envOr("STORAGE_ROOT", "media"),
		MaxUploadBytes:  int64(envIntOr("MAX_UPLOAD_BYTES", 100<<20)),
		DispatchMode:    strings.ToLower(envOr("DISPATCH_MODE", DispatchInline)),
		RedisAddr:       os.Getenv("REDIS_ADDR"),
		QueueKey:        envOr("REDIS_QUEUE_KEY", "quality:jobs"),
		ProcessingKey:   envOr("REDIS_PROCESSING_KEY", "quality:jobs:processing"),
		Workers:         envIntOr("WORKERS", 4),
		RequeueInterval: envDurationOr("REQUEUE_INTERVAL", 30*time.Second),
		LogLevel:        envOr("LOG_LEVEL", "info"),
		LogFormat:       envOr("LOG_FORMAT", "json"),
	}
	// METRICS_ADDR set to empty disables the worker's metrics listener.
	if v, ok := os.LookupEnv("METRICS_ADDR"); ok {
		cfg.MetricsAddr = v
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	var errs []error

	switch c.StoreDriver {
	case DriverSQLite:
		if c.SQLitePath == "" {
			errs = append(errs, errors.New("SQLITE_PATH is required for the sqlite driver"))
		}
	case DriverPostgres:
		if c.PostgresDSN == "" {
			errs = append(errs, errors.New("POSTGRES_DSN is required for the postgres driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("STORE_DRIVER must be %q or %q, got %q", DriverSQLite, DriverPostgres, c.StoreDriver))
	}

	switch c.DispatchMode {
	case DispatchInline:
	case DispatchRedis:
		if c.RedisAddr == "" {
			errs = append(errs, errors.New("REDIS_ADDR is required for redis dispatch"))
		}
	default:
		errs = append(errs, fmt.Errorf("DISPATCH_MODE must be %q or %q, got %q", DispatchInline, DispatchRedis, c.DispatchMode))
	}

	if c.Workers <= 0 {
		errs = append(errs, fmt.Errorf("WORKERS must be positive, got %d", c.Workers))
	}
	if c.DBMaxConns <= 0 {
		errs = append(errs, fmt.Errorf("DB_MAX_CONNS must be positive, got %d", c.DBMaxConns))
	}
	if c.MaxUploadBytes <= 0 {
		errs = append(errs, fmt.Errorf("MAX_UPLOAD_BYTES must be positive, got %d", c.MaxUploadBytes))
	}
	if c.RequeueInterval <= 0 {
		errs = append(errs, fmt.Errorf("REQUEUE_INTERVAL must be positive, got %s", c.RequeueInterval))
	}
	if c.StorageRoot == "" {
		errs = append(errs, errors.New("STORAGE_ROOT is required"))
	}
	return errors.Join(errs...)
}

// DSN returns the store location with any password masked.
func (c Config) DSN() string {
	if c.StoreDriver == DriverPostgres {
		return RedactDSN(c.PostgresDSN)
	}
	return c.SQLitePath
}

var dsnPassword = regexp.MustCompile(`://([^:/?#]+):([^@/]+)@`)

// RedactDSN masks the password of a URL-style DSN: user:pass@ -> user:****@.
func RedactDSN(dsn string) string {
	return dsnPassword.ReplaceAllString(dsn, `://$1:****@`)
}

func envOr(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func envIntOr(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func envDurationOr(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
