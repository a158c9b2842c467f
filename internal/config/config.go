// Package config loads phsen settings from an optional YAML file and PHSEN_*
// environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the full runtime configuration.
type Config struct {
	Storage    Storage    `yaml:"storage"`
	Blob       Blob       `yaml:"blob"`
	Processing Processing `yaml:"processing"`
	Logging    Logging    `yaml:"logging"`
	Metrics    string     `yaml:"metrics"`
}

// Storage selects the run store backend.
type Storage struct {
	Driver      string `yaml:"driver"`
	SQLitePath  string `yaml:"sqlite_path"`
	PostgresDSN string `yaml:"postgres_dsn"`
}

// Blob selects the artifact blob backend.
type Blob struct {
	Driver string `yaml:"driver"`
	FSRoot string `yaml:"fs_root"`
	S3     S3     `yaml:"s3"`
}

// S3 holds bucket settings for the s3 blob driver.
type S3 struct {
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	PathStyle bool   `yaml:"path_style"`
}

// Processing tunes batch computation.
type Processing struct {
	Workers  int     `yaml:"workers"`
	Salinity float64 `yaml:"salinity"`
}

// Logging configures the slog handler built by the CLI.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Environment variable names.
const (
	EnvStorageDriver  = "PHSEN_STORAGE_DRIVER"
	EnvSQLitePath     = "PHSEN_SQLITE_PATH"
	EnvPostgresDSN    = "PHSEN_POSTGRES_DSN"
	EnvBlobDriver     = "PHSEN_BLOB_DRIVER"
	EnvBlobFSRoot     = "PHSEN_BLOB_FS_ROOT"
	EnvBlobS3Bucket   = "PHSEN_BLOB_S3_BUCKET"
	EnvBlobS3Region   = "PHSEN_BLOB_S3_REGION"
	EnvBlobS3Endpoint = "PHSEN_BLOB_S3_ENDPOINT"
	EnvBlobS3Path     = "PHSEN_BLOB_S3_PATH_STYLE"
	EnvWorkers        = "PHSEN_WORKERS"
	EnvSalinity       = "PHSEN_SALINITY"
	EnvLogLevel       = "PHSEN_LOG_LEVEL"
	EnvLogFormat      = "PHSEN_LOG_FORMAT"
	EnvMetrics        = "PHSEN_METRICS"
)

// Metrics backends.
const (
	MetricsExpvar     = "expvar"
	MetricsPrometheus = "prometheus"
	MetricsNone       = "none"
)

// Default returns the configuration used when nothing is set: in-memory runs,
// filesystem artifacts under ./artifacts, one worker per CPU, salinity 35.
func Default() Config {
	return Config{
		Storage:    Storage{Driver: "memory", SQLitePath: "phsen.db"},
		Blob:       Blob{Driver: "fs", FSRoot: "./artifacts", S3: S3{Region: "us-east-1"}},
		Processing: Processing{Workers: runtime.GOMAXPROCS(0), Salinity: 35},
		Logging:    Logging{Level: "info", Format: "text"},
		Metrics:    MetricsExpvar,
	}
}

// Load reads defaults, then the YAML file at path (when non-empty, with
// ${VAR} expansion), then environment overrides, and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from PHSEN_* variables found by lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(name); ok && v != "" {
			*dst = v
		}
	}
	str(EnvStorageDriver, &c.Storage.Driver)
	str(EnvSQLitePath, &c.Storage.SQLitePath)
	str(EnvPostgresDSN, &c.Storage.PostgresDSN)
	str(EnvBlobDriver, &c.Blob.Driver)
	str(EnvBlobFSRoot, &c.Blob.FSRoot)
	str(EnvBlobS3Bucket, &c.Blob.S3.Bucket)
	str(EnvBlobS3Region, &c.Blob.S3.Region)
	str(EnvBlobS3Endpoint, &c.Blob.S3.Endpoint)
	str(EnvLogLevel, &c.Logging.Level)
	str(EnvLogFormat, &c.Logging.Format)
	str(EnvMetrics, &c.Metrics)

	var errs []error
	if v, ok := lookup(EnvBlobS3Path); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", EnvBlobS3Path, err))
		}
		c.Blob.S3.PathStyle = b
	}
	if v, ok := lookup(EnvWorkers); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", EnvWorkers, err))
		}
		c.Processing.Workers = n
	}
	if v, ok := lookup(EnvSalinity); ok && v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", EnvSalinity, err))
		}
		c.Processing.Salinity = f
	}
	return errors.Join(errs...)
}

// Validate rejects unknown drivers and out-of-range processing settings.
func (c Config) Validate() error {
	var errs []error
	switch c.Storage.Driver {
	case "memory", "sqlite":
	case "postgres":
		if c.Storage.PostgresDSN == "" {
			errs = append(errs, errors.New("storage: postgres_dsn required for postgres driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("storage: unknown driver %q", c.Storage.Driver))
	}
	switch c.Blob.Driver {
	case "fs", "memory":
	case "s3":
		if c.Blob.S3.Bucket == "" {
			errs = append(errs, errors.New("blob: s3.bucket required for s3 driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("blob: unknown driver %q", c.Blob.Driver))
	}
	if c.Processing.Workers <= 0 {
		errs = append(errs, fmt.Errorf("processing: workers must be positive, got %d", c.Processing.Workers))
	}
	if c.Processing.Salinity < 0 {
		errs = append(errs, fmt.Errorf("processing: salinity must not be negative, got %g", c.Processing.Salinity))
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("logging: unknown level %q", c.Logging.Level))
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("logging: unknown format %q", c.Logging.Format))
	}
	switch c.Metrics {
	case MetricsExpvar, MetricsPrometheus, MetricsNone:
	default:
		errs = append(errs, fmt.Errorf("metrics: unknown backend %q", c.Metrics))
	}
	return errors.Join(errs...)
}
