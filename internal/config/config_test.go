package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Processing.Salinity != 35 || cfg.Storage.Driver != "memory" || cfg.Blob.Driver != "fs" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
}

func TestLoadYAMLWithEnvExpansionAndOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "phsen.yaml")
	doc := `
storage:
  driver: sqlite
  sqlite_path: ${PHSEN_TEST_DIR}/runs.db
blob:
  driver: memory
processing:
  workers: 2
  salinity: 33.5
logging:
  level: debug
  format: json
metrics: prometheus
`
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("PHSEN_TEST_DIR", "/data")
	t.Setenv(EnvWorkers, "6")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Storage.Driver != "sqlite" || cfg.Storage.SQLitePath != "/data/runs.db" {
		t.Fatalf("unexpected storage %+v", cfg.Storage)
	}
	if cfg.Processing.Workers != 6 {
		t.Fatalf("expected env to override workers, got %d", cfg.Processing.Workers)
	}
	if cfg.Processing.Salinity != 33.5 || cfg.Blob.Driver != "memory" || cfg.Metrics != MetricsPrometheus {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.Blob.FSRoot != "./artifacts" {
		t.Fatalf("expected untouched default fs root, got %q", cfg.Blob.FSRoot)
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		EnvStorageDriver:  "postgres",
		EnvPostgresDSN:    "postgres://db/phsen",
		EnvBlobDriver:     "s3",
		EnvBlobS3Bucket:   "artifacts",
		EnvBlobS3Endpoint: "http://minio:9000",
		EnvBlobS3Path:     "true",
		EnvSalinity:       "34.2",
		EnvMetrics:        MetricsNone,
	}
	cfg := Default()
	if err := cfg.ApplyEnv(mapLookup(env)); err != nil {
		t.Fatalf("apply env: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !cfg.Blob.S3.PathStyle || cfg.Blob.S3.Endpoint != "http://minio:9000" || cfg.Processing.Salinity != 34.2 {
		t.Fatalf("unexpected config %+v", cfg)
	}
}

func TestApplyEnvRejectsMalformedNumbers(t *testing.T) {
	env := map[string]string{EnvWorkers: "many", EnvSalinity: "salty", EnvBlobS3Path: "perhaps"}
	cfg := Default()
	err := cfg.ApplyEnv(mapLookup(env))
	if err == nil {
		t.Fatalf("expected parse errors")
	}
	for _, name := range []string{EnvWorkers, EnvSalinity, EnvBlobS3Path} {
		if !strings.Contains(err.Error(), name) {
			t.Fatalf("expected error to mention %s: %v", name, err)
		}
	}
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]func(*Config){
		"storage driver":  func(c *Config) { c.Storage.Driver = "mysql" },
		"postgres dsn":    func(c *Config) { c.Storage.Driver = "postgres" },
		"blob driver":     func(c *Config) { c.Blob.Driver = "gcs" },
		"s3 bucket":       func(c *Config) { c.Blob.Driver = "s3" },
		"workers":         func(c *Config) { c.Processing.Workers = 0 },
		"salinity":        func(c *Config) { c.Processing.Salinity = -1 },
		"log level":       func(c *Config) { c.Logging.Level = "trace" },
		"log format":      func(c *Config) { c.Logging.Format = "xml" },
		"metrics backend": func(c *Config) { c.Metrics = "statsd" },
	}
	for name, mutate := range cases {
		cfg := Default()
		mutate(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected read error")
	}
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("storage: [unterminated"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "parse config") {
		t.Fatalf("expected parse error, got %v", err)
	}
}

func mapLookup(env map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}
}
