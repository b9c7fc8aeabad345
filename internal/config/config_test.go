package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vango-dev/stan/internal/errors"
)

func TestNew(t *testing.T) {
	cfg := New()

	if cfg.Backend != DefaultBackend {
		t.Errorf("Backend = %q, want %q", cfg.Backend, DefaultBackend)
	}
	if cfg.File.Dir != DefaultDir {
		t.Errorf("File.Dir = %q, want %q", cfg.File.Dir, DefaultDir)
	}
	if cfg.SQLite.Path != DefaultSQLitePath {
		t.Errorf("SQLite.Path = %q, want %q", cfg.SQLite.Path, DefaultSQLitePath)
	}
	if cfg.Metrics.Namespace != DefaultNamespace {
		t.Errorf("Metrics.Namespace = %q", cfg.Metrics.Namespace)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestLoadTOML(t *testing.T) {
	tmpDir := t.TempDir()

	_, err := Load(tmpDir)
	if !errors.Is(err, errors.New(errors.CodeConfigNotFound)) {
		t.Errorf("Load of empty dir = %v, want S101", err)
	}

	configTOML := `backend = "sqlite"

[sqlite]
path = "data/state.db"

[log]
level = "debug"
format = "json"
`
	if err := os.WriteFile(filepath.Join(tmpDir, TOMLFileName), []byte(configTOML), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Backend != BackendSQLite {
		t.Errorf("Backend = %q", cfg.Backend)
	}
	if got, want := cfg.SQLitePath(), filepath.Join(tmpDir, "data", "state.db"); got != want {
		t.Errorf("SQLitePath() = %q, want %q", got, want)
	}
	if cfg.LogLevel() != slog.LevelDebug {
		t.Errorf("LogLevel() = %v", cfg.LogLevel())
	}
	if cfg.Log.Format != "json" {
		t.Errorf("Log.Format = %q", cfg.Log.Format)
	}
	if cfg.File.Dir != DefaultDir {
		t.Errorf("defaults not applied, File.Dir = %q", cfg.File.Dir)
	}
	if cfg.Dir() != tmpDir {
		t.Errorf("Dir() = %q, want %q", cfg.Dir(), tmpDir)
	}
}

func TestLoadJSON(t *testing.T) {
	tmpDir := t.TempDir()
	configJSON := `{
  "backend": "s3",
  "s3": {"bucket": "b", "region": "eu-west-1", "pathStyle": true}
}
`
	if err := os.WriteFile(filepath.Join(tmpDir, JSONFileName), []byte(configJSON), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.S3.Bucket != "b" || !cfg.S3.PathStyle {
		t.Errorf("S3 = %+v", cfg.S3)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestLoadPrefersTOML(t *testing.T) {
	tmpDir := t.TempDir()
	os.WriteFile(filepath.Join(tmpDir, TOMLFileName), []byte(`backend = "sqlite"`), 0644)
	os.WriteFile(filepath.Join(tmpDir, JSONFileName), []byte(`{"backend": "s3"}`), 0644)

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Backend != BackendSQLite {
		t.Errorf("Backend = %q, want sqlite from stan.toml", cfg.Backend)
	}
}

func TestLoadFileErrors(t *testing.T) {
	tmpDir := t.TempDir()

	bad := filepath.Join(tmpDir, "bad.toml")
	os.WriteFile(bad, []byte("backend = "), 0644)
	if _, err := LoadFile(bad); !errors.Is(err, errors.New(errors.CodeConfigParse)) {
		t.Errorf("invalid TOML: err = %v, want S102", err)
	}

	badJSON := filepath.Join(tmpDir, "bad.json")
	os.WriteFile(badJSON, []byte("{"), 0644)
	if _, err := LoadFile(badJSON); !errors.Is(err, errors.New(errors.CodeConfigParse)) {
		t.Errorf("invalid JSON: err = %v, want S102", err)
	}

	yml := filepath.Join(tmpDir, "stan.yaml")
	os.WriteFile(yml, []byte("backend: file"), 0644)
	if _, err := LoadFile(yml); !errors.Is(err, errors.New(errors.CodeConfigUnsupported)) {
		t.Errorf("yaml config: err = %v, want S104", err)
	}

	if _, err := LoadFile(filepath.Join(tmpDir, "missing.toml")); !errors.Is(err, errors.New(errors.CodeConfigNotFound)) {
		t.Errorf("missing file: err = %v, want S101", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		detail string
	}{
		{"unknown backend", func(c *Config) { c.Backend = "redis" }, "backend must be"},
		{"bad file format", func(c *Config) { c.File.Format = "xml" }, "file.format"},
		{"s3 without bucket", func(c *Config) { c.Backend = BackendS3; c.S3.Region = "r" }, "s3.bucket"},
		{"s3 without region", func(c *Config) { c.Backend = BackendS3; c.S3.Bucket = "b" }, "s3.region"},
		{"bad log level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := New()
			tt.modify(cfg)
			err := cfg.Validate()
			if !errors.Is(err, errors.New(errors.CodeConfigInvalid)) {
				t.Fatalf("err = %v, want S103", err)
			}
			var se *errors.StoreError
			if !errors.As(err, &se) || !strings.Contains(se.Detail, tt.detail) {
				t.Errorf("detail = %q, want it to mention %q", se.Detail, tt.detail)
			}
		})
	}
}

func TestSaveToRoundTrip(t *testing.T) {
	for _, name := range []string{TOMLFileName, JSONFileName} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			cfg := New()
			cfg.Backend = BackendSQLite
			cfg.File.Format = "yaml"

			if err := cfg.SaveTo(path); err != nil {
				t.Fatalf("SaveTo error: %v", err)
			}
			if cfg.Path() != path {
				t.Errorf("Path() = %q", cfg.Path())
			}

			loaded, err := LoadFile(path)
			if err != nil {
				t.Fatalf("LoadFile error: %v", err)
			}
			if loaded.Backend != BackendSQLite || loaded.File.Format != "yaml" {
				t.Errorf("loaded = %+v", loaded)
			}
		})
	}

	if err := New().SaveTo(filepath.Join(t.TempDir(), "stan.ini")); err == nil {
		t.Error("SaveTo with an unknown extension should fail")
	}
}

func TestFindRoot(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}
	if _, err := FindRoot(nested); err == nil {
		t.Error("FindRoot without a config should fail")
	}

	os.WriteFile(filepath.Join(root, TOMLFileName), []byte(""), 0644)
	got, err := FindRoot(nested)
	if err != nil {
		t.Fatalf("FindRoot error: %v", err)
	}
	want, _ := filepath.Abs(root)
	if got != want {
		t.Errorf("FindRoot() = %q, want %q", got, want)
	}
	if !Exists(root) || Exists(nested) {
		t.Error("Exists() mismatch")
	}
}
