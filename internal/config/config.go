package config

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/vango-dev/stan/internal/codec"
	"github.com/vango-dev/stan/internal/errors"
)

const (
	// TOMLFileName is the preferred configuration file name.
	TOMLFileName = "stan.toml"

	// JSONFileName is the alternative configuration file name.
	JSONFileName = "stan.json"

	// DefaultBackend is the backend used when none is configured.
	DefaultBackend = BackendFile

	// DefaultDir is the default directory of the file backend.
	DefaultDir = ".stan"

	// DefaultSQLitePath is the default database of the sqlite backend.
	DefaultSQLitePath = "stan.db"

	// DefaultNamespace is the default metrics namespace.
	DefaultNamespace = "stan"
)

// Backends.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendS3     = "s3"
)

// Config represents a stan.toml or stan.json file.
type Config struct {
	// Backend selects the field source: "file", "sqlite" or "s3".
	Backend string `toml:"backend" json:"backend,omitempty"`

	// File configures the file backend.
	File FileConfig `toml:"file" json:"file,omitempty"`

	// SQLite configures the sqlite backend.
	SQLite SQLiteConfig `toml:"sqlite" json:"sqlite,omitempty"`

	// S3 configures the s3 backend.
	S3 S3Config `toml:"s3" json:"s3,omitempty"`

	// Log configures logging.
	Log LogConfig `toml:"log" json:"log,omitempty"`

	// Metrics configures the Prometheus collector.
	Metrics MetricsConfig `toml:"metrics" json:"metrics,omitempty"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// FileConfig contains file backend settings.
type FileConfig struct {
	// Dir is the directory holding one file per key.
	Dir string `toml:"dir" json:"dir,omitempty"`

	// Format is "json" or "yaml".
	Format string `toml:"format" json:"format,omitempty"`
}

// SQLiteConfig contains sqlite backend settings.
type SQLiteConfig struct {
	// Path is the database file.
	Path string `toml:"path" json:"path,omitempty"`
}

// S3Config contains s3 backend settings.
type S3Config struct {
	Bucket string `toml:"bucket" json:"bucket,omitempty"`
	Prefix string `toml:"prefix" json:"prefix,omitempty"`
	Region string `toml:"region" json:"region,omitempty"`

	// Endpoint overrides the service endpoint, e.g. for MinIO.
	Endpoint string `toml:"endpoint" json:"endpoint,omitempty"`

	// PathStyle addresses the bucket in the URL path instead of the host.
	PathStyle bool `toml:"path_style" json:"pathStyle,omitempty"`

	// Format is "json" or "yaml".
	Format string `toml:"format" json:"format,omitempty"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	// Level is "debug", "info", "warn" or "error".
	Level string `toml:"level" json:"level,omitempty"`

	// Format is "text" or "json".
	Format string `toml:"format" json:"format,omitempty"`
}

// MetricsConfig contains metrics settings.
type MetricsConfig struct {
	// Enabled prints the collected metrics after the demo command.
	Enabled bool `toml:"enabled" json:"enabled,omitempty"`

	// Namespace is the metrics namespace.
	Namespace string `toml:"namespace" json:"namespace,omitempty"`
}

// New creates a new Config with default values.
func New() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads configuration from the specified directory, preferring
// stan.toml over stan.json.
func Load(dir string) (*Config, error) {
	for _, name := range []string{TOMLFileName, JSONFileName} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return LoadFile(path)
		}
	}
	return nil, errors.New(errors.CodeConfigNotFound).
		WithDetail("No " + TOMLFileName + " or " + JSONFileName + " found in " + dir).
		WithSuggestion("Run 'stan init' to create one")
}

// LoadFile reads configuration from the specified file path. The format
// follows the file extension.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New(errors.CodeConfigNotFound).
				WithDetail("No configuration file at " + path)
		}
		return nil, errors.New(errors.CodeConfigParse).Wrap(err)
	}

	cfg := &Config{}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, errors.New(errors.CodeConfigParse).
				WithDetail("Failed to parse " + filepath.Base(path) + ": " + err.Error()).
				WithSuggestion("Check that the file is valid TOML")
		}
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, errors.New(errors.CodeConfigParse).
				WithDetail("Failed to parse " + filepath.Base(path) + ": " + err.Error()).
				WithSuggestion("Check that the file is valid JSON")
		}
	default:
		return nil, errors.New(errors.CodeConfigUnsupported).
			WithDetail("Unsupported configuration file extension " + ext)
	}

	cfg.configPath = path
	cfg.applyDefaults()

	return cfg, nil
}

// SaveTo writes the configuration to path, as TOML or JSON depending on
// the extension.
func (c *Config) SaveTo(path string) error {
	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		data, err = toml.Marshal(c)
	case ".json":
		data, err = json.MarshalIndent(c, "", "  ")
		data = append(data, '\n')
	default:
		return errors.New(errors.CodeConfigUnsupported).
			WithDetail("Unsupported configuration file extension " + filepath.Ext(path))
	}
	if err != nil {
		return errors.New(errors.CodeConfigInvalid).Wrap(err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New(errors.CodeConfigInvalid).Wrap(err)
	}

	c.configPath = path
	return nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// Dir returns the directory containing the config file.
func (c *Config) Dir() string {
	if c.configPath == "" {
		return ""
	}
	return filepath.Dir(c.configPath)
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	if c.Backend == "" {
		c.Backend = DefaultBackend
	}
	if c.File.Dir == "" {
		c.File.Dir = DefaultDir
	}
	if c.File.Format == "" {
		c.File.Format = string(codec.JSON)
	}
	if c.SQLite.Path == "" {
		c.SQLite.Path = DefaultSQLitePath
	}
	if c.S3.Format == "" {
		c.S3.Format = string(codec.JSON)
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = DefaultNamespace
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendFile:
		if _, err := codec.ParseFormat(c.File.Format); err != nil {
			return invalid("file.format must be json or yaml")
		}
	case BackendSQLite:
	case BackendS3:
		if c.S3.Bucket == "" {
			return invalid("s3.bucket is required for the s3 backend")
		}
		if c.S3.Region == "" && c.S3.Endpoint == "" {
			return invalid("s3.region or s3.endpoint is required for the s3 backend")
		}
		if _, err := codec.ParseFormat(c.S3.Format); err != nil {
			return invalid("s3.format must be json or yaml")
		}
	default:
		return invalid("backend must be one of file, sqlite or s3, got " + c.Backend)
	}

	if _, err := parseLevel(c.Log.Level); err != nil {
		return invalid("log.level must be debug, info, warn or error")
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return invalid("log.format must be text or json")
	}
	return nil
}

func invalid(detail string) error {
	return errors.New(errors.CodeConfigInvalid).WithDetail(detail)
}

// FileDir returns the directory of the file backend, resolved against the
// configuration directory.
func (c *Config) FileDir() string {
	return c.resolve(c.File.Dir)
}

// SQLitePath returns the sqlite database path, resolved against the
// configuration directory.
func (c *Config) SQLitePath() string {
	return c.resolve(c.SQLite.Path)
}

func (c *Config) resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.Dir(), path)
}

// LogLevel returns the configured slog level.
func (c *Config) LogLevel() slog.Level {
	level, _ := parseLevel(c.Log.Level)
	return level
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	err := level.UnmarshalText([]byte(s))
	return level, err
}

// Exists checks if a config file exists in the given directory.
func Exists(dir string) bool {
	for _, name := range []string{TOMLFileName, JSONFileName} {
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			return true
		}
	}
	return false
}

// FindRoot walks up from startDir to the first directory holding a
// configuration file.
func FindRoot(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for {
		if Exists(dir) {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New(errors.CodeConfigNotFound).
				WithDetail("No " + TOMLFileName + " or " + JSONFileName + " found in " + startDir + " or any parent directory").
				WithSuggestion("Run 'stan init' to create one")
		}
		dir = parent
	}
}
