package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// FileName is the config file kept at the root of a data directory.
const FileName = "kapital.yaml"

// Config represents the top-level kapital.yaml configuration.
type Config struct {
	Storage     StorageConfig     `yaml:"storage"`
	Persistence PersistenceConfig `yaml:"persistence"`
	Log         LogConfig         `yaml:"log"`
	Report      ReportConfig      `yaml:"report"`
	Git         GitConfig         `yaml:"git"`
}

// StorageConfig selects where the ledger blob lives.
type StorageConfig struct {
	Backend string `yaml:"backend"`        // "file" or "sqlite"
	Path    string `yaml:"path,omitempty"` // relative paths are resolved against the data directory
}

// PersistenceConfig bounds background save retries.
type PersistenceConfig struct {
	MaxAttempts    int           `yaml:"max_attempts"`
	InitialBackoff time.Duration `yaml:"initial_backoff"`
	MaxBackoff     time.Duration `yaml:"max_backoff"`
}

// LogConfig controls diagnostic logging on stderr.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "console" or "json"
}

// ReportConfig controls terminal rendering of tables.
type ReportConfig struct {
	Style string `yaml:"style"` // glamour standard style, or "plain"
}

// GitConfig controls git integration.
type GitConfig struct {
	AutoCommit  bool   `yaml:"auto_commit"`
	AuthorName  string `yaml:"author_name"`
	AuthorEmail string `yaml:"author_email"`
}

var (
	backends = []string{"file", "sqlite"}
	formats  = []string{"console", "json"}
	levels   = []string{"trace", "debug", "info", "warn", "error", "fatal", "panic", "disabled"}
	styles   = []string{"plain", "auto", "dark", "light", "notty", "ascii", "dracula", "pink", "tokyo-night"}
)

// Load reads a kapital.yaml file from disk.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Default returns a Config with sensible defaults for a new data directory.
func Default() *Config {
	return &Config{
		Storage: StorageConfig{
			Backend: "file",
		},
		Persistence: PersistenceConfig{
			MaxAttempts:    5,
			InitialBackoff: 200 * time.Millisecond,
			MaxBackoff:     5 * time.Second,
		},
		Log: LogConfig{
			Level:  "warn",
			Format: "console",
		},
		Report: ReportConfig{
			Style: "auto",
		},
		Git: GitConfig{
			AutoCommit:  false,
			AuthorName:  "Kapital",
			AuthorEmail: "kapital@localhost",
		},
	}
}

// Resolve loads dir/kapital.yaml, falling back to defaults when the file is
// missing, then applies environment overrides and validates the result.
func Resolve(dir string) (*Config, error) {
	cfg, err := Load(filepath.Join(dir, FileName))
	if errors.Is(err, fs.ErrNotExist) {
		cfg, err = Default(), nil
	}
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from KAPITAL_* environment variables. Values
// that fail to parse are ignored.
func (c *Config) ApplyEnv() {
	c.Storage.Backend = getEnv("KAPITAL_STORAGE_BACKEND", c.Storage.Backend)
	c.Storage.Path = getEnv("KAPITAL_STORAGE_PATH", c.Storage.Path)
	c.Persistence.MaxAttempts = getEnvInt("KAPITAL_SAVE_MAX_ATTEMPTS", c.Persistence.MaxAttempts)
	c.Persistence.InitialBackoff = getEnvDuration("KAPITAL_SAVE_INITIAL_BACKOFF", c.Persistence.InitialBackoff)
	c.Persistence.MaxBackoff = getEnvDuration("KAPITAL_SAVE_MAX_BACKOFF", c.Persistence.MaxBackoff)
	c.Log.Level = getEnv("KAPITAL_LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("KAPITAL_LOG_FORMAT", c.Log.Format)
	c.Report.Style = getEnv("KAPITAL_REPORT_STYLE", c.Report.Style)
	c.Git.AutoCommit = getEnvBool("KAPITAL_GIT_AUTO_COMMIT", c.Git.AutoCommit)
}

// Validate reports every invalid field at once.
func (c *Config) Validate() error {
	var problems []string

	if !slices.Contains(backends, c.Storage.Backend) {
		problems = append(problems, fmt.Sprintf("invalid storage backend '%s': must be one of %v", c.Storage.Backend, backends))
	}
	if c.Persistence.MaxAttempts < 1 {
		problems = append(problems, fmt.Sprintf("invalid max attempts %d: must be at least 1", c.Persistence.MaxAttempts))
	}
	if c.Persistence.InitialBackoff <= 0 {
		problems = append(problems, fmt.Sprintf("invalid initial backoff %v: must be positive", c.Persistence.InitialBackoff))
	}
	if c.Persistence.MaxBackoff < c.Persistence.InitialBackoff {
		problems = append(problems, fmt.Sprintf("invalid max backoff %v: must be at least the initial backoff %v", c.Persistence.MaxBackoff, c.Persistence.InitialBackoff))
	}
	if !slices.Contains(levels, strings.ToLower(c.Log.Level)) {
		problems = append(problems, fmt.Sprintf("invalid log level '%s': must be one of %v", c.Log.Level, levels))
	}
	if !slices.Contains(formats, strings.ToLower(c.Log.Format)) {
		problems = append(problems, fmt.Sprintf("invalid log format '%s': must be one of %v", c.Log.Format, formats))
	}
	if !slices.Contains(styles, c.Report.Style) {
		problems = append(problems, fmt.Sprintf("invalid report style '%s': must be one of %v", c.Report.Style, styles))
	}
	if c.Git.AutoCommit && (c.Git.AuthorName == "" || c.Git.AuthorEmail == "") {
		problems = append(problems, "git author name and email are required when auto_commit is enabled")
	}

	if len(problems) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(problems, "\n- "))
	}
	return nil
}

// StoragePath returns the absolute location of the ledger storage for a
// data directory: a directory for the file backend, a database file for sqlite.
func (c *Config) StoragePath(dataDir string) string {
	p := c.Storage.Path
	if p == "" {
		p = "data"
		if c.Storage.Backend == "sqlite" {
			p = "kapital.db"
		}
	}
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dataDir, p)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
