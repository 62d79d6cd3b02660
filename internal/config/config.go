package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultListen      = "127.0.0.1:8080"
	DefaultTimezone    = "Local"
	DefaultDBDriver    = "sqlite"
	DefaultDBDSN       = "moncal.db"
	DefaultImportCron  = "*/30 * * * *"
	DefaultHorizonDays = 90
	DefaultCacheDir    = "./cache/ics-cache"

	DefaultSnapshotWidth  = 1200
	DefaultSnapshotHeight = 900
	DefaultSnapshotOutput = "calendar.png"
)

// ICSConfig describes a single ICS subscription imported into the store.
type ICSConfig struct {
	// URL is the ICS subscription endpoint.
	URL string `yaml:"url" json:"url"`
	// ID is an internal identifier used for de-dup and logging.
	ID string `yaml:"id" json:"id"`
	// Name is a human-friendly label.
	Name string `yaml:"name" json:"name"`
}

// SourceID returns ID, falling back to Name and then URL.
func (c ICSConfig) SourceID() string {
	switch {
	case c.ID != "":
		return c.ID
	case c.Name != "":
		return c.Name
	default:
		return c.URL
	}
}

// DatabaseConfig selects the GORM dialect and connection string.
type DatabaseConfig struct {
	// Driver is "sqlite" or "postgres".
	Driver string `yaml:"driver" json:"driver"`
	// DSN is a file path / URI for sqlite or a libpq DSN for postgres.
	DSN string `yaml:"dsn" json:"dsn"`
	// MaxOpenConns caps the connection pool; 0 keeps the driver default.
	MaxOpenConns int `yaml:"max_open_conns" json:"max_open_conns"`
}

// ImportConfig controls periodic ICS import.
type ImportConfig struct {
	// Cron is a 5-field cron expression. Empty disables scheduled import.
	Cron string `yaml:"cron" json:"cron"`
	// HorizonDays bounds recurrence expansion into the future.
	HorizonDays int `yaml:"horizon_days" json:"horizon_days"`
	// BackfillDays includes past occurrences.
	BackfillDays int `yaml:"backfill_days" json:"backfill_days"`
	// CacheDir stores ETag/Last-Modified metadata and bodies per feed.
	CacheDir string `yaml:"cache_dir" json:"cache_dir"`
	// Sources is the list of subscribed feeds.
	Sources []ICSConfig `yaml:"sources" json:"sources"`
}

// BasicAuthConfig holds operator credentials. PasswordHash is a bcrypt
// hash produced by `moncal hash-password`.
type BasicAuthConfig struct {
	Username     string `yaml:"username" json:"username"`
	PasswordHash string `yaml:"password_hash" json:"password_hash"`
}

// SnapshotConfig holds defaults for `moncal snapshot`.
type SnapshotConfig struct {
	Width  int    `yaml:"width" json:"width"`
	Height int    `yaml:"height" json:"height"`
	Output string `yaml:"output" json:"output"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA zone used to decide what "today" is.
	// "Local" uses the host zone.
	Timezone string `yaml:"timezone" json:"timezone"`

	// WeekStart is "monday" (default) or "sunday".
	WeekStart string `yaml:"week_start" json:"week_start"`

	// LogLevel is debug, info, warn or error.
	LogLevel string `yaml:"log_level" json:"log_level"`

	Database DatabaseConfig `yaml:"database" json:"database"`

	Import ImportConfig `yaml:"import" json:"import"`

	// BasicAuth, if set, guards every endpoint except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`

	Snapshot SnapshotConfig `yaml:"snapshot" json:"snapshot"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.Normalize()
	return cfg
}

// Normalize fills in missing/zero values so partially-filled files work.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = DefaultListen
	}
	if c.Timezone == "" {
		c.Timezone = DefaultTimezone
	}
	switch strings.ToLower(c.WeekStart) {
	case "sunday":
		c.WeekStart = "sunday"
	default:
		c.WeekStart = "monday"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}

	c.Database.Driver = strings.ToLower(c.Database.Driver)
	if c.Database.Driver == "" {
		c.Database.Driver = DefaultDBDriver
	}
	if c.Database.DSN == "" && c.Database.Driver == DefaultDBDriver {
		c.Database.DSN = DefaultDBDSN
	}

	if c.Import.HorizonDays <= 0 {
		c.Import.HorizonDays = DefaultHorizonDays
	}
	if c.Import.BackfillDays < 0 {
		c.Import.BackfillDays = 0
	}
	if c.Import.CacheDir == "" {
		c.Import.CacheDir = DefaultCacheDir
	}
	if c.Import.Sources == nil {
		c.Import.Sources = []ICSConfig{}
	}
	if c.Import.Cron == "" && len(c.Import.Sources) > 0 {
		c.Import.Cron = DefaultImportCron
	}

	if c.BasicAuth != nil && (c.BasicAuth.Username == "" || c.BasicAuth.PasswordHash == "") {
		c.BasicAuth = nil
	}

	if c.Snapshot.Width <= 0 {
		c.Snapshot.Width = DefaultSnapshotWidth
	}
	if c.Snapshot.Height <= 0 {
		c.Snapshot.Height = DefaultSnapshotHeight
	}
	if c.Snapshot.Output == "" {
		c.Snapshot.Output = DefaultSnapshotOutput
	}
}

// Validate reports settings Normalize cannot repair.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("database.driver: unsupported driver %q (want sqlite or postgres)", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return errors.New("database.dsn: required for driver " + c.Database.Driver)
	}
	if _, err := c.LoadLocation(); err != nil {
		return fmt.Errorf("timezone: %w", err)
	}
	for i, src := range c.Import.Sources {
		if src.URL == "" {
			return fmt.Errorf("import.sources[%d].url: required", i)
		}
	}
	return nil
}

// LoadLocation resolves Timezone. "Local" and "" mean the host zone.
func (c *Config) LoadLocation() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}

// ApplyEnv overrides file values with MONCAL_* environment variables.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("MONCAL_LISTEN"); v != "" {
		c.Listen = v
	}
	if v := os.Getenv("MONCAL_TIMEZONE"); v != "" {
		c.Timezone = v
	}
	if v := os.Getenv("MONCAL_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("MONCAL_DB_DRIVER"); v != "" {
		c.Database.Driver = strings.ToLower(v)
	}
	if v := os.Getenv("MONCAL_DB_DSN"); v != "" {
		c.Database.DSN = v
	}
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist, a default config is written with 0600
//     perms and returned.
//   - Otherwise the YAML is decoded and normalized.
//
// Environment overrides are applied by the caller via ApplyEnv.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes cfg to path atomically (temp file + rename) with 0600 perms,
// creating the parent directory (0700) if needed.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".moncal-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}

	return os.Rename(tmpName, path)
}
