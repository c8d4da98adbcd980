// Package config loads the YAML configuration and applies environment
// overrides and defaults.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g.
// MOBILECLEAN_STORAGE_ROOT or MOBILECLEAN_SCAN_BUDGET_BYTES.
const EnvPrefix = "MOBILECLEAN"

const (
	DefaultStorageRoot    = "/storage/emulated/0"
	DefaultDatabasePath   = "/var/lib/mobile-clean/history.db"
	DefaultMediaIndex     = "/var/lib/mobile-clean/media.db"
	DefaultBudgetBytes    = 500 * 1024 * 1024
	DefaultMaxDepth       = 4
	DefaultRootDelayMS    = 200
	DefaultItemDelayMS    = 50
	DefaultPromPort       = 9090
	DefaultAPIAddress     = "127.0.0.1:8080"
	DefaultRateLimitRPS   = 20
	DefaultRateLimitBurst = 40
)

// Budget policies for the junk scan.
const (
	BudgetContinue = "continue"
	BudgetHalt     = "halt"
)

// DefaultWellKnownPaths are relative to the storage root.
var DefaultWellKnownPaths = []string{
	"Android/data",
	"Download",
	"Pictures/.thumbnails",
	"DCIM/.thumbnails",
	".android_secure",
	"Documents",
}

// DefaultExcludeSubstrings prune directories whose name contains any of
// them, ignoring case.
var DefaultExcludeSubstrings = []string{"proc", "sys", "dev", "system", "root"}

type ScanCfg struct {
	MaxDepth     int    `yaml:"max_depth" json:"max_depth" envconfig:"MAX_DEPTH"`
	BudgetBytes  int64  `yaml:"budget_bytes" json:"budget_bytes" envconfig:"BUDGET_BYTES"`
	BudgetPolicy string `yaml:"budget_policy" json:"budget_policy" envconfig:"BUDGET_POLICY"`
	RootDelayMS  *int   `yaml:"root_delay_ms" json:"root_delay_ms" envconfig:"ROOT_DELAY_MS"`
}

type CleanCfg struct {
	ItemDelayMS *int `yaml:"item_delay_ms" json:"item_delay_ms" envconfig:"ITEM_DELAY_MS"`
	DryRun      bool `yaml:"dry_run" json:"dry_run" envconfig:"DRY_RUN"`
}

type PrometheusCfg struct {
	Port int `yaml:"port" json:"port" envconfig:"PORT"`
}

type APICfg struct {
	Address        string `yaml:"address" json:"address" envconfig:"ADDRESS"`
	RateLimitRPS   int    `yaml:"rate_limit_rps" json:"rate_limit_rps" envconfig:"RATE_LIMIT_RPS"`
	RateLimitBurst int    `yaml:"rate_limit_burst" json:"rate_limit_burst" envconfig:"RATE_LIMIT_BURST"`
	// JWTSecret enables bearer-token auth when set.
	JWTSecret string `yaml:"jwt_secret" json:"-" envconfig:"JWT_SECRET"`
}

type LoggingCfg struct {
	Level        string `yaml:"level" json:"level" envconfig:"LEVEL"`
	Development  bool   `yaml:"development" json:"development" envconfig:"DEVELOPMENT"`
	File         string `yaml:"file" json:"file" envconfig:"FILE"`
	RotationDays int    `yaml:"rotation_days" json:"rotation_days" envconfig:"ROTATION_DAYS"`
}

type SchedulerCfg struct {
	IntervalMinutes int `yaml:"interval_minutes" json:"interval_minutes" envconfig:"INTERVAL_MINUTES"`
}

type Config struct {
	StorageRoot          string   `yaml:"storage_root" json:"storage_root" envconfig:"STORAGE_ROOT"`
	DownloadsDir         string   `yaml:"downloads_dir" json:"downloads_dir" envconfig:"DOWNLOADS_DIR"`
	CacheDirs            []string `yaml:"cache_dirs" json:"cache_dirs" envconfig:"CACHE_DIRS"`
	WellKnownPaths       []string `yaml:"well_known_paths" json:"well_known_paths" envconfig:"WELL_KNOWN_PATHS"`
	ExcludeDirSubstrings []string `yaml:"exclude_dir_substrings" json:"exclude_dir_substrings" envconfig:"EXCLUDE_DIR_SUBSTRINGS"`
	ExcludeGlobs         []string `yaml:"exclude_globs" json:"exclude_globs" envconfig:"EXCLUDE_GLOBS"`
	ProtectedPaths       []string `yaml:"protected_paths" json:"protected_paths" envconfig:"PROTECTED_PATHS"`
	MediaIndexPath       string   `yaml:"media_index_path" json:"media_index_path" envconfig:"MEDIA_INDEX_PATH"`
	DatabasePath         string   `yaml:"database_path" json:"database_path" envconfig:"DATABASE_PATH"`

	Scan       ScanCfg       `yaml:"scan" json:"scan" envconfig:"SCAN"`
	Clean      CleanCfg      `yaml:"clean" json:"clean" envconfig:"CLEAN"`
	Prometheus PrometheusCfg `yaml:"prometheus" json:"prometheus" envconfig:"PROMETHEUS"`
	API        APICfg        `yaml:"api" json:"api" envconfig:"API"`
	Logging    LoggingCfg    `yaml:"logging" json:"logging" envconfig:"LOGGING"`
	Scheduler  SchedulerCfg  `yaml:"scheduler" json:"scheduler" envconfig:"SCHEDULER"`
}

var (
	errInvalidPath     = errors.New("path must be absolute")
	errNegativeBudget  = errors.New("scan.budget_bytes cannot be negative")
	errNegativeDepth   = errors.New("scan.max_depth cannot be negative")
	errNegativeDelay   = errors.New("delays cannot be negative")
	errBudgetPolicy    = errors.New("scan.budget_policy must be continue or halt")
	errInvalidLogLevel = errors.New("logging.level must be debug, info, warn or error")
)

// Load reads path, applies environment overrides and fills defaults.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	cfg, err := decode(f)
	if err != nil {
		return nil, err
	}
	return finish(cfg)
}

// Default returns the configuration used when no file is given, with
// environment overrides applied.
func Default() (*Config, error) {
	return finish(&Config{})
}

func finish(cfg *Config) (*Config, error) {
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("environment overrides: %w", err)
	}
	if err := cfg.validateAndDefault(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decode(r io.Reader) (*Config, error) {
	cfg := &Config{}
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	return cfg, nil
}

func (c *Config) validateAndDefault() error {
	if c.StorageRoot == "" {
		c.StorageRoot = DefaultStorageRoot
	}
	root, err := cleanAbsolute(c.StorageRoot)
	if err != nil {
		return fmt.Errorf("storage_root: %w", err)
	}
	c.StorageRoot = root

	if c.DownloadsDir == "" {
		c.DownloadsDir = filepath.Join(c.StorageRoot, "Download")
	}
	if c.DownloadsDir, err = cleanAbsolute(c.DownloadsDir); err != nil {
		return fmt.Errorf("downloads_dir: %w", err)
	}

	for i, d := range c.CacheDirs {
		if c.CacheDirs[i], err = cleanAbsolute(d); err != nil {
			return fmt.Errorf("cache_dirs: %w", err)
		}
	}
	for i, p := range c.ProtectedPaths {
		if c.ProtectedPaths[i], err = cleanAbsolute(p); err != nil {
			return fmt.Errorf("protected_paths: %w", err)
		}
	}

	if c.WellKnownPaths == nil {
		c.WellKnownPaths = append([]string(nil), DefaultWellKnownPaths...)
	}
	if c.ExcludeDirSubstrings == nil {
		c.ExcludeDirSubstrings = append([]string(nil), DefaultExcludeSubstrings...)
	}

	if c.Scan.MaxDepth < 0 {
		return errNegativeDepth
	}
	if c.Scan.MaxDepth == 0 {
		c.Scan.MaxDepth = DefaultMaxDepth
	}
	if c.Scan.BudgetBytes < 0 {
		return errNegativeBudget
	}
	if c.Scan.BudgetBytes == 0 {
		c.Scan.BudgetBytes = DefaultBudgetBytes
	}
	c.Scan.BudgetPolicy = strings.ToLower(strings.TrimSpace(c.Scan.BudgetPolicy))
	switch c.Scan.BudgetPolicy {
	case "":
		c.Scan.BudgetPolicy = BudgetContinue
	case BudgetContinue, BudgetHalt:
	default:
		return fmt.Errorf("%w: %q", errBudgetPolicy, c.Scan.BudgetPolicy)
	}

	// nil means unset; an explicit 0 disables pacing
	if c.Scan.RootDelayMS == nil {
		c.Scan.RootDelayMS = intPtr(DefaultRootDelayMS)
	}
	if c.Clean.ItemDelayMS == nil {
		c.Clean.ItemDelayMS = intPtr(DefaultItemDelayMS)
	}
	if *c.Scan.RootDelayMS < 0 || *c.Clean.ItemDelayMS < 0 {
		return errNegativeDelay
	}

	if c.MediaIndexPath == "" {
		c.MediaIndexPath = DefaultMediaIndex
	}
	if c.DatabasePath == "" {
		c.DatabasePath = DefaultDatabasePath
	}

	if c.Prometheus.Port == 0 {
		c.Prometheus.Port = DefaultPromPort
	}
	if c.API.Address == "" {
		c.API.Address = DefaultAPIAddress
	}
	if c.API.RateLimitRPS <= 0 {
		c.API.RateLimitRPS = DefaultRateLimitRPS
	}
	if c.API.RateLimitBurst <= 0 {
		c.API.RateLimitBurst = DefaultRateLimitBurst
	}

	c.Logging.Level = strings.ToLower(c.Logging.Level)
	switch c.Logging.Level {
	case "":
		c.Logging.Level = "info"
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: %q", errInvalidLogLevel, c.Logging.Level)
	}
	if c.Logging.RotationDays <= 0 {
		c.Logging.RotationDays = 30
	}

	if c.Scheduler.IntervalMinutes <= 0 {
		c.Scheduler.IntervalMinutes = 60
	}
	return nil
}

func intPtr(v int) *int { return &v }

func cleanAbsolute(p string) (string, error) {
	if p == "" {
		return "", errInvalidPath
	}
	cp := filepath.Clean(p)
	if !filepath.IsAbs(cp) {
		return "", fmt.Errorf("%w: %s", errInvalidPath, p)
	}
	return cp, nil
}

// ScanRoots returns the candidate junk scan roots in scan order: the storage
// root, the cache dirs, then the well-known paths under the storage root.
// Existence is not checked here.
func (c *Config) ScanRoots() []string {
	roots := make([]string, 0, 1+len(c.CacheDirs)+len(c.WellKnownPaths))
	roots = append(roots, c.StorageRoot)
	roots = append(roots, c.CacheDirs...)
	for _, p := range c.WellKnownPaths {
		roots = append(roots, filepath.Join(c.StorageRoot, p))
	}
	return roots
}

// AllowedRoots are the trees deletions may touch.
func (c *Config) AllowedRoots() []string {
	roots := []string{c.StorageRoot, c.DownloadsDir}
	return append(roots, c.CacheDirs...)
}

func (c *Config) RootDelay() time.Duration {
	return time.Duration(*c.Scan.RootDelayMS) * time.Millisecond
}

func (c *Config) ItemDelay() time.Duration {
	return time.Duration(*c.Clean.ItemDelayMS) * time.Millisecond
}

func (c *Config) Interval() time.Duration {
	return time.Duration(c.Scheduler.IntervalMinutes) * time.Minute
}

func (c *Config) PrometheusAddress() string {
	return fmt.Sprintf(":%d", c.Prometheus.Port)
}
