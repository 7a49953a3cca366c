package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is read when PRICEMIRROR_CONFIG is unset.
const DefaultPath = "config/pricemirror.yaml"

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration for pricemirror.
type Config struct {
	Storage     Storage  `yaml:"storage"`
	Alpaca      Alpaca   `yaml:"alpaca"`
	Loader      Loader   `yaml:"loader"`
	Report      Report   `yaml:"report"`
	Schedule    Schedule `yaml:"schedule"`
	Logging     Logging  `yaml:"logging"`
	Symbols     []string `yaml:"symbols"`
	SymbolsFile string   `yaml:"symbols_file"`
}

// Storage holds paths for data persistence. ParquetDir and SQLitePath are
// optional; empty disables the mirror and run history respectively.
type Storage struct {
	CacheDir   string `yaml:"cache_dir"`
	ParquetDir string `yaml:"parquet_dir"`
	SQLitePath string `yaml:"sqlite_path"`
}

// Alpaca holds credentials and endpoints for the secondary source.
type Alpaca struct {
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`
	BaseURL   string `yaml:"base_url"`
	DataURL   string `yaml:"data_url"`
	Feed      string `yaml:"feed"`

	// RateLimitPerMin caps secondary calls separately from the primary.
	// Zero inherits loader.rate_limit_per_min.
	RateLimitPerMin int `yaml:"rate_limit_per_min"`
}

// Loader bounds the parallel refresh.
type Loader struct {
	MaxWorkers      int    `yaml:"max_workers"`
	BatchSize       int    `yaml:"batch_size"`
	MaxLookbackDays int    `yaml:"max_lookback_days"`
	CallTimeout     string `yaml:"call_timeout"` // Go duration; empty means none
	RateLimitPerMin int    `yaml:"rate_limit_per_min"`
}

// Report configures per-ticker output.
type Report struct {
	Windows []int `yaml:"windows"` // lookbacks in days
	Plain   bool  `yaml:"plain"`   // disable terminal styling
}

// Schedule holds cron specs (with seconds) for daemon mode.
type Schedule struct {
	RefreshCron string `yaml:"refresh_cron"`
}

// Logging configures the application logger.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Dir    string `yaml:"dir"` // daily log files; empty logs to stdout only
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Path returns the config file location, honouring PRICEMIRROR_CONFIG.
func Path() string {
	if v := os.Getenv("PRICEMIRROR_CONFIG"); v != "" {
		return v
	}
	return DefaultPath
}

// Load reads the YAML configuration file at the given path, applies
// environment variable overrides and fills defaults. A missing file yields
// the defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg)

	return cfg, nil
}

// applyEnvOverrides checks well-known environment variables and overrides the
// corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("CACHE_DIR"); v != "" {
		cfg.Storage.CacheDir = v
	}
	if v := os.Getenv("PARQUET_DIR"); v != "" {
		cfg.Storage.ParquetDir = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Storage.SQLitePath = v
	}

	if v := os.Getenv("ALPACA_BASE_URL"); v != "" {
		cfg.Alpaca.BaseURL = v
	}
	if v := os.Getenv("ALPACA_DATA_URL"); v != "" {
		cfg.Alpaca.DataURL = v
	}
	if v := os.Getenv("ALPACA_FEED"); v != "" {
		cfg.Alpaca.Feed = v
	}

	if v := os.Getenv("MAX_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Loader.MaxWorkers = n
		}
	}
	if v := os.Getenv("CALL_TIMEOUT"); v != "" {
		cfg.Loader.CallTimeout = v
	}
	if v := os.Getenv("REFRESH_CRON"); v != "" {
		cfg.Schedule.RefreshCron = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("LOG_DIR"); v != "" {
		cfg.Logging.Dir = v
	}

	// Standard Alpaca env vars (canonical names used by the SDK).
	if v := os.Getenv("APCA_API_KEY_ID"); v != "" {
		cfg.Alpaca.APIKey = v
	}
	if v := os.Getenv("APCA_API_SECRET_KEY"); v != "" {
		cfg.Alpaca.APISecret = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Storage.CacheDir == "" {
		cfg.Storage.CacheDir = "data/cache"
	}
	if cfg.Alpaca.BaseURL == "" {
		cfg.Alpaca.BaseURL = "https://api.alpaca.markets"
	}
	if cfg.Loader.MaxWorkers == 0 {
		cfg.Loader.MaxWorkers = 200
	}
	if cfg.Loader.BatchSize == 0 {
		cfg.Loader.BatchSize = 150
	}
	if cfg.Loader.MaxLookbackDays == 0 {
		cfg.Loader.MaxLookbackDays = 5 * 365
	}
	if len(cfg.Report.Windows) == 0 {
		cfg.Report.Windows = []int{50, 200, 365, 5 * 365}
	}
	if cfg.Schedule.RefreshCron == "" {
		cfg.Schedule.RefreshCron = "0 30 17 * * 1-5"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
}

// Timeout parses CallTimeout; empty means no timeout.
func (l Loader) Timeout() (time.Duration, error) {
	if l.CallTimeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(l.CallTimeout)
	if err != nil {
		return 0, fmt.Errorf("loader.call_timeout: %w", err)
	}
	return d, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Storage.CacheDir == "" {
		return fmt.Errorf("storage.cache_dir is required")
	}
	if c.Loader.MaxWorkers < 1 {
		return fmt.Errorf("loader.max_workers must be at least 1")
	}
	if c.Loader.BatchSize < 1 {
		return fmt.Errorf("loader.batch_size must be at least 1")
	}
	if c.Loader.MaxLookbackDays < 1 {
		return fmt.Errorf("loader.max_lookback_days must be at least 1")
	}
	if c.Loader.RateLimitPerMin < 0 {
		return fmt.Errorf("loader.rate_limit_per_min must not be negative")
	}
	if c.Alpaca.RateLimitPerMin < 0 {
		return fmt.Errorf("alpaca.rate_limit_per_min must not be negative")
	}
	if d, err := c.Loader.Timeout(); err != nil {
		return err
	} else if d < 0 {
		return fmt.Errorf("loader.call_timeout must not be negative")
	}
	for _, w := range c.Report.Windows {
		if w < 1 || w > c.Loader.MaxLookbackDays {
			return fmt.Errorf("report.windows: %d outside 1..%d", w, c.Loader.MaxLookbackDays)
		}
	}
	return nil
}

// SecondaryRate is the per-minute call budget for the secondary source.
func (c *Config) SecondaryRate() int {
	if c.Alpaca.RateLimitPerMin > 0 {
		return c.Alpaca.RateLimitPerMin
	}
	return c.Loader.RateLimitPerMin
}
