// Package config loads the ftk configuration: a YAML file, then a .env file
// and environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/etnz/fundtrack"
	"github.com/etnz/fundtrack/date"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration.
type Config struct {
	Registry     string `yaml:"registry"`     // funds registry CSV
	Transactions string `yaml:"transactions"` // transaction log CSV
	Output       string `yaml:"output"`       // price table, the extension selects the store
	Timezone     string `yaml:"timezone"`     // reference timezone of the dates
	Currency     string `yaml:"currency"`     // display currency of the reports

	Fetch     Fetch     `yaml:"fetch"`
	Cache     Cache     `yaml:"cache"`
	Providers Providers `yaml:"providers"`
	Server    Server    `yaml:"server"`
	Log       Log       `yaml:"log"`
}

// Fetch configures the price pipeline.
type Fetch struct {
	Start    string `yaml:"start"`    // first date, absolute or relative like "-5y"
	End      string `yaml:"end"`      // last date, defaults to today
	Fill     string `yaml:"fill"`     // forward, backward or none
	Provider string `yaml:"provider"` // default provider
	Workers  int    `yaml:"workers"`
	Retries  int    `yaml:"retries"`
	Schedule string `yaml:"schedule"` // cron spec with seconds, empty to run once
}

// Cache configures the http disk cache of the providers.
type Cache struct {
	Disabled bool   `yaml:"disabled"`
	Dir      string `yaml:"dir"`
}

// Providers holds the settings of each provider.
type Providers struct {
	Yahoo struct {
		BaseURL string `yaml:"base_url"`
		Suffix  string `yaml:"suffix"`
		Field   string `yaml:"field"`
	} `yaml:"yahoo"`
	Investing struct {
		BaseURL string `yaml:"base_url"`
	} `yaml:"investing"`
	JPMorgan struct {
		BaseURL string `yaml:"base_url"`
		Country string `yaml:"country"`
		Role    string `yaml:"role"`
		Locale  string `yaml:"locale"`
	} `yaml:"jpmorgan"`
	EODHD struct {
		BaseURL  string `yaml:"base_url"`
		APIKey   string `yaml:"api_key"`
		Exchange string `yaml:"exchange"`
	} `yaml:"eodhd"`
	File struct {
		Dir string `yaml:"dir"`
	} `yaml:"file"`
}

// Server configures the dashboard.
type Server struct {
	Addr        string   `yaml:"addr"`
	CORSOrigins []string `yaml:"cors_origins"`
}

// Log configures the logger.
type Log struct {
	Level string `yaml:"level"`
}

// Default returns the configuration used when there is no file.
func Default() *Config {
	return &Config{
		Registry:     "funds.csv",
		Transactions: "transactions.csv",
		Output:       "historical_data.csv",
		Timezone:     "Europe/Rome",
		Currency:     "EUR",
		Fetch: Fetch{
			Start:    "1990-01-01",
			Fill:     "forward",
			Provider: "investing",
			Workers:  4,
			Retries:  2,
		},
		Server: Server{Addr: "localhost:8080"},
		Log:    Log{Level: "info"},
	}
}

// Load reads the YAML file at path over the defaults, then applies the
// environment overrides. A .env file in the working directory is loaded into
// the environment first. A missing config file is not an error.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	return cfg, nil
}

// applyEnvOverrides overrides fields with the well-known environment
// variables that are set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("FTK_REGISTRY"); v != "" {
		cfg.Registry = v
	}
	if v := os.Getenv("FTK_TRANSACTIONS"); v != "" {
		cfg.Transactions = v
	}
	if v := os.Getenv("FTK_OUTPUT"); v != "" {
		cfg.Output = v
	}
	if v := os.Getenv("FTK_TIMEZONE"); v != "" {
		cfg.Timezone = v
	}
	if v := os.Getenv("FTK_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("FTK_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Fetch.Workers = n
		}
	}
	if v := os.Getenv("EODHD_API_KEY"); v != "" {
		cfg.Providers.EODHD.APIKey = v
	}
}

// Validate checks the values that cannot be checked by the yaml decoder.
func (c *Config) Validate() error {
	var errs []error
	if c.Registry == "" {
		errs = append(errs, errors.New("registry path is required"))
	}
	if c.Output == "" {
		errs = append(errs, errors.New("output path is required"))
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.Range(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.FillPolicy(); err != nil {
		errs = append(errs, err)
	}
	if c.Fetch.Workers < 0 || c.Fetch.Retries < 0 {
		errs = append(errs, errors.New("fetch workers and retries cannot be negative"))
	}
	if c.Fetch.Schedule != "" {
		if _, err := CronParser.Parse(c.Fetch.Schedule); err != nil {
			errs = append(errs, fmt.Errorf("invalid fetch schedule %q: %w", c.Fetch.Schedule, err))
		}
	}
	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("invalid log level: %w", err))
	}
	return errors.Join(errs...)
}

// CronParser parses schedules with an optional seconds field.
var CronParser = cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Location returns the reference timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// Range returns the range of dates to fetch, as of today.
func (c *Config) Range() (date.Range, error) {
	from, err := date.ParseRelative(c.Fetch.Start)
	if err != nil {
		return date.Range{}, fmt.Errorf("invalid fetch start: %w", err)
	}
	to := date.Today()
	if c.Fetch.End != "" {
		if to, err = date.ParseRelative(c.Fetch.End); err != nil {
			return date.Range{}, fmt.Errorf("invalid fetch end: %w", err)
		}
	}
	if to.Before(from) {
		return date.Range{}, fmt.Errorf("fetch start %v is after its end %v", from, to)
	}
	return date.NewRange(from, to), nil
}

// FillPolicy returns the gap filling policy of the pipeline.
func (c *Config) FillPolicy() (fundtrack.FillPolicy, error) {
	return fundtrack.ParseFillPolicy(c.Fetch.Fill)
}

// Level returns the log level, info if invalid.
func (c *Config) Level() zerolog.Level {
	lvl, err := zerolog.ParseLevel(c.Log.Level)
	if err != nil || c.Log.Level == "" {
		return zerolog.InfoLevel
	}
	return lvl
}
