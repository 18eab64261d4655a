package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/pnl/broker"
	"github.com/rustyeddy/pnl/broker/alpaca"
)

// Config represents the complete reconciliation configuration
type Config struct {
	Broker   BrokerConfig    `json:"broker" yaml:"broker"`
	Profiles []ProfileConfig `json:"profiles" yaml:"profiles"`
	Journal  JournalConfig   `json:"journal" yaml:"journal"`
	Report   ReportConfig    `json:"report" yaml:"report"`
	Log      LogConfig       `json:"log" yaml:"log"`
}

// BrokerConfig contains paging and retry settings for the activity feed
type BrokerConfig struct {
	BaseURL    string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	PageSize   int    `json:"page_size" yaml:"page_size"`
	MaxPages   int    `json:"max_pages" yaml:"max_pages"`
	MaxRetries int    `json:"max_retries" yaml:"max_retries"`
	RetryDelay string `json:"retry_delay" yaml:"retry_delay"` // e.g., "2s"
	PageDelay  string `json:"page_delay" yaml:"page_delay"`
	Timeout    string `json:"timeout" yaml:"timeout"`
}

// ProfileConfig names one set of account credentials. The keys are read
// from <env_prefix>ALPACA_API_KEY_ID and <env_prefix>ALPACA_API_SECRET_KEY.
type ProfileConfig struct {
	Name      string `json:"name" yaml:"name"`
	EnvPrefix string `json:"env_prefix" yaml:"env_prefix"`
	Paper     bool   `json:"paper" yaml:"paper"`
}

// JournalConfig contains storage parameters
type JournalConfig struct {
	Type       string `json:"type" yaml:"type"` // "csv" or "sqlite"
	TradesFile string `json:"trades_file,omitempty" yaml:"trades_file,omitempty"`
	DBPath     string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
}

// ReportConfig contains summary parameters
type ReportConfig struct {
	TopN    int `json:"top_n" yaml:"top_n"`
	Workers int `json:"workers,omitempty" yaml:"workers,omitempty"`
}

type LogConfig struct {
	Level   string `json:"level" yaml:"level"`
	Console bool   `json:"console" yaml:"console"`
}

// Env holds overrides taken from the process environment.
type Env struct {
	DBPath   string `env:"PNL_DB_PATH"`
	LogLevel string `env:"PNL_LOG_LEVEL"`
	BaseURL  string `env:"PNL_BROKER_BASE_URL"`
}

type credentialsEnv struct {
	KeyID     string `env:"ALPACA_API_KEY_ID,required"`
	SecretKey string `env:"ALPACA_API_SECRET_KEY,required"`
}

// LoadFromFile loads configuration from a file (JSON or YAML based on extension)
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}

	// Try YAML first, fall back to JSON
	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		err = json.Unmarshal(data, cfg)
		if err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// SaveToFile saves configuration to a file (JSON or YAML based on extension)
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}

	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Broker.PageSize <= 0 {
		return fmt.Errorf("broker.page_size must be positive")
	}
	if c.Broker.MaxPages <= 0 {
		return fmt.Errorf("broker.max_pages must be positive")
	}
	if c.Broker.MaxRetries <= 0 {
		return fmt.Errorf("broker.max_retries must be positive")
	}
	for _, d := range []struct{ name, val string }{
		{"broker.retry_delay", c.Broker.RetryDelay},
		{"broker.page_delay", c.Broker.PageDelay},
		{"broker.timeout", c.Broker.Timeout},
	} {
		if _, err := parseDuration(d.val); err != nil {
			return fmt.Errorf("%s: %w", d.name, err)
		}
	}
	if len(c.Profiles) == 0 {
		return fmt.Errorf("at least one profile is required")
	}
	seen := map[string]bool{}
	for _, p := range c.Profiles {
		if p.Name == "" {
			return fmt.Errorf("profile name is required")
		}
		if seen[p.Name] {
			return fmt.Errorf("duplicate profile %q", p.Name)
		}
		seen[p.Name] = true
	}
	if c.Journal.Type != "csv" && c.Journal.Type != "sqlite" {
		return fmt.Errorf("journal.type must be 'csv' or 'sqlite'")
	}
	if c.Journal.Type == "csv" && c.Journal.TradesFile == "" {
		return fmt.Errorf("journal trades_file required for CSV type")
	}
	if c.Journal.Type == "sqlite" && c.Journal.DBPath == "" {
		return fmt.Errorf("journal db_path required for SQLite type")
	}
	if c.Report.TopN <= 0 {
		return fmt.Errorf("report.top_n must be positive")
	}
	return nil
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	return &Config{
		Broker: BrokerConfig{
			PageSize:   100,
			MaxPages:   100,
			MaxRetries: 3,
			RetryDelay: "2s",
			PageDelay:  "200ms",
			Timeout:    "30s",
		},
		Profiles: []ProfileConfig{
			{Name: "default", EnvPrefix: "", Paper: true},
		},
		Journal: JournalConfig{
			Type:   "sqlite",
			DBPath: "./pnl.sqlite",
		},
		Report: ReportConfig{
			TopN: 10,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// ApplyEnv loads the given dotenv files (missing ones are ignored) and
// overlays PNL_* variables onto the config.
func (c *Config) ApplyEnv(files ...string) error {
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			if err := godotenv.Load(f); err != nil {
				return fmt.Errorf("load %s: %w", f, err)
			}
		}
	}
	return c.applyEnv(env.Options{})
}

func (c *Config) applyEnv(opts env.Options) error {
	var e Env
	if err := env.ParseWithOptions(&e, opts); err != nil {
		return fmt.Errorf("parse environment: %w", err)
	}
	if e.DBPath != "" {
		c.Journal.Type = "sqlite"
		c.Journal.DBPath = e.DBPath
	}
	if e.LogLevel != "" {
		c.Log.Level = e.LogLevel
	}
	if e.BaseURL != "" {
		c.Broker.BaseURL = e.BaseURL
	}
	return nil
}

// Profile returns the named profile, or the first one when name is empty.
func (c *Config) Profile(name string) (ProfileConfig, error) {
	if name == "" && len(c.Profiles) > 0 {
		return c.Profiles[0], nil
	}
	for _, p := range c.Profiles {
		if p.Name == name {
			return p, nil
		}
	}
	return ProfileConfig{}, fmt.Errorf("unknown profile %q", name)
}

// Credentials reads the named profile's API keys from the environment.
func (c *Config) Credentials(profile string) (broker.Credentials, error) {
	return c.credentials(profile, nil)
}

func (c *Config) credentials(profile string, environ map[string]string) (broker.Credentials, error) {
	p, err := c.Profile(profile)
	if err != nil {
		return broker.Credentials{}, err
	}
	var ce credentialsEnv
	if err := env.ParseWithOptions(&ce, env.Options{Prefix: p.EnvPrefix, Environment: environ}); err != nil {
		return broker.Credentials{}, fmt.Errorf("credentials for profile %q: %w", p.Name, err)
	}
	return broker.Credentials{
		Profile:   p.Name,
		KeyID:     ce.KeyID,
		SecretKey: ce.SecretKey,
		Paper:     p.Paper,
	}, nil
}

// AlpacaOptions converts the broker section into client options.
func (c *Config) AlpacaOptions() (alpaca.Options, error) {
	retry, err := parseDuration(c.Broker.RetryDelay)
	if err != nil {
		return alpaca.Options{}, fmt.Errorf("broker.retry_delay: %w", err)
	}
	page, err := parseDuration(c.Broker.PageDelay)
	if err != nil {
		return alpaca.Options{}, fmt.Errorf("broker.page_delay: %w", err)
	}
	timeout, err := parseDuration(c.Broker.Timeout)
	if err != nil {
		return alpaca.Options{}, fmt.Errorf("broker.timeout: %w", err)
	}
	return alpaca.Options{
		PageSize:   c.Broker.PageSize,
		MaxPages:   c.Broker.MaxPages,
		MaxRetries: c.Broker.MaxRetries,
		RetryDelay: retry,
		PageDelay:  page,
		Timeout:    timeout,
	}, nil
}

func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	return time.ParseDuration(s)
}
