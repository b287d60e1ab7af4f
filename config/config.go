// Package config loads evpop settings from defaults, an optional YAML file
// and EVPOP_* environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// DefaultDataURL is the public Washington State EV population CSV.
const DefaultDataURL = "https://data.wa.gov/api/views/f6w7-q2d2/rows.csv?accessType=DOWNLOAD"

// Config holds every setting the commands read.
type Config struct {
	DataPath string `mapstructure:"data_path" yaml:"data_path" json:"data_path"`
	DataURL  string `mapstructure:"data_url" yaml:"data_url" json:"data_url"`

	Addr           string `mapstructure:"addr" yaml:"addr" json:"addr"`
	DebounceMs     int    `mapstructure:"debounce_ms" yaml:"debounce_ms" json:"debounce_ms"`
	DefaultView    int    `mapstructure:"default_view" yaml:"default_view" json:"default_view"`
	RateLimitRPS   int    `mapstructure:"rate_limit_rps" yaml:"rate_limit_rps" json:"rate_limit_rps"`
	RateLimitBurst int    `mapstructure:"rate_limit_burst" yaml:"rate_limit_burst" json:"rate_limit_burst"`
	HTTPTimeoutSec int    `mapstructure:"http_timeout_sec" yaml:"http_timeout_sec" json:"http_timeout_sec"`

	LogLevel  string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format" json:"log_format"`
}

// Debounce returns the quiet period for text search input.
func (c *Config) Debounce() time.Duration {
	return time.Duration(c.DebounceMs) * time.Millisecond
}

// HTTPTimeout returns the timeout for outbound downloads and API requests.
func (c *Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutSec) * time.Second
}

func dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".evpop"), nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: env > config file > defaults. An explicit cfgFile must be
// readable; the default ~/.evpop/config.yaml is optional.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("EVPOP")
	v.AutomaticEnv()

	v.SetDefault("data_path", filepath.Join("data", "Electric_Vehicle_Population_Data.csv"))
	v.SetDefault("data_url", DefaultDataURL)
	v.SetDefault("addr", ":8080")
	v.SetDefault("debounce_ms", 500)
	v.SetDefault("default_view", 12)
	v.SetDefault("rate_limit_rps", 20)
	v.SetDefault("rate_limit_burst", 40)
	v.SetDefault("http_timeout_sec", 60)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", cfgFile, err)
		}
	} else {
		d, err := dir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(d)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		// optional read
		_ = v.ReadInConfig()
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &c, nil
}

// Save writes c as YAML to cfgFile, or to ~/.evpop/config.yaml when cfgFile
// is empty, creating the directory if necessary.
func Save(c *Config, cfgFile string) error {
	path := cfgFile
	if path == "" {
		d, err := dir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(d, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(d, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
