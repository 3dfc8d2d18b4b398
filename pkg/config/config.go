// Package config loads picotune configuration.
//
// Values are layered: built-in defaults, then an optional YAML file, then
// PICOTUNE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "PICOTUNE_"

type Config struct {
	Discord     DiscordConfig     `yaml:"discord" envPrefix:"DISCORD_"`
	Interactive InteractiveConfig `yaml:"interactive" envPrefix:"INTERACTIVE_"`
	Notifier    NotifierConfig    `yaml:"notifier" envPrefix:"NOTIFIER_"`
	Storage     StorageConfig     `yaml:"storage" envPrefix:"STORAGE_"`
	Mensa       MensaConfig       `yaml:"mensa" envPrefix:"MENSA_"`
	Log         LogConfig         `yaml:"log" envPrefix:"LOG_"`
	Dashboard   DashboardConfig   `yaml:"dashboard" envPrefix:"DASHBOARD_"`
}

type DiscordConfig struct {
	Token string `yaml:"token" env:"TOKEN"`
	AppID string `yaml:"app_id" env:"APP_ID"`
	// DevGuildID registers slash commands on one guild only (instant rollout).
	DevGuildID string `yaml:"dev_guild_id" env:"DEV_GUILD_ID"`
}

type InteractiveConfig struct {
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
}

type NotifierConfig struct {
	InitialDelay time.Duration `yaml:"initial_delay" env:"INITIAL_DELAY"`
	Interval     time.Duration `yaml:"interval" env:"INTERVAL"`
}

type StorageConfig struct {
	Path string `yaml:"path" env:"PATH"`
}

type MensaConfig struct {
	BaseURL  string        `yaml:"base_url" env:"BASE_URL"`
	CacheTTL time.Duration `yaml:"cache_ttl" env:"CACHE_TTL"`
	Canteens []Canteen     `yaml:"canteens"`
}

// Canteen is a selectable canteen in the mensa command.
type Canteen struct {
	ID   int    `yaml:"id"`
	Name string `yaml:"name"`
}

type LogConfig struct {
	Level  string `yaml:"level" env:"LEVEL"`
	Format string `yaml:"format" env:"FORMAT"`
}

// DashboardConfig enables the HTTP dashboard when Addr is set.
type DashboardConfig struct {
	Addr   string `yaml:"addr" env:"ADDR"`
	APIKey string `yaml:"api_key" env:"API_KEY"`
}

// Default returns the configuration used when nothing else is set.
func Default() *Config {
	return &Config{
		Interactive: InteractiveConfig{Timeout: 3 * time.Minute},
		Notifier: NotifierConfig{
			InitialDelay: 2 * time.Second,
			Interval:     15 * time.Second,
		},
		Storage: StorageConfig{Path: "picotune.db"},
		Mensa: MensaConfig{
			BaseURL:  "https://openmensa.org/api/v2",
			CacheTTL: 30 * time.Minute,
		},
		Log: LogConfig{Level: "info", Format: "text"},
	}
}

// Load builds the configuration. An empty path or a missing file skips the
// YAML layer.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Discord.Token == "" {
		return fmt.Errorf("discord token is required (set %sDISCORD_TOKEN)", EnvPrefix)
	}
	if c.Interactive.Timeout <= 0 {
		return fmt.Errorf("interactive timeout must be positive, got %s", c.Interactive.Timeout)
	}
	if c.Notifier.Interval <= 0 {
		return fmt.Errorf("notifier interval must be positive, got %s", c.Notifier.Interval)
	}
	if c.Notifier.InitialDelay < 0 {
		return fmt.Errorf("notifier initial delay must not be negative, got %s", c.Notifier.InitialDelay)
	}
	if c.Storage.Path == "" {
		return errors.New("storage path is required")
	}
	for _, ct := range c.Mensa.Canteens {
		if ct.ID <= 0 || ct.Name == "" {
			return fmt.Errorf("invalid canteen entry %+v", ct)
		}
	}
	return nil
}
