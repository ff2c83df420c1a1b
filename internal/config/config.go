// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type BotConfig struct {
	Token     string  `yaml:"token"`
	ChannelID int64   `yaml:"channel_id"` // numeric id of the private channel
	Mode      string  `yaml:"mode"`       // polling | webhook (future)
	Workers   int     `yaml:"workers"`    // polling workers
	AdminIDs  []int64 `yaml:"admin_ids"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type WebConfig struct {
	Port       int    `yaml:"port"`
	BaseURL    string `yaml:"base_url"`    // public address the gateway calls back on
	AdminToken string `yaml:"admin_token"` // bearer secret for the admin endpoints
}

type StoreConfig struct {
	Path string `yaml:"path"` // JSON document path; ignored when database.url is set
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type RedisConfig struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type PaymentConfig struct {
	Instamojo struct {
		APIKey    string `yaml:"api_key"`
		AuthToken string `yaml:"auth_token"`
		Sandbox   bool   `yaml:"sandbox"`
	} `yaml:"instamojo"`
}

type SubscriptionConfig struct {
	Price            int64  `yaml:"price"`    // in minor units of Currency
	Currency         string `yaml:"currency"` // e.g. "INR"
	PeriodDays       int    `yaml:"period_days"`
	InviteTTLSeconds int    `yaml:"invite_ttl_seconds"`
}

type SchedulerConfig struct {
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

type Config struct {
	Bot          BotConfig          `yaml:"bot"`
	Log          LogConfig          `yaml:"log"`
	Web          WebConfig          `yaml:"web"`
	Store        StoreConfig        `yaml:"store"`
	Database     DatabaseConfig     `yaml:"database"`
	Redis        RedisConfig        `yaml:"redis"`
	Payment      PaymentConfig      `yaml:"payment"`
	Subscription SubscriptionConfig `yaml:"subscription"`
	Scheduler    SchedulerConfig    `yaml:"scheduler"`

	Runtime RuntimeConfig `yaml:"-"`
}

// Period is the configured subscription window as a duration.
func (c *Config) Period() time.Duration {
	return time.Duration(c.Subscription.PeriodDays) * 24 * time.Hour
}

// InviteTTL is the bounded lifetime of a minted invite link.
func (c *Config) InviteTTL() time.Duration {
	return time.Duration(c.Subscription.InviteTTLSeconds) * time.Second
}

func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	// defaults
	if cfg.Bot.Workers <= 0 {
		cfg.Bot.Workers = 8
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Web.Port == 0 {
		cfg.Web.Port = 8080
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = "data/subscribers.json"
	}
	if cfg.Subscription.Currency == "" {
		cfg.Subscription.Currency = "INR"
	}
	if cfg.Subscription.PeriodDays <= 0 {
		cfg.Subscription.PeriodDays = 30
	}
	if cfg.Subscription.InviteTTLSeconds <= 0 {
		cfg.Subscription.InviteTTLSeconds = 600
	}
	if cfg.Scheduler.SweepInterval <= 0 {
		cfg.Scheduler.SweepInterval = time.Hour
	}

	// Minimal validation
	if cfg.Bot.Token == "" && !dev {
		return nil, errors.New("bot.token is required")
	}
	if cfg.Bot.ChannelID == 0 && !dev {
		return nil, errors.New("bot.channel_id is required")
	}
	if cfg.Subscription.Price <= 0 {
		return nil, errors.New("subscription.price is required")
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}
