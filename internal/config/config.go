package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
	_ "time/tzdata"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Database     DatabaseConfig     `yaml:"database"`
	JWT          JWTConfig          `yaml:"jwt"`
	Telegram     TelegramConfig     `yaml:"telegram"`
	Notification NotificationConfig `yaml:"notification"`
	Scheduler    SchedulerConfig    `yaml:"scheduler"`
	Media        MediaConfig        `yaml:"media"`
	Pagination   PaginationConfig   `yaml:"pagination"`
	Log          LogConfig          `yaml:"log"`
}

type ServerConfig struct {
	Addr                string `yaml:"addr"`
	ReadTimeoutSeconds  int    `yaml:"read_timeout_seconds"`
	WriteTimeoutSeconds int    `yaml:"write_timeout_seconds"`
}

type DatabaseConfig struct {
	URL                    string `yaml:"url"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
	AutoMigrate            *bool  `yaml:"auto_migrate"`
}

type JWTConfig struct {
	Secret string `yaml:"secret"`
}

// TelegramConfig holds the chat-bot credentials used for notifications.
// An empty bot token disables delivery; messages are only logged.
type TelegramConfig struct {
	BotToken       string `yaml:"bot_token"`
	ChatID         string `yaml:"chat_id"`
	APIBaseURL     string `yaml:"api_base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

type NotificationConfig struct {
	Workers   int `yaml:"workers"`
	QueueSize int `yaml:"queue_size"`
}

type SchedulerConfig struct {
	// OverdueSweep is a cron spec with a leading seconds field.
	OverdueSweep string `yaml:"overdue_sweep"`
	TimeZone     string `yaml:"time_zone"`
}

type MediaConfig struct {
	Dir         string `yaml:"dir"`
	URLPrefix   string `yaml:"url_prefix"`
	MaxUploadMB int64  `yaml:"max_upload_mb"`
}

type PaginationConfig struct {
	PageSize int `yaml:"page_size"`
}

type LogConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "text"
}

// Load reads configuration from an optional YAML file, applies environment overrides and
// defaults, and validates the result. An empty path means environment only.
func Load(configPath string) (*Config, error) {
	var cfg Config

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.overrideWithEnv()
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func (c *Config) overrideWithEnv() {
	if val := os.Getenv("DATABASE_URL"); val != "" {
		c.Database.URL = val
	}
	if val := os.Getenv("SERVER_ADDR"); val != "" {
		c.Server.Addr = val
	}
	if val := os.Getenv("JWT_SECRET"); val != "" {
		c.JWT.Secret = val
	}
	if val := os.Getenv("TELEGRAM_BOT_TOKEN"); val != "" {
		c.Telegram.BotToken = val
	}
	if val := os.Getenv("TELEGRAM_CHAT_ID"); val != "" {
		c.Telegram.ChatID = val
	}
	if val := os.Getenv("MEDIA_DIR"); val != "" {
		c.Media.Dir = val
	}
	if val := os.Getenv("OVERDUE_SWEEP_SCHEDULE"); val != "" {
		c.Scheduler.OverdueSweep = val
	}
	if val := os.Getenv("DB_AUTO_MIGRATE"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			c.Database.AutoMigrate = &b
		}
	}
	if val := os.Getenv("LOG_LEVEL"); val != "" {
		c.Log.Level = val
	}
	if val := os.Getenv("LOG_FORMAT"); val != "" {
		c.Log.Format = val
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.ReadTimeoutSeconds == 0 {
		c.Server.ReadTimeoutSeconds = 15
	}
	if c.Server.WriteTimeoutSeconds == 0 {
		c.Server.WriteTimeoutSeconds = 15
	}
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = 20
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = 10
	}
	if c.Database.ConnMaxLifetimeMinutes == 0 {
		c.Database.ConnMaxLifetimeMinutes = 60
	}
	if c.Database.AutoMigrate == nil {
		enabled := true
		c.Database.AutoMigrate = &enabled
	}
	if c.Telegram.APIBaseURL == "" {
		c.Telegram.APIBaseURL = "https://api.telegram.org"
	}
	if c.Telegram.TimeoutSeconds == 0 {
		c.Telegram.TimeoutSeconds = 10
	}
	if c.Notification.Workers == 0 {
		c.Notification.Workers = 2
	}
	if c.Notification.QueueSize == 0 {
		c.Notification.QueueSize = 100
	}
	if c.Scheduler.OverdueSweep == "" {
		c.Scheduler.OverdueSweep = "0 0 9 * * *" // daily, 9 AM
	}
	if c.Scheduler.TimeZone == "" {
		c.Scheduler.TimeZone = "UTC"
	}
	if c.Media.Dir == "" {
		c.Media.Dir = "media"
	}
	if c.Media.URLPrefix == "" {
		c.Media.URLPrefix = "/media"
	}
	if c.Media.MaxUploadMB == 0 {
		c.Media.MaxUploadMB = 10
	}
	if c.Pagination.PageSize == 0 {
		c.Pagination.PageSize = 10
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return errors.New("database url is required (DATABASE_URL)")
	}
	if c.JWT.Secret == "" {
		return errors.New("JWT secret is required (JWT_SECRET)")
	}
	if c.Telegram.BotToken != "" && c.Telegram.ChatID == "" {
		return errors.New("telegram chat id is required when a bot token is set")
	}
	if c.Notification.Workers < 1 {
		return fmt.Errorf("invalid notification worker count: %d", c.Notification.Workers)
	}
	if c.Notification.QueueSize < 1 {
		return fmt.Errorf("invalid notification queue size: %d", c.Notification.QueueSize)
	}
	if c.Pagination.PageSize < 1 {
		return fmt.Errorf("invalid page size: %d", c.Pagination.PageSize)
	}
	if _, err := cron.NewParser(CronParseOptions).Parse(c.Scheduler.OverdueSweep); err != nil {
		return fmt.Errorf("invalid overdue sweep schedule %q: %w", c.Scheduler.OverdueSweep, err)
	}
	if _, err := time.LoadLocation(c.Scheduler.TimeZone); err != nil {
		return fmt.Errorf("invalid scheduler time zone %q: %w", c.Scheduler.TimeZone, err)
	}
	return nil
}

// CronParseOptions matches cron.WithSeconds, which the scheduler uses.
const CronParseOptions = cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor

func (c *Config) ReadTimeout() time.Duration {
	return time.Duration(c.Server.ReadTimeoutSeconds) * time.Second
}

func (c *Config) WriteTimeout() time.Duration {
	return time.Duration(c.Server.WriteTimeoutSeconds) * time.Second
}

func (c *Config) ConnMaxLifetime() time.Duration {
	return time.Duration(c.Database.ConnMaxLifetimeMinutes) * time.Minute
}

func (c *Config) TelegramTimeout() time.Duration {
	return time.Duration(c.Telegram.TimeoutSeconds) * time.Second
}

// Location returns the scheduler time zone. Validate has already checked it loads.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Scheduler.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}
