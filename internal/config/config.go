// Package config provides YAML-based configuration loading for Boxcar.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level Boxcar configuration, loaded from boxcar.yaml.
type Config struct {
	BotToken string `yaml:"bot_token"`
	BasePath string `yaml:"base_path"`
	// MediaOwner is the system user that should own relocated payloads,
	// typically the web server user serving them.
	MediaOwner string         `yaml:"media_owner"`
	TypeMap    map[int64]int64 `yaml:"type_map"`

	API      APIConfig      `yaml:"api"`
	MySQL    MySQLConfig    `yaml:"mysql"`
	Redis    RedisConfig    `yaml:"redis"`
	Download DownloadConfig `yaml:"download"`
	Migrate  MigrateConfig  `yaml:"migrate"`
	HTTP     HTTPConfig     `yaml:"http"`
	Notify   NotifyConfig   `yaml:"notify"`
}

// APIConfig holds connection settings for the local Telegram Bot API server.
type APIConfig struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	StatisticsPort int    `yaml:"statistics_port"`
	WebhookURL     string `yaml:"webhook_url"`
}

// MySQLConfig holds connection settings for the relational store.
type MySQLConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

// RedisConfig holds connection settings for the lock/counter store.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// DownloadConfig bounds the download scheduler.
type DownloadConfig struct {
	// MaxConcurrent caps the number of rows in DOWNLOADING at once.
	MaxConcurrent int `yaml:"max_concurrent"`
	// TimeoutSeconds is both the curl wall-clock limit and the reclaim
	// horizon for rows stuck in DOWNLOADING.
	TimeoutSeconds int `yaml:"timeout_seconds"`
	// CooldownSeconds is how long the ingest lock pauses dispatch after an
	// empty fetch artifact.
	CooldownSeconds int `yaml:"cooldown_seconds"`
	// MaxFileSize excludes oversized payloads from scheduling. 0 = no cap.
	MaxFileSize int64 `yaml:"max_file_size"`
	// IntervalSeconds is the scheduler cycle delay.
	IntervalSeconds int `yaml:"interval_seconds"`
}

// Timeout returns the download timeout as a duration.
func (d DownloadConfig) Timeout() time.Duration {
	return time.Duration(d.TimeoutSeconds) * time.Second
}

// Interval returns the scheduler cycle delay as a duration.
func (d DownloadConfig) Interval() time.Duration {
	return time.Duration(d.IntervalSeconds) * time.Second
}

// Cooldown returns the post-failure ingest pause as a duration.
func (d DownloadConfig) Cooldown() time.Duration {
	return time.Duration(d.CooldownSeconds) * time.Second
}

// MigrateConfig controls the migration grouper.
type MigrateConfig struct {
	// Lenient migrates groups as soon as their members reach storage,
	// without requiring completeness per the ingest counter. The default
	// is strict: a Post is written only once all sibling media arrived.
	Lenient bool `yaml:"lenient"`
	// StaleAfterSeconds migrates an incomplete group leniently once it has
	// been waiting this long. 0 disables the fallback.
	StaleAfterSeconds int `yaml:"stale_after_seconds"`
	BatchSize         int `yaml:"batch_size"`
	IntervalSeconds   int `yaml:"interval_seconds"`
}

// StaleAfter returns the lenient-fallback window as a duration.
func (m MigrateConfig) StaleAfter() time.Duration {
	return time.Duration(m.StaleAfterSeconds) * time.Second
}

// Interval returns the grouper cycle delay as a duration.
func (m MigrateConfig) Interval() time.Duration {
	return time.Duration(m.IntervalSeconds) * time.Second
}

// HTTPConfig configures the webhook/status HTTP server.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// NotifyConfig configures operator alert delivery. Empty settings disable
// the corresponding channel.
type NotifyConfig struct {
	SlackToken     string `yaml:"slack_token"`
	SlackChannel   string `yaml:"slack_channel"`
	DiscordToken   string `yaml:"discord_token"`
	DiscordChannel string `yaml:"discord_channel"`
}

// Load reads a YAML config file from path and returns a validated Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse unmarshals YAML bytes into a validated Config.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// BotID extracts the numeric bot id from the "id:secret" token format.
func (c *Config) BotID() int64 {
	id, _, ok := strings.Cut(c.BotToken, ":")
	if !ok {
		return 0
	}
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// ArtifactPath returns the drop location for fetch result artifacts.
func (c *Config) ArtifactPath() string {
	return c.BasePath + "/json"
}

// MediaStorePath returns the durable payload storage root.
func (c *Config) MediaStorePath() string {
	return c.BasePath + "/media"
}

// applyDefaults fills in derived and default values.
func (c *Config) applyDefaults() {
	if c.BasePath == "" {
		c.BasePath = "./data"
	}
	c.BasePath = strings.TrimRight(c.BasePath, "/")
	if c.MediaOwner == "" {
		c.MediaOwner = "www"
	}
	if c.API.Host == "" {
		c.API.Host = "127.0.0.1"
	}
	if c.API.Port == 0 {
		c.API.Port = 8081
	}
	if c.API.StatisticsPort == 0 {
		c.API.StatisticsPort = 8082
	}
	if c.MySQL.Host == "" {
		c.MySQL.Host = "127.0.0.1"
	}
	if c.MySQL.Port == 0 {
		c.MySQL.Port = 3306
	}
	if c.MySQL.User == "" {
		c.MySQL.User = "root"
	}
	if c.Redis.Addr == "" {
		c.Redis.Addr = "127.0.0.1:6379"
	}
	if c.Download.MaxConcurrent == 0 {
		c.Download.MaxConcurrent = 10
	}
	if c.Download.TimeoutSeconds == 0 {
		c.Download.TimeoutSeconds = 3600
	}
	if c.Download.CooldownSeconds == 0 {
		c.Download.CooldownSeconds = 2
	}
	if c.Download.IntervalSeconds == 0 {
		c.Download.IntervalSeconds = 3
	}
	if c.Migrate.BatchSize == 0 {
		c.Migrate.BatchSize = 50
	}
	if c.Migrate.IntervalSeconds == 0 {
		c.Migrate.IntervalSeconds = 3
	}
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 8080
	}
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	if c.BotToken == "" {
		errs = append(errs, "bot_token is required")
	} else if !strings.Contains(c.BotToken, ":") {
		errs = append(errs, "bot_token must be in id:secret format")
	}
	if c.MySQL.Database == "" {
		errs = append(errs, "mysql.database is required")
	}
	if c.Download.MaxConcurrent < 1 {
		errs = append(errs, "download.max_concurrent must be at least 1")
	}
	if c.Download.TimeoutSeconds < 0 {
		errs = append(errs, "download.timeout_seconds must not be negative")
	}
	if c.Migrate.StaleAfterSeconds < 0 {
		errs = append(errs, "migrate.stale_after_seconds must not be negative")
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
