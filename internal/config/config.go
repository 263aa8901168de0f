// Package config provides YAML-based configuration loading for Showroom.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level Showroom configuration, loaded from showroom.yaml.
type Config struct {
	Site     string         `yaml:"site"`
	LogLevel string         `yaml:"log_level"`
	Database DatabaseConfig `yaml:"database"`
	Server   ServerConfig   `yaml:"server"`
	Chat     ChatConfig     `yaml:"chat"`
	Presence PresenceConfig `yaml:"presence"`
	Feed     FeedConfig     `yaml:"feed"`
	Notify   NotifyConfig   `yaml:"notify"`
}

// DatabaseConfig selects the document store backend.
type DatabaseConfig struct {
	Driver   string `yaml:"driver"` // "sqlite" or "mysql"
	Path     string `yaml:"path"`   // sqlite file
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	DSN      string `yaml:"dsn"` // overrides host/port/user/name when set
}

// ServerConfig holds HTTP listener and operator credential settings.
type ServerConfig struct {
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	AdminUser      string   `yaml:"admin_user"`
	AdminPassword  string   `yaml:"admin_password"`
}

// ChatConfig controls the visitor widget.
type ChatConfig struct {
	MaxTextRunes    int      `yaml:"max_text_runes"`
	PrefillMaxRunes int      `yaml:"prefill_max_runes"`
	IdleTimeoutMin  int      `yaml:"idle_timeout_min"`
	Locales         []string `yaml:"locales"`
	DefaultLocale   string   `yaml:"default_locale"`
}

// PresenceConfig controls the operator heartbeat protocol.
type PresenceConfig struct {
	HeartbeatSec int `yaml:"heartbeat_sec"`
	FreshnessSec int `yaml:"freshness_sec"`
	PollMillis   int `yaml:"poll_ms"`
	RecheckSec   int `yaml:"recheck_sec"` // 0 disables periodic re-evaluation
}

// FeedConfig selects the change feed used by subscriptions.
type FeedConfig struct {
	RedisAddr string `yaml:"redis_addr"` // empty: in-process feed
	Channel   string `yaml:"channel"`
}

// NotifyConfig holds operator alert destinations.
type NotifyConfig struct {
	Slack      SlackConfig   `yaml:"slack"`
	Discord    DiscordConfig `yaml:"discord"`
	DigestCron string        `yaml:"digest_cron"`
}

// SlackConfig holds Slack alert settings.
type SlackConfig struct {
	BotToken  string `yaml:"bot_token"`
	ChannelID string `yaml:"channel_id"`
}

// DiscordConfig holds Discord alert settings.
type DiscordConfig struct {
	BotToken  string `yaml:"bot_token"`
	ChannelID string `yaml:"channel_id"`
}

// Load reads a YAML config file from path and returns a validated Config.
// Secrets present in the environment override the file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return parse(data, os.Getenv)
}

// Parse unmarshals YAML bytes into a validated Config.
func Parse(data []byte) (*Config, error) {
	return parse(data, func(string) string { return "" })
}

func parse(data []byte, getenv func(string) string) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyEnv(getenv)
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEnv copies secrets from the environment.
func (c *Config) applyEnv(getenv func(string) string) {
	if v := getenv("SHOWROOM_ADMIN_PASSWORD"); v != "" {
		c.Server.AdminPassword = v
	}
	if v := getenv("SHOWROOM_DATABASE_DSN"); v != "" {
		c.Database.DSN = v
	}
	if v := getenv("SHOWROOM_REDIS_ADDR"); v != "" {
		c.Feed.RedisAddr = v
	}
	if v := getenv("SLACK_BOT_TOKEN"); v != "" {
		c.Notify.Slack.BotToken = v
	}
	if v := getenv("DISCORD_BOT_TOKEN"); v != "" {
		c.Notify.Discord.BotToken = v
	}
}

// applyDefaults fills in derived and default values.
func (c *Config) applyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Database.Driver == "sqlite" && c.Database.Path == "" {
		c.Database.Path = "showroom.db"
	}
	if c.Database.Host == "" {
		c.Database.Host = "127.0.0.1"
	}
	if c.Database.Port == 0 {
		c.Database.Port = 3306
	}
	if c.Database.User == "" {
		c.Database.User = "root"
	}
	if c.Database.Name == "" && c.Site != "" {
		c.Database.Name = "showroom_" + c.Site
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.AdminUser == "" {
		c.Server.AdminUser = "admin"
	}
	if c.Chat.MaxTextRunes == 0 {
		c.Chat.MaxTextRunes = 2000
	}
	if c.Chat.PrefillMaxRunes == 0 {
		c.Chat.PrefillMaxRunes = 500
	}
	if c.Chat.IdleTimeoutMin == 0 {
		c.Chat.IdleTimeoutMin = 120
	}
	if len(c.Chat.Locales) == 0 {
		c.Chat.Locales = []string{"en", "ru", "zh"}
	}
	if c.Chat.DefaultLocale == "" {
		c.Chat.DefaultLocale = c.Chat.Locales[0]
	}
	if c.Presence.HeartbeatSec == 0 {
		c.Presence.HeartbeatSec = 30
	}
	if c.Presence.FreshnessSec == 0 {
		c.Presence.FreshnessSec = 120
	}
	if c.Presence.PollMillis == 0 {
		c.Presence.PollMillis = 2000
	}
	if c.Feed.Channel == "" {
		c.Feed.Channel = "showroom:changes"
	}
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	if c.Site == "" {
		errs = append(errs, "site is required")
	}
	switch c.Database.Driver {
	case "sqlite", "mysql":
	default:
		errs = append(errs, fmt.Sprintf("database.driver %q is not supported (sqlite, mysql)", c.Database.Driver))
	}
	if c.Server.AdminPassword == "" {
		errs = append(errs, "server.admin_password is required (or SHOWROOM_ADMIN_PASSWORD)")
	}
	if c.Presence.HeartbeatSec >= c.Presence.FreshnessSec {
		errs = append(errs, "presence.heartbeat_sec must be shorter than presence.freshness_sec")
	}
	if !contains(c.Chat.Locales, c.Chat.DefaultLocale) {
		errs = append(errs, fmt.Sprintf("chat.default_locale %q is not in chat.locales", c.Chat.DefaultLocale))
	}
	if c.Notify.Slack.BotToken != "" && c.Notify.Slack.ChannelID == "" {
		errs = append(errs, "notify.slack.channel_id is required when a slack token is set")
	}
	if c.Notify.Discord.BotToken != "" && c.Notify.Discord.ChannelID == "" {
		errs = append(errs, "notify.discord.channel_id is required when a discord token is set")
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// HeartbeatInterval returns the presence heartbeat period.
func (c *Config) HeartbeatInterval() time.Duration {
	return time.Duration(c.Presence.HeartbeatSec) * time.Second
}

// FreshnessWindow returns how long a heartbeat keeps presence fresh.
func (c *Config) FreshnessWindow() time.Duration {
	return time.Duration(c.Presence.FreshnessSec) * time.Second
}

// PollInterval returns the store poll period for subscriptions.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Presence.PollMillis) * time.Millisecond
}

// IdleTimeout returns how long an unused widget instance is kept.
func (c *Config) IdleTimeout() time.Duration {
	return time.Duration(c.Chat.IdleTimeoutMin) * time.Minute
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
