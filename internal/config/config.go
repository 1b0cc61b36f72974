// Package config provides YAML-based configuration loading for Switchboard.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// Defaults applied when the config file leaves a field empty.
const (
	DefaultCompletionMarker = "within 24 hours"
	DefaultFreshness        = 12 * time.Hour
	DefaultPort             = 8080
	DefaultOpenAIModel      = "gpt-4o"
)

// Config is the top-level Switchboard configuration, loaded from switchboard.yaml.
type Config struct {
	Database   DatabaseConfig   `yaml:"database"`
	Server     ServerConfig     `yaml:"server"`
	Completion CompletionConfig `yaml:"completion"`
	Notify     NotifyConfig     `yaml:"notify"`
	Messenger  MessengerConfig  `yaml:"messenger"`
	OpenAI     OpenAIConfig     `yaml:"openai"`
	LogLevel   string           `yaml:"log_level"`
	LogFormat  string           `yaml:"log_format"`
}

// DatabaseConfig selects the SQL backend. DSN wins over the discrete fields.
type DatabaseConfig struct {
	Driver   string `yaml:"driver"` // mysql, postgres, sqlite
	DSN      string `yaml:"dsn"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Debug    bool   `yaml:"debug"`
}

// ServerConfig holds the dashboard/API listener settings.
type ServerConfig struct {
	Port     int    `yaml:"port"`
	APIToken string `yaml:"api_token"`
	BaseURL  string `yaml:"base_url"`
}

// CompletionConfig parameterizes completion detection and the optional
// periodic sync.
type CompletionConfig struct {
	Marker       string        `yaml:"marker"`
	Freshness    time.Duration `yaml:"freshness"`
	SyncSchedule string        `yaml:"sync_schedule"` // 5-field cron; empty disables
}

// NotifyConfig lists the channels that receive QA issue alerts. Every
// configured channel is used.
type NotifyConfig struct {
	Slack      ChatChannelConfig `yaml:"slack"`
	Discord    ChatChannelConfig `yaml:"discord"`
	WebhookURL string            `yaml:"webhook_url"`
	Command    string            `yaml:"command"`
}

// ChatChannelConfig identifies a bot and the channel it posts to.
type ChatChannelConfig struct {
	BotToken  string `yaml:"bot_token"`
	ChannelID string `yaml:"channel_id"`
}

// Enabled reports whether both token and channel are set.
func (c ChatChannelConfig) Enabled() bool {
	return c.BotToken != "" && c.ChannelID != ""
}

// MessengerConfig holds the Facebook page webhook verification token.
type MessengerConfig struct {
	VerifyToken string `yaml:"verify_token"`
}

// OpenAIConfig enables AI lead extraction. The API key is read from
// OPENAI_API_KEY, never from the file.
type OpenAIConfig struct {
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

// Enabled reports whether lead extraction is configured.
func (c OpenAIConfig) Enabled() bool {
	return c.BaseURL != ""
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

// applyDefaults fills in derived and default values.
func (c *Config) applyDefaults() {
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	switch c.Database.Driver {
	case "mysql":
		if c.Database.Host == "" {
			c.Database.Host = "127.0.0.1"
		}
		if c.Database.Port == 0 {
			c.Database.Port = 3306
		}
		if c.Database.User == "" {
			c.Database.User = "root"
		}
	case "postgres":
		if c.Database.Host == "" {
			c.Database.Host = "127.0.0.1"
		}
		if c.Database.Port == 0 {
			c.Database.Port = 5432
		}
		if c.Database.User == "" {
			c.Database.User = "postgres"
		}
	}
	if c.Database.Name == "" {
		if c.Database.Driver == "sqlite" {
			c.Database.Name = "switchboard.db"
		} else {
			c.Database.Name = "helpdesk"
		}
	}
	if c.Server.Port == 0 {
		c.Server.Port = DefaultPort
	}
	if c.Completion.Marker == "" {
		c.Completion.Marker = DefaultCompletionMarker
	}
	if c.Completion.Freshness == 0 {
		c.Completion.Freshness = DefaultFreshness
	}
	if c.OpenAI.Model == "" {
		c.OpenAI.Model = DefaultOpenAIModel
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogFormat == "" {
		c.LogFormat = "text"
	}
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	switch c.Database.Driver {
	case "mysql", "postgres", "sqlite":
	default:
		errs = append(errs, fmt.Sprintf("database.driver %q is not one of mysql, postgres, sqlite", c.Database.Driver))
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port %d is out of range", c.Server.Port))
	}
	if c.Completion.Freshness < 0 {
		errs = append(errs, "completion.freshness must be positive")
	}
	if c.Completion.SyncSchedule != "" {
		if _, err := cron.ParseStandard(c.Completion.SyncSchedule); err != nil {
			errs = append(errs, fmt.Sprintf("completion.sync_schedule: %v", err))
		}
	}
	if (c.Notify.Slack.BotToken == "") != (c.Notify.Slack.ChannelID == "") {
		errs = append(errs, "notify.slack needs both bot_token and channel_id")
	}
	if (c.Notify.Discord.BotToken == "") != (c.Notify.Discord.ChannelID == "") {
		errs = append(errs, "notify.discord needs both bot_token and channel_id")
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		errs = append(errs, fmt.Sprintf("log_format %q is not one of text, json", c.LogFormat))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
