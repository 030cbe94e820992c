// Package config provides YAML-based configuration loading for Funil.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the top-level Funil configuration, loaded from funil.yaml.
// Secrets are never stored in the file; ApplyEnv overlays them from the
// environment after parsing.
type Config struct {
	App       AppConfig       `yaml:"app"`
	HTTP      HTTPConfig      `yaml:"http"`
	DB        DBConfig        `yaml:"db"`
	Security  SecurityConfig  `yaml:"security"`
	Email     EmailConfig     `yaml:"email"`
	Chat      ChatConfig      `yaml:"chat"`
	WhatsApp  WhatsAppConfig  `yaml:"whatsapp"`
	Rotation  RotationConfig  `yaml:"rotation"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Digest    DigestConfig    `yaml:"digest"`
	Agents    []AgentConfig   `yaml:"agents"`
}

// AppConfig holds application identity settings.
type AppConfig struct {
	Name  string `yaml:"name"`
	Debug bool   `yaml:"debug"`
}

// HTTPConfig holds settings for the public API server.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// DBConfig holds connection settings for the MySQL server.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

// SecurityConfig guards the public submission endpoint.
type SecurityConfig struct {
	SecretKey      string   `yaml:"-"` // FUNIL_SECRET_KEY
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// EmailConfig holds settings for the ops notification mail.
type EmailConfig struct {
	Provider    string `yaml:"provider"` // "console" (default) or "sendgrid"
	APIKey      string `yaml:"-"`        // SENDGRID_API_KEY
	FromName    string `yaml:"from_name"`
	FromAddress string `yaml:"from_address"`
	OpsAddress  string `yaml:"ops_address"`
}

// ChatConfig selects an optional ops chat channel for lead notifications.
type ChatConfig struct {
	Platform         string `yaml:"platform"` // "", "slack" or "discord"
	SlackToken       string `yaml:"-"`        // SLACK_BOT_TOKEN
	SlackChannelID   string `yaml:"slack_channel_id"`
	DiscordToken     string `yaml:"-"` // DISCORD_BOT_TOKEN
	DiscordChannelID string `yaml:"discord_channel_id"`
}

// WhatsAppConfig holds settings for the external fallback messaging relay.
type WhatsAppConfig struct {
	RelayURL   string `yaml:"relay_url"`
	RelayToken string `yaml:"-"` // WHATSAPP_RELAY_TOKEN
	OpsNumber  string `yaml:"ops_number"`
}

// RotationConfig tunes round-robin assignment and session resolution.
type RotationConfig struct {
	Sentinel        string   `yaml:"sentinel"`          // agent name used when the roster is empty
	Roles           []string `yaml:"roles"`             // selling-capable roles
	OrphanWindowMin int      `yaml:"orphan_window_min"` // reclaim window for phoneless sessions
	RosterTTLMin    int      `yaml:"roster_ttl_min"`
}

// RateLimitConfig tunes the per-client submission limiter.
type RateLimitConfig struct {
	MaxRequests   int `yaml:"max_requests"`
	WindowSeconds int `yaml:"window_seconds"`
}

// DigestConfig schedules the daily lead summary email.
type DigestConfig struct {
	Cron    string `yaml:"cron"`
	Enabled bool   `yaml:"enabled"`
}

// AgentConfig seeds a roster entry at db init time.
type AgentConfig struct {
	Name  string `yaml:"name"`
	Role  string `yaml:"role"`
	Phone string `yaml:"phone"`
	Email string `yaml:"email"`
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

// ApplyEnv overlays secrets from the environment onto the parsed config.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("FUNIL_SECRET_KEY"); v != "" {
		c.Security.SecretKey = v
	}
	if v := os.Getenv("SENDGRID_API_KEY"); v != "" {
		c.Email.APIKey = v
	}
	if v := os.Getenv("SLACK_BOT_TOKEN"); v != "" {
		c.Chat.SlackToken = v
	}
	if v := os.Getenv("DISCORD_BOT_TOKEN"); v != "" {
		c.Chat.DiscordToken = v
	}
	if v := os.Getenv("WHATSAPP_RELAY_TOKEN"); v != "" {
		c.WhatsApp.RelayToken = v
	}
}

// applyDefaults fills in derived and default values.
func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "Funil"
	}
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 8080
	}
	if c.DB.Host == "" {
		c.DB.Host = "127.0.0.1"
	}
	if c.DB.Port == 0 {
		c.DB.Port = 3306
	}
	if c.DB.User == "" {
		c.DB.User = "root"
	}
	if c.DB.Database == "" {
		c.DB.Database = "funil"
	}
	if c.Email.Provider == "" {
		c.Email.Provider = "console"
	}
	if c.Email.FromName == "" {
		c.Email.FromName = c.App.Name
	}
	if c.Email.FromAddress == "" {
		c.Email.FromAddress = "noreply@localhost"
	}
	if c.Rotation.Sentinel == "" {
		c.Rotation.Sentinel = "Team"
	}
	if len(c.Rotation.Roles) == 0 {
		c.Rotation.Roles = []string{"sales"}
	}
	if c.Rotation.OrphanWindowMin == 0 {
		c.Rotation.OrphanWindowMin = 30
	}
	if c.Rotation.RosterTTLMin == 0 {
		c.Rotation.RosterTTLMin = 5
	}
	if c.RateLimit.MaxRequests == 0 {
		c.RateLimit.MaxRequests = 3
	}
	if c.RateLimit.WindowSeconds == 0 {
		c.RateLimit.WindowSeconds = 60
	}
	if c.Digest.Cron == "" {
		c.Digest.Cron = "0 8 * * *"
	}
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	if c.Email.Provider != "console" && c.Email.Provider != "sendgrid" {
		errs = append(errs, fmt.Sprintf("email.provider %q is not supported", c.Email.Provider))
	}
	switch c.Chat.Platform {
	case "", "slack", "discord":
	default:
		errs = append(errs, fmt.Sprintf("chat.platform %q is not supported", c.Chat.Platform))
	}
	if c.Chat.Platform == "slack" && c.Chat.SlackChannelID == "" {
		errs = append(errs, "chat.slack_channel_id is required for the slack platform")
	}
	if c.Chat.Platform == "discord" && c.Chat.DiscordChannelID == "" {
		errs = append(errs, "chat.discord_channel_id is required for the discord platform")
	}
	for i, a := range c.Agents {
		if a.Name == "" {
			errs = append(errs, fmt.Sprintf("agents[%d].name is required", i))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// OriginAllowed reports whether the given request origin is in the
// allow-list. An empty allow-list permits any origin (development mode).
func (c *Config) OriginAllowed(origin string) bool {
	if len(c.Security.AllowedOrigins) == 0 {
		return true
	}
	origin = strings.TrimSuffix(origin, "/")
	for _, allowed := range c.Security.AllowedOrigins {
		if strings.EqualFold(origin, strings.TrimSuffix(allowed, "/")) {
			return true
		}
	}
	return false
}
