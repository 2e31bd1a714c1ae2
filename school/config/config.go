// Package config loads the school bot configuration.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	coreconfig "github.com/m3rciful/schoolbot/core/config"
	coredatabase "github.com/m3rciful/schoolbot/core/database"
)

const (
	// StateBackendMemory keeps conversation state in process memory.
	StateBackendMemory = "memory"
	// StateBackendRedis keeps conversation state in Redis.
	StateBackendRedis = "redis"

	defaultAdminPassword = "school123"
	defaultAdminChatID   = 7747368501
	defaultReminderTime  = "09:00"
	defaultRedisAddr     = "localhost:6379"
)

// AdminConfig holds the operator secret. PasswordHash wins over Password.
type AdminConfig struct {
	Password     string `yaml:"password" envconfig:"ADMIN_PASSWORD"`
	PasswordHash string `yaml:"password_hash" envconfig:"ADMIN_PASSWORD_HASH"`
}

// AIConfig selects the completion provider.
type AIConfig struct {
	APIKey       string   `yaml:"api_key" envconfig:"AI_API_KEY"`
	BaseURL      string   `yaml:"base_url" envconfig:"AI_BASE_URL"`
	Model        string   `yaml:"model" envconfig:"AI_MODEL"`
	Temperature  *float64 `yaml:"temperature" envconfig:"AI_TEMPERATURE"`
	SystemPrompt string   `yaml:"system_prompt" envconfig:"AI_SYSTEM_PROMPT"`
	// MaxRetries < 0 keeps the SDK default.
	MaxRetries int `yaml:"max_retries" envconfig:"AI_MAX_RETRIES"`
}

// ReminderConfig controls the daily event reminder.
type ReminderConfig struct {
	Time      string `yaml:"time" envconfig:"REMINDER_TIME"`
	Timezone  string `yaml:"timezone" envconfig:"REMINDER_TZ"`
	Recipient int64  `yaml:"recipient" envconfig:"ADMIN_CHAT_ID"`
	Disabled  bool   `yaml:"disabled" envconfig:"REMINDER_DISABLED"`
}

// Location resolves Timezone; empty means the local zone.
func (r ReminderConfig) Location() (*time.Location, error) {
	if strings.TrimSpace(r.Timezone) == "" {
		return time.Local, nil
	}
	return time.LoadLocation(r.Timezone)
}

// StateConfig selects the conversation state backend.
type StateConfig struct {
	Backend       string `yaml:"backend" envconfig:"STATE_BACKEND"`
	RedisAddr     string `yaml:"redis_addr" envconfig:"REDIS_ADDR"`
	RedisPassword string `yaml:"redis_password" envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `yaml:"redis_db" envconfig:"REDIS_DB"`
}

// Config is the full bot configuration.
type Config struct {
	coreconfig.Config `yaml:",inline"`

	Database coredatabase.Config `yaml:"database"`
	Admin    AdminConfig         `yaml:"admin"`
	AI       AIConfig            `yaml:"ai"`
	Reminder ReminderConfig      `yaml:"reminder"`
	State    StateConfig         `yaml:"state"`
}

// CoreConfig exposes the embedded core configuration.
func (c *Config) CoreConfig() *coreconfig.Config {
	if c == nil {
		return nil
	}
	return &c.Config
}

// Load reads path (optional), .env and the environment, then normalizes the result.
func Load(path string) (*Config, error) {
	cfg := &Config{AI: AIConfig{MaxRetries: -1}}
	if err := coreconfig.Load(path, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Normalize validates settings and fills defaults.
func (c *Config) Normalize() error {
	if err := coreconfig.Normalize(&c.Config); err != nil {
		return err
	}
	if err := c.Database.Normalize(); err != nil {
		return err
	}

	if c.Admin.PasswordHash == "" && c.Admin.Password == "" {
		c.Admin.Password = defaultAdminPassword
	}

	if c.AI.APIKey == "" {
		c.AI.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if t := c.AI.Temperature; t != nil && (*t < 0 || *t > 2) {
		return fmt.Errorf("ai.temperature must be within [0, 2], got %v", *t)
	}

	if strings.TrimSpace(c.Reminder.Time) == "" {
		c.Reminder.Time = defaultReminderTime
	}
	if c.Reminder.Recipient == 0 {
		c.Reminder.Recipient = defaultAdminChatID
	}
	if _, err := c.Reminder.Location(); err != nil {
		return fmt.Errorf("invalid reminder.timezone %q: %w", c.Reminder.Timezone, err)
	}

	backend := strings.ToLower(strings.TrimSpace(c.State.Backend))
	switch backend {
	case "":
		backend = StateBackendMemory
	case StateBackendMemory, StateBackendRedis:
	default:
		return fmt.Errorf("invalid state.backend %q; allowed: memory, redis", c.State.Backend)
	}
	c.State.Backend = backend
	if backend == StateBackendRedis && strings.TrimSpace(c.State.RedisAddr) == "" {
		c.State.RedisAddr = defaultRedisAddr
	}
	return nil
}
