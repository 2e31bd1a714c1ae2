// Package config holds the settings shared by every bot built on core:
// the Telegram transport, logging and rate limiting. Projects embed Config
// in their own struct and call Load with it.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

const (
	RunModeWebhook  = "webhook"
	RunModeLongpoll = "longpoll"
)

// Update kinds accepted by RateLimitConfig.ExcludeUpdates.
const (
	UpdateCallback    = "callback"
	UpdateMessage     = "message"
	UpdateInlineQuery = "inline_query"
)

var updateKinds = []string{UpdateCallback, UpdateMessage, UpdateInlineQuery}

type TelegramConfig struct {
	Token   string `yaml:"token" envconfig:"BOT_TOKEN"`
	RunMode string `yaml:"run_mode" envconfig:"TELEGRAM_RUN_MODE"`
	// Zero means the transport default.
	LongPollTimeoutSeconds int `yaml:"longpoll_timeout_seconds" envconfig:"TELEGRAM_LONGPOLL_TIMEOUT_SECONDS"`
}

type WebhookConfig struct {
	URL    string `yaml:"url" envconfig:"WEBHOOK_URL"`
	Listen string `yaml:"listen" envconfig:"WEBHOOK_LISTEN"`
	Port   int    `yaml:"port" envconfig:"WEBHOOK_PORT"`
	// SecretToken is echoed by Telegram in X-Telegram-Bot-Api-Secret-Token.
	SecretToken string `yaml:"secret_token" envconfig:"WEBHOOK_SECRET"`
}

type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LOG_LEVEL"`
	Format      string `yaml:"format" envconfig:"LOG_FORMAT"`
	KeysOrder   string `yaml:"keys_order" envconfig:"LOG_KEYS_ORDER"`
	DebugSample string `yaml:"debug_sample" envconfig:"LOG_DEBUG_SAMPLE"`
	Dir         string `yaml:"dir" envconfig:"LOG_DIR"`
	BotFile     string `yaml:"bot_file" envconfig:"LOG_BOT_FILE"`
	Profile     string `yaml:"profile" envconfig:"LOG_PROFILE"`
}

// RateLimitConfig spaces out updates of one user. A zero interval turns
// limiting off.
type RateLimitConfig struct {
	IntervalMS     int      `yaml:"interval_ms" envconfig:"RATE_LIMIT_INTERVAL_MS"`
	ExcludeUpdates []string `yaml:"exclude_updates" envconfig:"RATE_LIMIT_EXCLUDE_UPDATES"`
}

type Config struct {
	Telegram  TelegramConfig  `yaml:"telegram"`
	Webhook   WebhookConfig   `yaml:"webhook"`
	Logging   LoggingConfig   `yaml:"logging"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// Load fills dst from the YAML file at path, then .env, then the process
// environment. Later sources win. An empty path skips the file and a
// missing .env is ignored.
func Load(path string, dst any) error {
	if dst == nil {
		return errors.New("config: nil destination")
	}
	if err := readYAML(path, dst); err != nil {
		return err
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("config: load .env: %w", err)
	}
	if err := envconfig.Process("", dst); err != nil {
		return fmt.Errorf("config: env: %w", err)
	}
	return nil
}

func readYAML(path string, dst any) error {
	if path = strings.TrimSpace(path); path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

// Normalize validates cfg and rewrites enum-like fields to their canonical
// lowercase form. All problems are reported together.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return errors.New("config: nil config")
	}
	var errs []error
	if strings.TrimSpace(cfg.Telegram.Token) == "" {
		errs = append(errs, errors.New("BOT_TOKEN is required"))
	}
	errs = append(errs, cfg.normalizeRunMode(), cfg.normalizeRateLimit())
	return errors.Join(errs...)
}

func (c *Config) normalizeRunMode() error {
	mode := strings.ToLower(strings.TrimSpace(c.Telegram.RunMode))
	if mode == "" || mode == "polling" {
		mode = RunModeLongpoll
	}
	switch mode {
	case RunModeLongpoll:
		if c.Telegram.LongPollTimeoutSeconds < 0 {
			return errors.New("TELEGRAM_LONGPOLL_TIMEOUT_SECONDS must not be negative")
		}
	case RunModeWebhook:
		var missing []string
		if strings.TrimSpace(c.Webhook.URL) == "" {
			missing = append(missing, "WEBHOOK_URL")
		}
		if strings.TrimSpace(c.Webhook.Listen) == "" {
			missing = append(missing, "WEBHOOK_LISTEN")
		}
		if c.Webhook.Port <= 0 {
			missing = append(missing, "WEBHOOK_PORT")
		}
		if len(missing) > 0 {
			return fmt.Errorf("webhook mode needs %s", strings.Join(missing, ", "))
		}
	default:
		return fmt.Errorf("unknown TELEGRAM_RUN_MODE %q (want %s or %s)", c.Telegram.RunMode, RunModeLongpoll, RunModeWebhook)
	}
	c.Telegram.RunMode = mode
	return nil
}

func (c *Config) normalizeRateLimit() error {
	if c.RateLimit.IntervalMS < 0 {
		return errors.New("RATE_LIMIT_INTERVAL_MS must not be negative")
	}
	kinds := c.RateLimit.ExcludeUpdates[:0]
	for _, raw := range c.RateLimit.ExcludeUpdates {
		kind := strings.ToLower(strings.TrimSpace(raw))
		if kind == "" {
			continue
		}
		if !slices.Contains(updateKinds, kind) {
			return fmt.Errorf("unknown RATE_LIMIT_EXCLUDE_UPDATES entry %q (want one of %s)", raw, strings.Join(updateKinds, ", "))
		}
		kinds = append(kinds, kind)
	}
	c.RateLimit.ExcludeUpdates = kinds
	return nil
}
