// Package ai asks an OpenAI-compatible chat endpoint for free-text answers.
package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/m3rciful/schoolbot/core/logger"
)

// ErrEmptyCompletion is returned when the provider answers without text.
var ErrEmptyCompletion = errors.New("ai: empty completion")

const (
	DefaultBaseURL      = "https://openrouter.ai/api/v1"
	DefaultModel        = "google/gemma-3-1b-it:free"
	DefaultTemperature  = 0.7
	DefaultSystemPrompt = "Ты школьный ассистент, который коротко и вежливо отвечает на вопросы учеников и родителей."
)

// Config selects the endpoint and sampling settings.
type Config struct {
	APIKey       string
	BaseURL      string
	Model        string
	SystemPrompt string
	// Temperature nil means DefaultTemperature; zero is a valid setting.
	Temperature *float64
	// MaxRetries overrides the SDK retry count when >= 0.
	MaxRetries int
}

// Client sends one system prompt plus the user's text per call; no history is kept.
type Client struct {
	client      openai.Client
	cfg         Config
	temperature float64
}

// New builds a client, filling unset fields with defaults.
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	temperature := DefaultTemperature
	if cfg.Temperature != nil {
		temperature = *cfg.Temperature
	}
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = DefaultSystemPrompt
	}
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(cfg.BaseURL),
	}
	if cfg.MaxRetries >= 0 {
		opts = append(opts, option.WithMaxRetries(cfg.MaxRetries))
	}
	return &Client{client: openai.NewClient(opts...), cfg: cfg, temperature: temperature}
}

// Complete returns the model's answer to prompt.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.cfg.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(c.cfg.SystemPrompt),
			openai.UserMessage(prompt),
		},
		Temperature: openai.Float(c.temperature),
	})
	if err != nil {
		logger.Warn(ctx, "ai", "ai.complete",
			slog.String("status", "fail"),
			slog.String("model", c.cfg.Model),
			slog.Duration("duration", logger.Took(start)),
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
		)
		return "", fmt.Errorf("ai completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}
	answer := strings.TrimSpace(resp.Choices[0].Message.Content)
	if answer == "" {
		return "", ErrEmptyCompletion
	}
	logger.Debug(ctx, "ai", "ai.complete",
		slog.String("status", "ok"),
		slog.String("model", c.cfg.Model),
		slog.Duration("duration", logger.Took(start)),
	)
	return answer, nil
}
