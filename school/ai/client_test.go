package ai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedRequest struct {
	Model       string   `json:"model"`
	Temperature *float64 `json:"temperature"`
	Messages    []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func completionServer(t *testing.T, status int, body string, got *capturedRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		if got != nil {
			require.NoError(t, json.Unmarshal(raw, got))
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

const okBody = `{"id":"gen-1","object":"chat.completion","created":1,"model":"google/gemma-3-1b-it:free",
"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"  Уроки начинаются в 8:30. "}}]}`

func TestCompleteSendsSystemAndUserMessage(t *testing.T) {
	var got capturedRequest
	srv := completionServer(t, http.StatusOK, okBody, &got)
	c := New(Config{APIKey: "test-key", BaseURL: srv.URL, MaxRetries: 0})

	answer, err := c.Complete(context.Background(), "Во сколько начинаются уроки?")
	require.NoError(t, err)
	assert.Equal(t, "Уроки начинаются в 8:30.", answer)

	assert.Equal(t, DefaultModel, got.Model)
	require.NotNil(t, got.Temperature)
	assert.InDelta(t, DefaultTemperature, *got.Temperature, 1e-9)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, DefaultSystemPrompt, got.Messages[0].Content)
	assert.Equal(t, "user", got.Messages[1].Role)
	assert.Equal(t, "Во сколько начинаются уроки?", got.Messages[1].Content)
}

func TestCompleteEmptyChoices(t *testing.T) {
	srv := completionServer(t, http.StatusOK, `{"id":"gen-2","object":"chat.completion","created":1,"model":"m","choices":[]}`, nil)
	c := New(Config{APIKey: "test-key", BaseURL: srv.URL, MaxRetries: 0})

	_, err := c.Complete(context.Background(), "привет")
	assert.ErrorIs(t, err, ErrEmptyCompletion)
}

func TestCompleteProviderError(t *testing.T) {
	srv := completionServer(t, http.StatusTooManyRequests, `{"error":{"message":"rate limited","code":429}}`, nil)
	c := New(Config{APIKey: "test-key", BaseURL: srv.URL, MaxRetries: 0})

	_, err := c.Complete(context.Background(), "привет")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrEmptyCompletion)
}

func TestNewAppliesDefaults(t *testing.T) {
	c := New(Config{MaxRetries: -1})
	assert.Equal(t, DefaultBaseURL, c.cfg.BaseURL)
	assert.Equal(t, DefaultModel, c.cfg.Model)
	assert.Equal(t, DefaultTemperature, c.temperature)
	assert.Equal(t, DefaultSystemPrompt, c.cfg.SystemPrompt)
}

func TestCompleteSendsZeroTemperature(t *testing.T) {
	var got capturedRequest
	srv := completionServer(t, http.StatusOK, okBody, &got)
	zero := 0.0
	c := New(Config{APIKey: "test-key", BaseURL: srv.URL, Temperature: &zero, MaxRetries: 0})

	_, err := c.Complete(context.Background(), "привет")
	require.NoError(t, err)
	require.NotNil(t, got.Temperature)
	assert.Zero(t, *got.Temperature)
}
