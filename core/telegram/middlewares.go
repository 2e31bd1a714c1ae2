package telegram

import (
	"time"

	coreconfig "github.com/m3rciful/schoolbot/core/config"
	"github.com/m3rciful/schoolbot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// DefaultMiddlewares returns the global chain in registration order:
// serialize, recover, logger, rate_limit (only with a positive interval).
// serialize is outermost so the rest of the chain runs on the sender's
// worker in arrival order. The logger runs before the limiter so dropped
// updates are logged with a request id.
func DefaultMiddlewares(cfg *coreconfig.Config, onLimited tele.HandlerFunc) []Middleware {
	seq := middleware.NewSequencer(logHandlerError)
	chain := []Middleware{
		{Name: "serialize", Use: seq.Middleware, Drain: seq.Drain},
		{Name: "recover", Use: middleware.RecoverMiddleware},
		{Name: "logger", Use: middleware.LoggerMiddleware},
	}
	if limit := rateLimitOptions(cfg, onLimited); limit.Interval > 0 {
		chain = append(chain, Middleware{Name: "rate_limit", Use: middleware.RateLimitMiddleware(limit)})
	}
	return chain
}

func rateLimitOptions(cfg *coreconfig.Config, onLimited tele.HandlerFunc) middleware.RateLimitOptions {
	if cfg == nil || cfg.RateLimit.IntervalMS <= 0 {
		return middleware.RateLimitOptions{}
	}
	exclude := make(map[string]struct{}, len(cfg.RateLimit.ExcludeUpdates))
	for _, kind := range cfg.RateLimit.ExcludeUpdates {
		exclude[kind] = struct{}{}
	}
	return middleware.RateLimitOptions{
		Interval:  time.Duration(cfg.RateLimit.IntervalMS) * time.Millisecond,
		Exclude:   exclude,
		OnLimited: onLimited,
	}
}
