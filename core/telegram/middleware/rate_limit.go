package middleware

import (
	"log/slog"
	"sync"
	"time"

	coreconfig "github.com/m3rciful/schoolbot/core/config"
	"github.com/m3rciful/schoolbot/core/logger"
	tghelpers "github.com/m3rciful/schoolbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// RateLimitOptions configures RateLimitMiddleware.
type RateLimitOptions struct {
	Interval time.Duration
	// Exclude lists update kinds (coreconfig.Update*) that are never limited.
	Exclude map[string]struct{}
	// OnLimited, when set, answers a dropped update.
	OnLimited tele.HandlerFunc
}

// rateLimiter remembers the last accepted update per user. Entries older
// than the interval carry no information and are pruned as the map grows.
type rateLimiter struct {
	mu        sync.Mutex
	interval  time.Duration
	last      map[int64]time.Time
	pruneSize int
}

func newRateLimiter(interval time.Duration) *rateLimiter {
	return &rateLimiter{interval: interval, last: make(map[int64]time.Time), pruneSize: 1024}
}

func (l *rateLimiter) allow(userID int64, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if prev, ok := l.last[userID]; ok && now.Sub(prev) < l.interval {
		return false
	}
	l.last[userID] = now
	if len(l.last) >= l.pruneSize {
		for id, ts := range l.last {
			if now.Sub(ts) >= l.interval {
				delete(l.last, id)
			}
		}
		if len(l.last) >= l.pruneSize {
			l.pruneSize *= 2
		}
	}
	return true
}

func updateKind(u tele.Update) string {
	switch {
	case u.Callback != nil:
		return coreconfig.UpdateCallback
	case u.Query != nil:
		return coreconfig.UpdateInlineQuery
	case u.Message != nil:
		return coreconfig.UpdateMessage
	}
	return ""
}

// RateLimitMiddleware drops updates that arrive from the same user within
// Interval of the previously accepted one.
func RateLimitMiddleware(opts RateLimitOptions) tele.MiddlewareFunc {
	limiter := newRateLimiter(opts.Interval)
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			user := c.Sender()
			if user == nil || opts.Interval <= 0 {
				return next(c)
			}
			if _, skip := opts.Exclude[updateKind(c.Update())]; skip {
				return next(c)
			}
			if limiter.allow(user.ID, time.Now()) {
				return next(c)
			}
			logger.Warn(tghelpers.Context(c), "tg", "tg.rate_limit",
				slog.String("status", "rate_limited"),
				slog.Duration("interval", opts.Interval),
			)
			if opts.OnLimited != nil {
				return opts.OnLimited(c)
			}
			return nil
		}
	}
}
