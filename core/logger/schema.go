package logger

import (
	"log/slog"
	"strings"
)

// statuses are the values accepted for the status key; outcomes are the
// subset a handler summary may end with.
var (
	statuses = []string{"ok", "fail", "skip", "retry", "rate_limited", "cancelled"}
	outcomes = []string{"ok", "fail", "cancelled", "rate_limited"}
)

func levelName(l slog.Level) string {
	switch {
	case l < slog.LevelInfo:
		return "DEBUG"
	case l < slog.LevelWarn:
		return "INFO"
	case l < slog.LevelError:
		return "WARN"
	default:
		return "ERROR"
	}
}

// oneOf lowercases v and reports whether it is in allowed.
func oneOf(v string, allowed []string) (string, bool) {
	v = strings.ToLower(strings.TrimSpace(v))
	for _, a := range allowed {
		if v == a {
			return v, true
		}
	}
	return v, false
}

// defaultKeyOrder puts identity and routing keys first; keys not listed
// follow alphabetically.
var defaultKeyOrder = []string{
	"ts", "level", "component", "event", "status",
	"rid", "rid_full", "ts_unix_nano",
	"update_id", "user_id", "chat_id", "handler",
	"rule", "state", "next_state", "outcome", "duration_ms",
	"class_name", "day", "count", "events", "sent",
	"run_id", "job", "next_run",
	"payload", "username",
	"mode", "listen", "public_url",
	"db", "host", "port", "model",
	"err", "err_code", "error_kind", "cause", "attempts",
}
