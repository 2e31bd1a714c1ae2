package router

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/m3rciful/schoolbot/core/logger"
	tghelpers "github.com/m3rciful/schoolbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// summary is the single handler.handled line written per update.
type summary struct {
	rule  string
	start time.Time
}

func begin(c tele.Context, rule string) summary {
	tghelpers.Tag(c, rule)
	return summary{rule: rule, start: time.Now()}
}

func (s summary) done(c tele.Context, err error) {
	if s.rule == "" {
		s.rule = "unknown"
	}
	ctx := tghelpers.Tag(c, s.rule)
	status := logger.Status(err)
	attrs := []slog.Attr{
		slog.String("status", status),
		slog.String("rule", s.rule),
		slog.String("outcome", status),
		slog.Duration("duration", logger.Took(s.start)),
	}
	if err != nil {
		attrs = append(attrs,
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
			slog.String("err_code", errorCode(err)),
		)
	}
	logger.LogEvent(ctx, logger.Component("tg"), slog.LevelInfo, "handler.handled", attrs...)
}

type coder interface{ Code() string }

// errorCode names err for dashboards: its own Code() when it has one,
// otherwise the upper-cased type name of the outermost error.
func errorCode(err error) string {
	if err == nil {
		return ""
	}
	var ce coder
	if errors.As(err, &ce) {
		if code := strings.TrimSpace(ce.Code()); code != "" {
			return strings.ToUpper(strings.ReplaceAll(code, " ", "_"))
		}
	}
	name := strings.TrimLeft(fmt.Sprintf("%T", err), "*")
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		name = name[i+1:]
	}
	if name == "" {
		return "UNKNOWN_ERROR"
	}
	return strings.ToUpper(name)
}
