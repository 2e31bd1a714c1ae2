package middleware

import (
	"log/slog"

	"github.com/m3rciful/schoolbot/core/logger"
	tghelpers "github.com/m3rciful/schoolbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// LoggerMiddleware attaches the request context to every update and, when
// debug sampling lets it through, logs the incoming message.
func LoggerMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		ctx := tghelpers.Context(c)
		if logger.ShouldSampleDebug() {
			logger.Debug(ctx, "tg", "update.received", receivedAttrs(c)...)
		}
		return next(c)
	}
}

func receivedAttrs(c tele.Context) []slog.Attr {
	attrs := []slog.Attr{slog.String("status", "ok")}
	if chat := c.Chat(); chat != nil {
		attrs = append(attrs, slog.String("chat_type", string(chat.Type)))
	}
	if u := c.Sender(); u != nil {
		if u.Username != "" {
			attrs = append(attrs, slog.String("username", logger.SanitizeLimit(u.Username, 64)))
		}
		if u.LanguageCode != "" {
			attrs = append(attrs, slog.String("lang", u.LanguageCode))
		}
	}
	switch m := c.Message(); {
	case m == nil:
	case m.Text != "":
		attrs = append(attrs, slog.String("payload", logger.SanitizeLimit(m.Text, 256)))
	case m.Photo != nil:
		attrs = append(attrs, slog.String("media", "photo"))
	case m.Document != nil:
		attrs = append(attrs, slog.String("media", "document"))
	case m.Sticker != nil:
		attrs = append(attrs, slog.String("media", "sticker"))
	}
	return attrs
}
