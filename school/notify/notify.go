// Package notify delivers bot replies and background notices through Telegram.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/m3rciful/schoolbot/core/logger"
	"github.com/m3rciful/schoolbot/core/telegram/keyboard"
	tgsender "github.com/m3rciful/schoolbot/core/telegram/sender"

	tele "gopkg.in/telebot.v4"
)

// Bot is the part of *tele.Bot used for delivery.
type Bot interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

// Notifier sends text with an optional reply keyboard.
type Notifier struct {
	bot    Bot
	outbox *tgsender.Outbox
}

// New builds a Notifier. A nil outbox makes Post synchronous.
func New(bot Bot, outbox *tgsender.Outbox) *Notifier {
	return &Notifier{bot: bot, outbox: outbox}
}

// Send delivers a reply synchronously. Non-empty rows become a one-time reply keyboard.
func (n *Notifier) Send(ctx context.Context, chatID int64, text string, rows [][]string) error {
	var opts []interface{}
	if len(rows) > 0 {
		markup := keyboard.ReplyButtons(rows...)
		markup.OneTimeKeyboard = true
		opts = append(opts, markup)
	}
	if _, err := n.bot.Send(tele.ChatID(chatID), text, opts...); err != nil {
		return fmt.Errorf("send to %d: %w", chatID, err)
	}
	return nil
}

// Post queues a plain message on the outbox, which retries transient
// failures. When the queue is full or closed the message is sent directly.
func (n *Notifier) Post(ctx context.Context, chatID int64, text string) error {
	if n.outbox != nil {
		err := n.outbox.Enqueue(ctx, tgsender.Delivery{ChatID: chatID, Text: text, Source: "notify.post"})
		if err == nil {
			return nil
		}
		if !errors.Is(err, tgsender.ErrQueueFull) && !errors.Is(err, tgsender.ErrQueueClosed) {
			return err
		}
		logger.Warn(ctx, "notify", "notify.post.direct",
			slog.String("status", "skip"),
			slog.Int64("chat_id", chatID),
			slog.String("cause", err.Error()),
		)
	}
	if _, err := n.bot.Send(tele.ChatID(chatID), text); err != nil {
		return fmt.Errorf("post to %d: %w", chatID, err)
	}
	return nil
}
