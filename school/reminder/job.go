// Package reminder posts a daily notice about tomorrow's school events.
package reminder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/m3rciful/schoolbot/core/logger"
	"github.com/m3rciful/schoolbot/school/model"
)

// lookaheadDays selects events dated today or tomorrow.
const lookaheadDays = 1

// EventSource lists events in the upcoming window.
type EventSource interface {
	ListUpcomingEvents(ctx context.Context, withinDays int) ([]model.Event, error)
}

// Poster hands one notice for a chat over for delivery. A nil error means
// the notice was accepted, not that it already reached the chat.
type Poster interface {
	Post(ctx context.Context, chatID int64, text string) error
}

// Job sends one reminder per upcoming event to a single recipient.
type Job struct {
	events    EventSource
	poster    Poster
	recipient int64
}

// NewJob builds the reminder job for recipient.
func NewJob(events EventSource, poster Poster, recipient int64) *Job {
	return &Job{events: events, poster: poster, recipient: recipient}
}

// Name identifies the job in logs.
func (j *Job) Name() string { return "event_reminder" }

// Run posts a reminder for each event. A failed post does not stop the others;
// all post errors are returned joined. The batch line counts accepted posts;
// the outbox logs each delivery outcome.
func (j *Job) Run(ctx context.Context) error {
	events, err := j.events.ListUpcomingEvents(ctx, lookaheadDays)
	if err != nil {
		return fmt.Errorf("list upcoming events: %w", err)
	}
	var errs []error
	queued := 0
	for _, e := range events {
		if err := j.poster.Post(ctx, j.recipient, Text(e)); err != nil {
			logger.Warn(ctx, "reminder", "reminder.post",
				slog.String("status", "fail"),
				slog.Int64("chat_id", j.recipient),
				slog.String("err", err.Error()),
			)
			errs = append(errs, err)
			continue
		}
		queued++
	}
	joined := errors.Join(errs...)
	logger.Info(ctx, "reminder", "reminder.batch",
		slog.String("status", logger.Status(joined)),
		slog.Int("events", len(events)),
		slog.Int("queued", queued),
	)
	return joined
}

// Text renders the reminder for one event.
func Text(e model.Event) string {
	return fmt.Sprintf("🔔 Напоминание: %s завтра!\n%s", e.Name, e.Description)
}
