package dialog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/m3rciful/schoolbot/core/logger"
	"github.com/m3rciful/schoolbot/core/telegram/keyboard"
	"github.com/m3rciful/schoolbot/school/faq"
	"github.com/m3rciful/schoolbot/school/model"
	"github.com/m3rciful/schoolbot/school/schedule"
	"github.com/m3rciful/schoolbot/school/store"
)

// nearestEventsDays bounds the "meeting" shortcut lookup.
const nearestEventsDays = 30

var (
	vacationWords = []string{"каникул", "отдых"}
	meetingWords  = []string{"собран", "встреч"}
)

func (r *Router) handleStart(ctx context.Context, t *turn) reply {
	r.clearState(ctx, t.msg.UserID)
	if err := r.ensureUser(ctx, t.msg); err != nil {
		logger.Error(ctx, "dialog", "user.ensure",
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)
	}
	name := t.msg.FirstName
	if name == "" {
		name = t.msg.Username
	}
	return reply{text: fmt.Sprintf(textGreeting, name), keyboard: mainMenu}
}

func (r *Router) ensureUser(ctx context.Context, msg Message) error {
	exists, err := r.deps.Store.UserExists(ctx, msg.UserID)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return r.deps.Store.InsertUser(ctx, model.User{
		UserID:    msg.UserID,
		Username:  msg.Username,
		FirstName: msg.FirstName,
		LastName:  msg.LastName,
	})
}

func (r *Router) handleContinuation(ctx context.Context, t *turn) reply {
	// Every continuation is terminal: the user is Idle after this reply.
	defer r.clearState(ctx, t.msg.UserID)

	next, ok := r.continuations[t.state]
	if !ok {
		logger.Warn(ctx, "dialog", "state.unknown",
			slog.String("state", string(t.state)),
		)
		return reply{text: textShortHint, keyboard: mainMenu}
	}
	return next(ctx, t)
}

func (r *Router) handleSchedulePrompt(context.Context, *turn) reply {
	return reply{text: textSchedulePrompt}
}

func (r *Router) isScheduleQuery(t *turn) bool {
	return schedule.Matches(t.text)
}

func (r *Router) handleScheduleQuery(ctx context.Context, t *turn) reply {
	q, err := schedule.Parse(t.text)
	if err != nil {
		return reply{text: textScheduleNotFound}
	}
	lessons, err := r.deps.Store.ScheduleLessons(ctx, q.Class, q.Day)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return reply{text: textScheduleNotFound}
	case err != nil:
		logger.Error(ctx, "dialog", "schedule.lookup",
			slog.String("status", "fail"),
			slog.String("class_name", q.Class),
			slog.String("day", q.Day),
			slog.String("err", err.Error()),
		)
		return reply{text: textScheduleError}
	}
	return reply{text: fmt.Sprintf(textScheduleFound, q.Class, q.Day, lessons)}
}

func (r *Router) handleEvents(ctx context.Context, _ *turn) reply {
	events, err := r.deps.Store.ListEvents(ctx)
	if err != nil {
		logger.Error(ctx, "dialog", "events.list",
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)
		return reply{text: textEventsError}
	}
	if len(events) == 0 {
		return reply{text: textNoEvents}
	}
	return reply{text: renderEvents(events, r.deps.Now())}
}

// splitEvents partitions events into those on or after today and those before.
func splitEvents(events []model.Event, today time.Time) (upcoming, past []model.Event) {
	for _, e := range events {
		if model.SameOrAfterDay(e.Date, today) {
			upcoming = append(upcoming, e)
		} else {
			past = append(past, e)
		}
	}
	return upcoming, past
}

func renderEvents(events []model.Event, today time.Time) string {
	upcoming, past := splitEvents(events, today)
	var b strings.Builder
	b.WriteString(textEventsHeader)
	section := func(title string, list []model.Event) {
		if len(list) == 0 {
			return
		}
		b.WriteString("\n\n")
		b.WriteString(title)
		b.WriteString(":")
		for _, e := range list {
			fmt.Fprintf(&b, "\n%s (%s)", e.Name, e.Date.Format(model.DateLayout))
			if e.Description != "" {
				b.WriteString("\n")
				b.WriteString(e.Description)
			}
		}
	}
	section(textEventsUpcoming, upcoming)
	section(textEventsPast, past)
	return b.String()
}

func (r *Router) handleFAQMenu(_ context.Context, t *turn) reply {
	if t.text == ButtonOtherQuestion {
		return reply{text: textOtherQuestion}
	}
	rows := keyboard.Column(append(r.deps.FAQ.Questions(), ButtonOtherQuestion)...)
	return reply{text: textFAQMenu, keyboard: rows}
}

func (r *Router) handleFAQ(ctx context.Context, t *turn) reply {
	if answer, ok := r.deps.FAQ.Match(t.text); ok {
		return reply{text: answer, keyboard: mainMenu}
	}
	return reply{text: r.askAI(ctx, t.text), keyboard: mainMenu}
}

func (r *Router) handleAdminCommand(ctx context.Context, t *turn) reply {
	switch t.cmd {
	case "/add_schedule":
		r.setState(ctx, t.msg.UserID, StateAwaitingScheduleInput)
		return reply{text: textAddSchedulePrompt}
	case "/add_event":
		r.setState(ctx, t.msg.UserID, StateAwaitingEventInput)
		return reply{text: textAddEventPrompt}
	default:
		r.setState(ctx, t.msg.UserID, StateAwaitingAdminPassword)
		return reply{text: textPasswordPrompt}
	}
}

func (r *Router) handleFallback(ctx context.Context, t *turn) reply {
	if utf8.RuneCountInString(t.text) <= minFreeTextRunes {
		return reply{text: textShortHint, keyboard: mainMenu}
	}
	lower := strings.ToLower(t.text)
	switch {
	case containsAny(lower, vacationWords):
		return reply{text: faq.VacationAnswer}
	case containsAny(lower, meetingWords):
		return reply{text: r.nearestEvents(ctx)}
	}
	return reply{text: r.askAI(ctx, t.text)}
}

func (r *Router) nearestEvents(ctx context.Context) string {
	events, err := r.deps.Store.ListUpcomingEvents(ctx, nearestEventsDays)
	if err != nil {
		logger.Error(ctx, "dialog", "events.upcoming",
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)
		return textEventsError
	}
	if len(events) == 0 {
		return textNoNearestEvents
	}
	lines := make([]string, 0, len(events)+1)
	lines = append(lines, textNearestEvents)
	for _, e := range events {
		lines = append(lines, fmt.Sprintf("%s (%s)", e.Name, e.Date.Format(model.DateLayout)))
	}
	return strings.Join(lines, "\n")
}

// askAI returns the completion or the fixed apology; failures never reach the user as errors.
func (r *Router) askAI(ctx context.Context, prompt string) string {
	answer, err := r.deps.AI.Complete(ctx, prompt)
	if err != nil {
		logger.Warn(ctx, "dialog", "ai.fallback",
			slog.String("status", "fail"),
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
		)
		return textAIUnavailable
	}
	return answer
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
