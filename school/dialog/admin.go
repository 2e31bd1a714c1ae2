package dialog

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/m3rciful/schoolbot/core/logger"
	"github.com/m3rciful/schoolbot/school/model"
)

func (r *Router) continuePassword(ctx context.Context, t *turn) reply {
	ok := r.deps.Admin.Check(t.text)
	logger.Info(ctx, "dialog", "admin.login",
		slog.String("status", "ok"),
		slog.Bool("granted", ok),
	)
	if !ok {
		return reply{text: textAccessDenied}
	}
	return reply{text: textAccessGranted}
}

func (r *Router) continueScheduleInput(ctx context.Context, t *turn) reply {
	fields := strings.Fields(t.text)
	if len(fields) != 3 {
		return reply{text: textAddScheduleFormat}
	}
	row := model.ScheduleRow{ClassName: fields[0], Day: fields[1], Lessons: fields[2]}
	if err := r.deps.Store.InsertScheduleRow(ctx, row); err != nil {
		logger.Error(ctx, "dialog", "schedule.insert",
			slog.String("status", "fail"),
			slog.String("class_name", row.ClassName),
			slog.String("day", row.Day),
			slog.String("err", err.Error()),
		)
		return reply{text: textSaveFailed}
	}
	logger.Info(ctx, "dialog", "schedule.insert",
		slog.String("status", "ok"),
		slog.String("class_name", row.ClassName),
		slog.String("day", row.Day),
	)
	return reply{text: textScheduleAdded}
}

func (r *Router) continueEventInput(ctx context.Context, t *turn) reply {
	ev, res, ok := parseEventInput(t.text, r.deps.Now().Location())
	if !ok {
		return res
	}
	if err := r.deps.Store.InsertEvent(ctx, ev); err != nil {
		logger.Error(ctx, "dialog", "event.insert",
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)
		return reply{text: textSaveFailed}
	}
	logger.Info(ctx, "dialog", "event.insert", slog.String("status", "ok"))
	return reply{text: textEventAdded}
}

// parseEventInput reads "name | date | description". On failure it returns the
// reply describing the problem.
func parseEventInput(text string, loc *time.Location) (model.Event, reply, bool) {
	parts := strings.Split(text, "|")
	if len(parts) != 3 {
		return model.Event{}, reply{text: textAddEventFormat}, false
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
		if parts[i] == "" {
			return model.Event{}, reply{text: textAddEventFormat}, false
		}
	}
	date, err := model.ParseDate(parts[1], loc)
	if err != nil {
		return model.Event{}, reply{text: fmt.Sprintf(textAddEventDate, parts[1])}, false
	}
	return model.Event{Name: parts[0], Date: date, Description: parts[2]}, reply{}, true
}
