// Package store persists users, schedules and events in Postgres.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/schoolbot/core/logger"
	"github.com/m3rciful/schoolbot/school/model"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("store: not found")

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Store runs queries against a shared connection pool.
type Store struct {
	db *sqlx.DB
}

// New wraps an open pool. The caller owns the pool's lifecycle.
func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// UserExists reports whether a users row exists for the Telegram id.
func (s *Store) UserExists(ctx context.Context, userID int64) (bool, error) {
	query, args, err := userExistsQuery(userID).ToSql()
	if err != nil {
		return false, fmt.Errorf("build user query: %w", err)
	}
	var id int64
	err = s.db.GetContext(ctx, &id, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get user %d: %w", userID, err)
	}
	return true, nil
}

// InsertUser stores a new user row.
func (s *Store) InsertUser(ctx context.Context, u model.User) error {
	return s.exec(ctx, "insert user", insertUserQuery(u))
}

// ScheduleLessons returns the lesson list for a class and day, or ErrNotFound.
func (s *Store) ScheduleLessons(ctx context.Context, className, day string) (string, error) {
	query, args, err := scheduleQuery(className, day).ToSql()
	if err != nil {
		return "", fmt.Errorf("build schedule query: %w", err)
	}
	var lessons string
	err = s.db.GetContext(ctx, &lessons, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get schedule %s/%s: %w", className, day, err)
	}
	return lessons, nil
}

// ListEvents returns every event ordered by date.
func (s *Store) ListEvents(ctx context.Context) ([]model.Event, error) {
	return s.selectEvents(ctx, "list events", eventsQuery())
}

// ListUpcomingEvents returns events dated from today through today+withinDays.
func (s *Store) ListUpcomingEvents(ctx context.Context, withinDays int) ([]model.Event, error) {
	if withinDays < 0 {
		withinDays = 0
	}
	return s.selectEvents(ctx, "list upcoming events", upcomingEventsQuery(withinDays))
}

// InsertScheduleRow stores one class/day lesson list.
func (s *Store) InsertScheduleRow(ctx context.Context, row model.ScheduleRow) error {
	return s.exec(ctx, "insert schedule", insertScheduleQuery(row))
}

// InsertEvent stores one event.
func (s *Store) InsertEvent(ctx context.Context, e model.Event) error {
	return s.exec(ctx, "insert event", insertEventQuery(e))
}

func (s *Store) selectEvents(ctx context.Context, op string, b sq.SelectBuilder) ([]model.Event, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build %s: %w", op, err)
	}
	start := time.Now()
	events := []model.Event{}
	if err := s.db.SelectContext(ctx, &events, query, args...); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	logger.Debug(ctx, "db", "db.query",
		slog.String("op", op),
		slog.Int("count", len(events)),
		slog.Duration("duration", logger.Took(start)),
	)
	return events, nil
}

func (s *Store) exec(ctx context.Context, op string, b sq.InsertBuilder) error {
	query, args, err := b.ToSql()
	if err != nil {
		return fmt.Errorf("build %s: %w", op, err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func userExistsQuery(userID int64) sq.SelectBuilder {
	return psql.Select("id").From("users").Where(sq.Eq{"user_id": userID}).Limit(1)
}

func insertUserQuery(u model.User) sq.InsertBuilder {
	return psql.Insert("users").
		Columns("user_id", "username", "first_name", "last_name").
		Values(u.UserID, u.Username, u.FirstName, u.LastName)
}

func scheduleQuery(className, day string) sq.SelectBuilder {
	return psql.Select("lessons").From("schedule").
		Where(sq.Eq{"class_name": className, "day": day}).
		OrderBy("id DESC").
		Limit(1)
}

func eventColumns() sq.SelectBuilder {
	return psql.Select("event_name", "event_date", "COALESCE(description, '') AS description").From("events")
}

func eventsQuery() sq.SelectBuilder {
	return eventColumns().OrderBy("event_date ASC")
}

func upcomingEventsQuery(withinDays int) sq.SelectBuilder {
	return eventColumns().
		Where("event_date BETWEEN CURRENT_DATE AND CURRENT_DATE + ?::int", withinDays).
		OrderBy("event_date ASC")
}

func insertScheduleQuery(row model.ScheduleRow) sq.InsertBuilder {
	return psql.Insert("schedule").
		Columns("class_name", "day", "lessons").
		Values(row.ClassName, row.Day, row.Lessons)
}

func insertEventQuery(e model.Event) sq.InsertBuilder {
	return psql.Insert("events").
		Columns("event_name", "event_date", "description").
		Values(e.Name, e.Date.Format("2006-01-02"), e.Description)
}
