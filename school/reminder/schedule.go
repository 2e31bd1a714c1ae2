package reminder

import (
	"fmt"
	"time"
)

// Schedule yields the next fire time strictly after t.
type Schedule interface {
	Next(t time.Time) time.Time
}

// DailySchedule fires once a day at a wall-clock time in Loc.
type DailySchedule struct {
	Hour   int
	Minute int
	Loc    *time.Location
}

// ParseDaily reads "HH:MM". A nil loc means time.Local.
func ParseDaily(value string, loc *time.Location) (DailySchedule, error) {
	t, err := time.Parse("15:04", value)
	if err != nil {
		return DailySchedule{}, fmt.Errorf("invalid daily time %q: %w", value, err)
	}
	if loc == nil {
		loc = time.Local
	}
	return DailySchedule{Hour: t.Hour(), Minute: t.Minute(), Loc: loc}, nil
}

// Next returns the first HH:MM in Loc after t.
func (d DailySchedule) Next(t time.Time) time.Time {
	loc := d.Loc
	if loc == nil {
		loc = time.Local
	}
	local := t.In(loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), d.Hour, d.Minute, 0, 0, loc)
	if !next.After(local) {
		next = time.Date(local.Year(), local.Month(), local.Day()+1, d.Hour, d.Minute, 0, 0, loc)
	}
	return next
}

func (d DailySchedule) String() string {
	return fmt.Sprintf("daily %02d:%02d", d.Hour, d.Minute)
}
