// Package model holds the records shared by the datastore, the dialog and the reminder job.
package model

import (
	"fmt"
	"strings"
	"time"
)

// User is a Telegram user who has pressed /start at least once.
type User struct {
	UserID    int64  `db:"user_id"`
	Username  string `db:"username"`
	FirstName string `db:"first_name"`
	LastName  string `db:"last_name"`
}

// ScheduleRow is the lesson list of one class on one day.
type ScheduleRow struct {
	ClassName string `db:"class_name"`
	Day       string `db:"day"`
	Lessons   string `db:"lessons"`
}

// Event is a dated school event. Date carries a calendar day; its clock part is ignored.
type Event struct {
	Name        string    `db:"event_name"`
	Date        time.Time `db:"event_date"`
	Description string    `db:"description"`
}

// DateLayout renders event dates for users.
const DateLayout = "02.01.2006"

// inputDateLayouts are the event date spellings accepted from operators.
var inputDateLayouts = []string{DateLayout, "2.1.2006", "2006-01-02", "2006-1-2"}

// ParseDate reads an operator-typed event date, dotted day-first or ISO.
// A time of day after the date is ignored; the result is midnight in loc.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 || len(fields) > 2 {
		return time.Time{}, fmt.Errorf("unrecognised date %q", s)
	}
	for _, layout := range inputDateLayouts {
		if t, err := time.ParseInLocation(layout, fields[0], loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}

// SameOrAfterDay reports whether d falls on the calendar day of ref or later.
func SameOrAfterDay(d, ref time.Time) bool {
	dy, dm, dd := d.Date()
	ry, rm, rd := ref.Date()
	if dy != ry {
		return dy > ry
	}
	if dm != rm {
		return dm > rm
	}
	return dd >= rd
}
