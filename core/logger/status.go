package logger

import (
	"context"
	"errors"
	"time"
)

// Status maps an outcome to the status value used in summary lines.
// Cancellation is reported apart from failure so shutdowns stay quiet.
func Status(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, context.Canceled):
		return "cancelled"
	default:
		return "fail"
	}
}

// Took is the elapsed time since start at millisecond precision.
func Took(start time.Time) time.Duration {
	return RoundMS(time.Since(start))
}

func RoundMS(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return d.Round(time.Millisecond)
}
