package readiness

import (
	"errors"
	"fmt"
	"time"
)

var ErrInvalidWindow = errors.New("invalid window selector")

// Window is a half-open interval [Start, End) in UTC. AllTime windows keep
// zero bounds and match every record.
type Window struct {
	Start   time.Time
	End     time.Time
	AllTime bool
}

// ResolveWindow builds the query window from the caller's selector.
// Precedence: all-time flag, explicit date (YYYY-MM-DD), trailing day count,
// then the current UTC day. A malformed date is a caller error, never
// silently defaulted.
func ResolveWindow(date string, trailingDays int, allTime bool, now time.Time) (Window, error) {
	if allTime {
		return Window{AllTime: true}, nil
	}
	if date != "" {
		day, err := time.Parse("2006-01-02", date)
		if err != nil {
			return Window{}, fmt.Errorf("%w: expected YYYY-MM-DD, got %q", ErrInvalidWindow, date)
		}
		start := day.UTC()
		return Window{Start: start, End: start.AddDate(0, 0, 1)}, nil
	}
	if trailingDays < 0 {
		return Window{}, fmt.Errorf("%w: trailing days must be positive", ErrInvalidWindow)
	}
	if trailingDays > 0 {
		end := now.UTC().Truncate(24 * time.Hour).AddDate(0, 0, 1)
		return Window{Start: end.AddDate(0, 0, -trailingDays), End: end}, nil
	}
	start := now.UTC().Truncate(24 * time.Hour)
	return Window{Start: start, End: start.AddDate(0, 0, 1)}, nil
}

func (w Window) Contains(t time.Time) bool {
	if w.AllTime {
		return true
	}
	return !t.Before(w.Start) && t.Before(w.End)
}
