package calendar

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const dateKeyLayout = "2006-01-02"

// ErrInvalidDateKey is returned when a string is not a YYYY-MM-DD calendar date.
var ErrInvalidDateKey = errors.New("invalid date key")

// DateKey identifies a calendar day in the viewer's timezone, formatted YYYY-MM-DD.
type DateKey string

// String implements fmt.Stringer.
func (k DateKey) String() string { return string(k) }

// Valid reports whether k is a well-formed, existing calendar date.
func (k DateKey) Valid() bool {
	_, err := time.Parse(dateKeyLayout, string(k))
	return err == nil
}

// ToDateKey formats t's own wall-clock date. t must already be in the
// viewer's location; the value is never converted to UTC first, since doing
// so moves late-evening instants in negative-offset zones onto the next day.
func ToDateKey(t time.Time) DateKey {
	y, m, d := t.Date()
	return DateKey(fmt.Sprintf("%04d-%02d-%02d", y, int(m), d))
}

// EpochToLocalDateKey returns the viewer-local day of a unix instant.
func EpochToLocalDateKey(epochSeconds int64, loc *time.Location) DateKey {
	return ToDateKey(time.Unix(epochSeconds, 0).In(locOrLocal(loc)))
}

// FormatLocalTime renders the hour and minute of a unix instant in loc,
// e.g. "9:30 PM".
func FormatLocalTime(epochSeconds int64, loc *time.Location) string {
	return time.Unix(epochSeconds, 0).In(locOrLocal(loc)).Format("3:04 PM")
}

// IsSameLocalDay reports whether date falls on the same calendar day as
// reference, judged in date's location.
func IsSameLocalDay(date, reference time.Time) bool {
	ref := reference.In(date.Location())
	y1, m1, d1 := date.Date()
	y2, m2, d2 := ref.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

// ParseDateKey parses a YYYY-MM-DD string into local midnight of that day.
func ParseDateKey(s string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(dateKeyLayout, strings.TrimSpace(s), locOrLocal(loc))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDateKey, s)
	}
	return t, nil
}

// FormatCountdown renders the time until epochSeconds as "2d 3h 15m".
// Zero means unknown and yields "". Instants in the past yield "Aired recently".
func FormatCountdown(epochSeconds int64, now time.Time) string {
	if epochSeconds == 0 {
		return ""
	}
	diff := epochSeconds - now.Unix()
	if diff < 0 {
		return "Aired recently"
	}

	days := diff / 86400
	hours := (diff % 86400) / 3600
	minutes := (diff % 3600) / 60

	var parts []string
	if days > 0 {
		parts = append(parts, fmt.Sprintf("%dd", days))
	}
	if hours > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}
	if minutes > 0 {
		parts = append(parts, fmt.Sprintf("%dm", minutes))
	}
	return strings.Join(parts, " ")
}

// civilDay returns the date of t as midnight UTC so day arithmetic is not
// disturbed by DST transitions in t's own location.
func civilDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// daysBetween counts calendar days from a to b (negative when b is earlier).
func daysBetween(a, b time.Time) int {
	return int(civilDay(b).Sub(civilDay(a)).Hours() / 24)
}

func locOrLocal(loc *time.Location) *time.Location {
	if loc == nil {
		return time.Local
	}
	return loc
}
