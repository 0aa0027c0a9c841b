package calendar

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// MinWeeksPerRound is the smallest number of weeks fetched for a month view.
const MinWeeksPerRound = 6

// ErrInvalidMonth is returned when a month string is not YYYY-MM.
var ErrInvalidMonth = errors.New("invalid month")

// Month is a displayed calendar month.
type Month struct {
	Year  int
	Month time.Month
}

// MonthOf returns the month containing t, judged in t's location.
func MonthOf(t time.Time) Month {
	return Month{Year: t.Year(), Month: t.Month()}
}

// ParseMonth parses a "YYYY-MM" string.
func ParseMonth(s string) (Month, error) {
	t, err := time.Parse("2006-01", strings.TrimSpace(s))
	if err != nil {
		return Month{}, fmt.Errorf("%w: %q", ErrInvalidMonth, s)
	}
	return MonthOf(t), nil
}

// String formats the month as YYYY-MM.
func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

// First returns local midnight of the first day of the month.
func (m Month) First(loc *time.Location) time.Time {
	return time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, locOrLocal(loc))
}

// Last returns local midnight of the last day of the month.
func (m Month) Last(loc *time.Location) time.Time {
	return time.Date(m.Year, m.Month+1, 0, 0, 0, 0, 0, locOrLocal(loc))
}

// Contains reports whether key falls inside the month.
func (m Month) Contains(key DateKey) bool {
	return strings.HasPrefix(string(key), m.String()+"-")
}

// Next returns the following month.
func (m Month) Next() Month {
	return MonthOf(time.Date(m.Year, m.Month+1, 1, 0, 0, 0, 0, time.UTC))
}

// Prev returns the preceding month.
func (m Month) Prev() Month {
	return MonthOf(time.Date(m.Year, m.Month-1, 1, 0, 0, 0, 0, time.UTC))
}

// Day is one cell of the month grid.
type Day struct {
	Date    time.Time
	Key     DateKey
	InMonth bool
	IsToday bool
}

// Plan is the grid for a displayed month together with the schedule weeks
// that must be fetched to fill it.
type Plan struct {
	Month   Month
	Grid    []Day
	Offsets []int
}

// PlanMonth lays out the Sunday-anchored grid for m in loc and computes the
// week offsets, relative to the week containing now, that cover it.
//
// Schedule weeks are Monday-anchored in UTC, so offsets are counted from the
// Monday of now's UTC week. A grid always starts on a Sunday, which belongs to
// the server week that began six days earlier; a six-row grid therefore
// touches seven server weeks and gets seven offsets.
func PlanMonth(m Month, now time.Time, loc *time.Location) Plan {
	loc = locOrLocal(loc)
	first := m.First(loc)
	last := m.Last(loc)

	gridStart := first.AddDate(0, 0, -int(first.Weekday()))
	gridEnd := last.AddDate(0, 0, int(time.Saturday-last.Weekday()))

	today := ToDateKey(now.In(loc))
	var grid []Day
	for day := gridStart; !day.After(gridEnd); day = day.AddDate(0, 0, 1) {
		key := ToDateKey(day)
		grid = append(grid, Day{
			Date:    day,
			Key:     key,
			InMonth: day.Month() == m.Month,
			IsToday: key == today,
		})
	}

	currentWeekMonday := mondayOf(now.UTC())
	base := weekOffset(currentWeekMonday, mondayOf(gridStart))
	lastWeek := weekOffset(currentWeekMonday, mondayOf(gridEnd))

	count := lastWeek - base + 1
	if count < MinWeeksPerRound {
		count = MinWeeksPerRound
	}
	offsets := make([]int, count)
	for i := range offsets {
		offsets[i] = base + i
	}

	return Plan{Month: m, Grid: grid, Offsets: offsets}
}

// WeekOffsetOf returns the server week offset, relative to now's week, of the
// week containing the instant t.
func WeekOffsetOf(t, now time.Time) int {
	return weekOffset(mondayOf(now.UTC()), mondayOf(t.UTC()))
}

// Keys returns the grid's date keys in order.
func (p Plan) Keys() []DateKey {
	keys := make([]DateKey, len(p.Grid))
	for i, d := range p.Grid {
		keys[i] = d.Key
	}
	return keys
}

// InGrid reports whether key is one of the grid's days.
func (p Plan) InGrid(key DateKey) bool {
	if len(p.Grid) == 0 {
		return false
	}
	return key >= p.Grid[0].Key && key <= p.Grid[len(p.Grid)-1].Key
}

// HasOffset reports whether offset is part of the plan's fetch set.
func (p Plan) HasOffset(offset int) bool {
	for _, o := range p.Offsets {
		if o == offset {
			return true
		}
	}
	return false
}

// mondayOf steps back to the Monday of t's week as a civil date: six days on
// Sunday, weekday-1 otherwise.
func mondayOf(t time.Time) time.Time {
	day := civilDay(t)
	wd := day.Weekday()
	if wd == time.Sunday {
		return day.AddDate(0, 0, -6)
	}
	return day.AddDate(0, 0, -int(wd-time.Monday))
}

func weekOffset(from, to time.Time) int {
	return int(math.Round(float64(daysBetween(from, to)) / 7))
}
