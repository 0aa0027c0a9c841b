package calendar

import (
	"errors"
	"fmt"
	"time"

	"airingcal/models"
)

// ErrDateOutsideGrid is returned when selecting a day the current grid does not show.
var ErrDateOutsideGrid = errors.New("date is not part of the displayed grid")

// State is the view state of one calendar viewer. Values are treated as
// immutable: every transition returns a new State.
type State struct {
	Location    *time.Location
	Plan        Plan
	Index       DayIndex
	Selected    Selection
	Loading     bool
	Progress    int
	Generation  uint64
	Stats       AggregateStats
	CommittedAt time.Time
}

// Round identifies one fetch-and-aggregate attempt for a state's plan.
type Round struct {
	Generation uint64
	Month      Month
	Offsets    []int
}

// Month returns the displayed month.
func (s State) Month() Month { return s.Plan.Month }

// NewState returns an idle state for loc with nothing displayed yet.
func NewState(loc *time.Location) State {
	return State{Location: locOrLocal(loc), Index: DayIndex{}}
}

// Navigate displays month m and starts a new round. The previous index and
// selection are dropped: they belong to another grid.
func Navigate(s State, m Month, now time.Time) (State, Round) {
	next := s
	next.Plan = PlanMonth(m, now, s.Location)
	next.Index = DayIndex{}
	next.Selected = Selection{Entries: []models.ScheduleEntry{}}
	next.Stats = AggregateStats{}
	return begin(next)
}

// Refresh starts a new round for the displayed month, keeping the selection
// so it survives the reload when the day still has entries. The plan is
// recomputed because the current week may have rolled over since it was made.
func Refresh(s State, now time.Time) (State, Round) {
	next := s
	next.Plan = PlanMonth(s.Plan.Month, now, s.Location)
	return begin(next)
}

func begin(s State) (State, Round) {
	s.Generation++
	s.Loading = true
	s.Progress = 0
	offsets := make([]int, len(s.Plan.Offsets))
	copy(offsets, s.Plan.Offsets)
	return s, Round{Generation: s.Generation, Month: s.Plan.Month, Offsets: offsets}
}

// IsCurrent reports whether r is the latest round started for s.
func (s State) IsCurrent(r Round) bool {
	return r.Generation == s.Generation
}

// WithProgress records that settled of the round's fetches have finished.
// Progress never moves backwards and stale rounds are ignored.
func WithProgress(s State, r Round, settled int) State {
	if !s.IsCurrent(r) || !s.Loading || len(r.Offsets) == 0 {
		return s
	}
	pct := settled * 100 / len(r.Offsets)
	if pct > 100 {
		pct = 100
	}
	if pct > s.Progress {
		s.Progress = pct
	}
	return s
}

// Commit applies a settled round. It reports false, leaving s untouched, when
// r is not the latest round; late results for an abandoned month are dropped.
func Commit(s State, r Round, results []WeekResult, now time.Time) (State, bool) {
	if !s.IsCurrent(r) {
		return s, false
	}
	idx, stats := AggregateWithStats(results, s.Location)

	next := s
	next.Index = idx
	next.Stats = stats
	next.Selected = SelectDefault(idx, s.Plan.Month, s.Selected.Key, ToDateKey(now.In(s.Location)))
	next.Loading = false
	next.Progress = 100
	next.CommittedAt = now
	return next, true
}

// Select makes key the active day. The day must be shown by the current grid.
func Select(s State, key DateKey) (State, error) {
	if !key.Valid() {
		return s, fmt.Errorf("%w: %q", ErrInvalidDateKey, key)
	}
	if !s.Plan.InGrid(key) {
		return s, fmt.Errorf("%w: %s", ErrDateOutsideGrid, key)
	}
	next := s
	next.Selected = Selection{Key: key, Entries: s.Index.Entries(key)}
	return next, nil
}
