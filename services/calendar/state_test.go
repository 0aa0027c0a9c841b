package calendar

import (
	"testing"
	"time"

	"airingcal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)

func marchResults() []WeekResult {
	return []WeekResult{
		week(0, map[string][]models.ScheduleEntry{
			"WEDNESDAY": {entry(1, at("2025-03-12T15:00:00Z"), "a")},
			"FRIDAY":    {entry(2, at("2025-03-14T15:00:00Z"), "b")},
		}),
	}
}

func TestNavigateStartsRound(t *testing.T) {
	s := NewState(time.UTC)
	s, r := Navigate(s, Month{2025, time.March}, testNow)

	assert.True(t, s.Loading)
	assert.Equal(t, 0, s.Progress)
	assert.Equal(t, uint64(1), s.Generation)
	assert.Equal(t, r.Generation, s.Generation)
	assert.Equal(t, s.Plan.Offsets, r.Offsets)
	assert.Len(t, s.Plan.Grid, 42)
	assert.NotNil(t, s.Selected.Entries)

	s, r2 := Navigate(s, Month{2025, time.April}, testNow)
	assert.Equal(t, uint64(2), r2.Generation)
	assert.False(t, s.IsCurrent(r))
	assert.True(t, s.IsCurrent(r2))
}

func TestNavigateDropsPreviousMonth(t *testing.T) {
	s, r := Navigate(NewState(time.UTC), Month{2025, time.March}, testNow)
	s, ok := Commit(s, r, marchResults(), testNow)
	require.True(t, ok)
	require.Equal(t, 2, s.Index.Len())

	s, _ = Navigate(s, Month{2025, time.April}, testNow)
	assert.Equal(t, 0, s.Index.Len())
	assert.Empty(t, s.Selected.Key)
}

func TestCommitDiscardsStaleRound(t *testing.T) {
	s, march := Navigate(NewState(time.UTC), Month{2025, time.March}, testNow)
	s, april := Navigate(s, Month{2025, time.April}, testNow)

	before := s
	got, ok := Commit(s, march, marchResults(), testNow)
	assert.False(t, ok)
	assert.Equal(t, before, got)
	assert.True(t, got.Loading)

	got, ok = Commit(s, april, nil, testNow)
	assert.True(t, ok)
	assert.False(t, got.Loading)
	assert.Equal(t, Month{2025, time.April}, got.Month())
	assert.Equal(t, DateKey("2025-04-01"), got.Selected.Key)
}

func TestCommitSelectsToday(t *testing.T) {
	s, r := Navigate(NewState(time.UTC), Month{2025, time.March}, testNow)
	s, ok := Commit(s, r, marchResults(), testNow)
	require.True(t, ok)

	assert.Equal(t, 100, s.Progress)
	assert.Equal(t, testNow, s.CommittedAt)
	assert.Equal(t, DateKey("2025-03-10"), s.Selected.Key)
	assert.Empty(t, s.Selected.Entries)
	assert.Equal(t, AggregateStats{Weeks: 1, Entries: 2}, s.Stats)
}

func TestProgressIsMonotonic(t *testing.T) {
	s, r := Navigate(NewState(time.UTC), Month{2025, time.March}, testNow)
	require.Len(t, r.Offsets, 7)

	s = WithProgress(s, r, 3)
	assert.Equal(t, 42, s.Progress)
	s = WithProgress(s, r, 2)
	assert.Equal(t, 42, s.Progress)
	s = WithProgress(s, r, 7)
	assert.Equal(t, 100, s.Progress)

	s, next := Refresh(s, testNow)
	assert.Equal(t, 0, s.Progress)
	s = WithProgress(s, r, 7)
	assert.Equal(t, 0, s.Progress, "stale round must not move progress")
	s = WithProgress(s, next, 1)
	assert.Equal(t, 14, s.Progress)
}

func TestRefreshKeepsSelection(t *testing.T) {
	s, r := Navigate(NewState(time.UTC), Month{2025, time.March}, testNow)
	s, _ = Commit(s, r, marchResults(), testNow)
	s, err := Select(s, "2025-03-14")
	require.NoError(t, err)
	require.Len(t, s.Selected.Entries, 1)

	s, r = Refresh(s, testNow)
	assert.Equal(t, DateKey("2025-03-14"), s.Selected.Key)
	assert.Equal(t, 2, s.Index.Len(), "index stays visible while reloading")

	s, ok := Commit(s, r, marchResults(), testNow)
	require.True(t, ok)
	assert.Equal(t, DateKey("2025-03-14"), s.Selected.Key)
	assert.Len(t, s.Selected.Entries, 1)
}

func TestSelect(t *testing.T) {
	s, r := Navigate(NewState(time.UTC), Month{2025, time.March}, testNow)
	s, _ = Commit(s, r, marchResults(), testNow)

	got, err := Select(s, "2025-03-12")
	require.NoError(t, err)
	assert.Len(t, got.Selected.Entries, 1)

	got, err = Select(s, "2025-04-05")
	require.NoError(t, err, "trailing days of the grid are selectable")
	assert.NotNil(t, got.Selected.Entries)
	assert.Empty(t, got.Selected.Entries)

	_, err = Select(s, "2025-04-06")
	assert.ErrorIs(t, err, ErrDateOutsideGrid)

	_, err = Select(s, "2025-3-1")
	assert.ErrorIs(t, err, ErrInvalidDateKey)

	_, err = Select(NewState(time.UTC), "2025-03-10")
	assert.ErrorIs(t, err, ErrDateOutsideGrid)
}
