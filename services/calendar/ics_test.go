package calendar

import (
	"strings"
	"testing"
	"time"

	"airingcal/models"

	ics "github.com/arran4/golang-ical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExportICS(t *testing.T) {
	frieren := entry(42, at("2025-03-12T15:00:00Z"), "Frieren")
	frieren.Episode = 5
	frieren.TotalEpisodes = models.IntPtr(28)
	frieren.Score = models.IntPtr(91)

	s, r := Navigate(NewState(time.UTC), Month{2025, time.March}, testNow)
	s, ok := Commit(s, r, []WeekResult{
		week(0, map[string][]models.ScheduleEntry{
			"WEDNESDAY": {frieren},
			"FRIDAY":    {entry(7, at("2025-03-14T15:00:00Z"), "Dandadan")},
		}),
		week(4, map[string][]models.ScheduleEntry{
			"MONDAY": {entry(99, at("2025-04-07T12:00:00Z"), "outside")},
		}),
	}, testNow)
	require.True(t, ok)

	out := ExportICS(s, "", testNow)

	assert.True(t, strings.HasPrefix(out, "BEGIN:VCALENDAR"))
	assert.Contains(t, out, "X-WR-CALNAME:Airing schedule 2025-03")
	assert.Contains(t, out, "UID:schedule-42@airingcal")
	assert.Contains(t, out, "DTSTART:20250312T150000Z")
	assert.Contains(t, out, "DTEND:20250312T152400Z")
	assert.Contains(t, out, "SUMMARY:Frieren – Episode 5")
	assert.NotContains(t, out, "schedule-99@airingcal")

	cal, err := ics.ParseCalendar(strings.NewReader(out))
	require.NoError(t, err)
	events := cal.Events()
	require.Len(t, events, 2)
	assert.Equal(t, "schedule-42@airingcal", events[0].GetProperty(ics.ComponentPropertyUniqueId).Value)
	assert.Equal(t, "schedule-7@airingcal", events[1].GetProperty(ics.ComponentPropertyUniqueId).Value)
}

func TestExportICSCustomName(t *testing.T) {
	s, _ := Navigate(NewState(time.UTC), Month{2025, time.March}, testNow)
	out := ExportICS(s, "My shows", testNow)
	assert.Contains(t, out, "X-WR-CALNAME:My shows")
	assert.NotContains(t, out, "BEGIN:VEVENT")
}
