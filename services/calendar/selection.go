package calendar

import (
	"time"

	"airingcal/models"
)

// Selection is the active day of a month view.
type Selection struct {
	Key     DateKey
	Entries []models.ScheduleEntry
}

// SelectDefault picks the active day after a load or navigation. First match wins:
//  1. previous, when it is still a key of idx
//  2. today, when it lies in the displayed month (even with no entries)
//  3. the earliest day of the month with at least one entry
//  4. the first day of the month, with no entries
func SelectDefault(idx DayIndex, month Month, previous, today DateKey) Selection {
	if previous != "" {
		if _, ok := idx[previous]; ok {
			return Selection{Key: previous, Entries: idx.Entries(previous)}
		}
	}

	if month.Contains(today) {
		return Selection{Key: today, Entries: idx.Entries(today)}
	}

	first := month.First(time.UTC)
	last := month.Last(time.UTC)
	for day := first; !day.After(last); day = day.AddDate(0, 0, 1) {
		key := ToDateKey(day)
		if len(idx[key]) > 0 {
			return Selection{Key: key, Entries: idx[key]}
		}
	}

	return Selection{Key: ToDateKey(first), Entries: []models.ScheduleEntry{}}
}
