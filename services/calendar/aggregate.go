package calendar

import (
	"sort"
	"time"

	"airingcal/models"
)

// WeekResult is the settled outcome of fetching one schedule week. Exactly
// one of Payload and Err is meaningful; a nil Payload with a nil Err is
// treated as a malformed response.
type WeekResult struct {
	Offset  int
	Payload *models.WeeklySchedule
	Err     error
}

// Failed reports whether the week contributes nothing to an aggregation.
func (r WeekResult) Failed() bool {
	return r.Err != nil || r.Payload == nil || r.Payload.Schedule == nil
}

// DayIndex maps a viewer-local day to the episodes airing on it, ordered by
// air time.
type DayIndex map[DateKey][]models.ScheduleEntry

// Entries returns the list for key, never nil.
func (idx DayIndex) Entries(key DateKey) []models.ScheduleEntry {
	if entries, ok := idx[key]; ok && entries != nil {
		return entries
	}
	return []models.ScheduleEntry{}
}

// Len returns the total number of entries across all days.
func (idx DayIndex) Len() int {
	n := 0
	for _, entries := range idx {
		n += len(entries)
	}
	return n
}

// AggregateStats summarises one aggregation pass.
type AggregateStats struct {
	Weeks      int
	Failed     int
	Entries    int
	Duplicates int
}

// weekdayOrder is the order server buckets are visited in, matching the
// Monday-anchored week the server returns.
var weekdayOrder = []string{"MONDAY", "TUESDAY", "WEDNESDAY", "THURSDAY", "FRIDAY", "SATURDAY", "SUNDAY"}

// Aggregate merges settled week results into a new DayIndex.
func Aggregate(results []WeekResult, loc *time.Location) DayIndex {
	idx, _ := AggregateWithStats(results, loc)
	return idx
}

// AggregateWithStats merges settled week results into a new DayIndex keyed by
// the viewer's local day. The server's weekday buckets only decide visiting
// order; every entry is re-keyed from its own airing instant. Failed weeks
// are skipped. When a schedule id repeats, the last occurrence wins.
func AggregateWithStats(results []WeekResult, loc *time.Location) (DayIndex, AggregateStats) {
	loc = locOrLocal(loc)
	stats := AggregateStats{Weeks: len(results)}

	byID := make(map[int64]models.ScheduleEntry)
	for _, res := range results {
		if res.Failed() {
			stats.Failed++
			continue
		}
		for _, bucket := range orderedBuckets(res.Payload.Schedule) {
			for _, entry := range res.Payload.Schedule[bucket] {
				if _, seen := byID[entry.ScheduleID]; seen {
					stats.Duplicates++
				}
				byID[entry.ScheduleID] = entry
			}
		}
	}

	idx := make(DayIndex)
	for _, entry := range byID {
		key := EpochToLocalDateKey(entry.AiringAt, loc)
		idx[key] = append(idx[key], entry)
	}
	for key := range idx {
		sortEntries(idx[key])
	}
	stats.Entries = len(byID)
	return idx, stats
}

// orderedBuckets returns the payload's bucket names, known weekdays first in
// week order, then anything unexpected sorted by name.
func orderedBuckets(schedule map[string][]models.ScheduleEntry) []string {
	buckets := make([]string, 0, len(schedule))
	known := make(map[string]bool, len(weekdayOrder))
	for _, day := range weekdayOrder {
		known[day] = true
		if _, ok := schedule[day]; ok {
			buckets = append(buckets, day)
		}
	}
	var extra []string
	for name := range schedule {
		if !known[name] {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)
	return append(buckets, extra...)
}

func sortEntries(entries []models.ScheduleEntry) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].AiringAt != entries[j].AiringAt {
			return entries[i].AiringAt < entries[j].AiringAt
		}
		return entries[i].ScheduleID < entries[j].ScheduleID
	})
}
