package calendar

import (
	"fmt"
	"sort"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
)

// episodeLength is used for DTEND; the feed carries no runtime.
const episodeLength = 24 * time.Minute

// ExportICS renders the grid's indexed episodes as an iCalendar feed.
func ExportICS(s State, name string, now time.Time) string {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//airingcal//weekly schedule//EN")
	if name == "" {
		name = "Airing schedule " + s.Plan.Month.String()
	}
	cal.SetXWRCalName(name)
	cal.SetXWRTimezone(locOrLocal(s.Location).String())

	var keys []DateKey
	for key := range s.Index {
		if s.Plan.InGrid(key) {
			keys = append(keys, key)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	for _, key := range keys {
		for _, entry := range s.Index[key] {
			start := time.Unix(entry.AiringAt, 0).UTC()

			event := cal.AddEvent(fmt.Sprintf("schedule-%d@airingcal", entry.ScheduleID))
			event.SetDtStampTime(now.UTC())
			event.SetStartAt(start)
			event.SetEndAt(start.Add(episodeLength))
			event.SetSummary(fmt.Sprintf("%s – Episode %d", entry.Title, entry.Episode))

			var desc []string
			if entry.TotalEpisodes != nil {
				desc = append(desc, fmt.Sprintf("Episode %d of %d", entry.Episode, *entry.TotalEpisodes))
			}
			if countdown := FormatCountdown(entry.AiringAt, now); countdown != "" {
				desc = append(desc, "Airs in: "+countdown)
			}
			if entry.Score != nil {
				desc = append(desc, fmt.Sprintf("Score: %d/100", *entry.Score))
			}
			if len(desc) > 0 {
				event.SetDescription(strings.Join(desc, "\n"))
			}
			if entry.CoverImage != nil && *entry.CoverImage != "" {
				event.SetURL(*entry.CoverImage)
			}
		}
	}
	return cal.Serialize()
}
