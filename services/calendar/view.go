package calendar

import (
	"time"

	"airingcal/models"
)

// BuildView renders a state into the JSON shape served to clients. Only grid
// days are included in Days; the index may also hold entries that fall in the
// fetched weeks but outside the grid.
func BuildView(sessionID string, s State) models.CalendarView {
	view := models.CalendarView{
		SessionID:       sessionID,
		Timezone:        locOrLocal(s.Location).String(),
		Grid:            make([]models.CalendarGridDay, 0, len(s.Plan.Grid)),
		Days:            make(map[string][]models.ScheduleEntry),
		Loading:         s.Loading,
		LoadingProgress: s.Progress,
		Generation:      s.Generation,
		Selected: models.CalendarSelection{
			Date:    string(s.Selected.Key),
			Entries: s.Selected.Entries,
		},
	}
	if view.Selected.Entries == nil {
		view.Selected.Entries = []models.ScheduleEntry{}
	}
	if len(s.Plan.Grid) > 0 {
		view.Month = s.Plan.Month.String()
		view.WeekOffsets = append([]int(nil), s.Plan.Offsets...)
	}
	if !s.CommittedAt.IsZero() {
		view.RefreshedAt = s.CommittedAt.UTC().Format(time.RFC3339)
	}

	for _, day := range s.Plan.Grid {
		entries := s.Index[day.Key]
		view.Grid = append(view.Grid, models.CalendarGridDay{
			Date:    string(day.Key),
			InMonth: day.InMonth,
			IsToday: day.IsToday,
			Count:   len(entries),
		})
		if len(entries) > 0 {
			view.Days[string(day.Key)] = entries
		}
	}
	return view
}
