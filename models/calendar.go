package models

// Airing status hints computed by the schedule API. They are passed through
// untouched; the calendar never derives them itself.
const (
	AiringStatusAired       = "aired"
	AiringStatusAiringSoon  = "airing_soon"
	AiringStatusAiringToday = "airing_today"
	AiringStatusUpcoming    = "upcoming"
)

// ScheduleEntry is one episode airing as returned by the weekly schedule feed.
type ScheduleEntry struct {
	ScheduleID    int64   `json:"schedule_id"`
	AiringAt      int64   `json:"airing_at"` // unix seconds, UTC
	Episode       int     `json:"episode"`
	AnimeID       int64   `json:"anime_id"`
	Title         string  `json:"title"`
	CoverImage    *string `json:"cover_image"`
	TotalEpisodes *int    `json:"total_episodes"` // nil when unknown
	Score         *int    `json:"score"`          // 0-100
	AirsInHuman   string  `json:"airs_in_human,omitempty"`
	AiringStatus  string  `json:"airing_status,omitempty"`
	AiringTime    string  `json:"airing_time,omitempty"` // server-formatted, server timezone
	AiringDate    string  `json:"airing_date,omitempty"` // server-formatted, server timezone
}

// WeeklySchedule is the body of GET /anime/schedule/weekly. Schedule is keyed
// by uppercase English weekday name ("MONDAY" .. "SUNDAY").
type WeeklySchedule struct {
	Schedule    map[string][]ScheduleEntry `json:"schedule"`
	WeekStart   string                     `json:"week_start,omitempty"`
	WeekEnd     string                     `json:"week_end,omitempty"`
	WeeksOffset int                        `json:"weeks_offset,omitempty"`
	Timezone    string                     `json:"timezone,omitempty"`
}

// CalendarGridDay is one cell of the month grid as exposed to clients.
type CalendarGridDay struct {
	Date    string `json:"date"` // YYYY-MM-DD, viewer-local
	InMonth bool   `json:"inMonth"`
	IsToday bool   `json:"isToday"`
	Count   int    `json:"count"`
}

// CalendarSelection is the active day and its entries.
type CalendarSelection struct {
	Date    string          `json:"date"`
	Entries []ScheduleEntry `json:"entries"`
}

// CalendarView is the API response for a calendar session.
type CalendarView struct {
	SessionID       string                     `json:"sessionId"`
	Month           string                     `json:"month"` // YYYY-MM
	Timezone        string                     `json:"timezone"`
	WeekOffsets     []int                      `json:"weekOffsets"`
	Grid            []CalendarGridDay          `json:"grid"`
	Days            map[string][]ScheduleEntry `json:"days"`
	Selected        CalendarSelection          `json:"selected"`
	Loading         bool                       `json:"loading"`
	LoadingProgress int                        `json:"loadingProgress"`
	Generation      uint64                     `json:"generation"`
	RefreshedAt     string                     `json:"refreshedAt,omitempty"`
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string { return &s }

// IntPtr returns a pointer to v.
func IntPtr(v int) *int { return &v }
