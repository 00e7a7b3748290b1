package models

// Day is the zero-based index of a trip day.
type Day int

const (
	Day1 Day = iota
	Day2
	Day3
)

// TimelineEvent is one activity entry placed on the page.
// TimeOfDay is in fractional 24h hours; Offset is the entry's vertical
// document offset in pixels.
type TimelineEvent struct {
	Day       Day     `yaml:"day" json:"day"`
	TimeOfDay float64 `yaml:"time_of_day" json:"time_of_day"`
	Offset    int     `yaml:"offset" json:"offset"`
}

// TimelineState is what the renderer writes back into the page after a
// scroll update.
type TimelineState struct {
	ProgressPercent float64 `json:"progress_percent"`
	DisplayTime     string  `json:"display_time"`
	TripTime        float64 `json:"trip_time"`
	DayIndex        int     `json:"day_index"`
	MarkerPercent   float64 `json:"marker_percent"`
	CompletedDays   []bool  `json:"completed_days"`
	Started         bool    `json:"started"`
}
