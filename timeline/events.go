package timeline

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"itinerary-scraper/models"
)

// eventSpec is the on-disk form of one itinerary entry.
type eventSpec struct {
	Day    string `yaml:"day"`
	Time   string `yaml:"time"`
	Offset int    `yaml:"offset"`
}

// LoadEvents reads an event file of the form
//
//	events:
//	  - {day: Saturday, time: "9:50 AM", offset: 0}
//
// Day may be one of days (case-insensitive) or a 1-based day number.
func LoadEvents(path string, days []string) ([]models.TimelineEvent, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("timeline: read events %q: %w", path, err)
	}
	var doc struct {
		Events []eventSpec `yaml:"events"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("timeline: parse events %q: %w", path, err)
	}

	events := make([]models.TimelineEvent, 0, len(doc.Events))
	for i, s := range doc.Events {
		day, err := parseDay(s.Day, days)
		if err != nil {
			return nil, fmt.Errorf("timeline: event %d: %w", i, err)
		}
		ev, err := NewEvent(day, s.Time, s.Offset)
		if err != nil {
			return nil, fmt.Errorf("timeline: event %d: %w", i, err)
		}
		events = append(events, ev)
	}
	return events, nil
}

func parseDay(s string, days []string) (models.Day, error) {
	s = strings.TrimSpace(s)
	for i, d := range days {
		if strings.EqualFold(strings.TrimSpace(d), s) {
			return models.Day(i), nil
		}
	}
	var n int
	if _, err := fmt.Sscanf(s, "%d", &n); err == nil && n >= 1 && n <= len(days) {
		return models.Day(n - 1), nil
	}
	return 0, fmt.Errorf("unknown day %q", s)
}
