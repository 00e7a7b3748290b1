// Package timeline maps a reader's scroll position onto continuous trip time.
package timeline

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"sort"

	"itinerary-scraper/config"
	"itinerary-scraper/models"
)

// ErrNonMonotonic is returned when an event sits above an earlier event on
// the page.
var ErrNonMonotonic = errors.New("timeline: event offsets are not monotonic in trip time")

const (
	markerMin = 5.0
	markerMax = 95.0
)

// Engine computes TimelineState from a fixed, ordered event list.
// It holds no mutable state and is safe for concurrent use.
type Engine struct {
	events      []models.TimelineEvent
	totalDays   int
	activeStart float64
	activeSpan  float64
	startTime   float64
}

// NewEvent builds an event from a clock string such as "7:00 PM".
func NewEvent(day models.Day, clock string, offset int) (models.TimelineEvent, error) {
	t, err := ParseClock(clock)
	if err != nil {
		return models.TimelineEvent{}, err
	}
	if offset < 0 {
		return models.TimelineEvent{}, fmt.Errorf("timeline: negative offset %d", offset)
	}
	return models.TimelineEvent{Day: day, TimeOfDay: t, Offset: offset}, nil
}

// New sorts events by (day, time) and validates them against cfg.
func New(cfg config.TimelineConfig, events []models.TimelineEvent) (*Engine, error) {
	start, err := ParseClock(cfg.StartTime)
	if err != nil {
		return nil, err
	}
	if cfg.ActiveEndHour <= cfg.ActiveStartHour {
		return nil, fmt.Errorf("timeline: empty active window %v-%v", cfg.ActiveStartHour, cfg.ActiveEndHour)
	}
	totalDays := len(cfg.Days)
	if totalDays == 0 {
		return nil, errors.New("timeline: no days configured")
	}

	sorted := slices.Clone(events)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Day != sorted[j].Day {
			return sorted[i].Day < sorted[j].Day
		}
		return sorted[i].TimeOfDay < sorted[j].TimeOfDay
	})

	for i, e := range sorted {
		if int(e.Day) < 0 || int(e.Day) >= totalDays {
			return nil, fmt.Errorf("timeline: event %d has day %d outside 0..%d", i, e.Day, totalDays-1)
		}
		if e.Offset < 0 {
			return nil, fmt.Errorf("timeline: event %d has negative offset %d", i, e.Offset)
		}
		if i > 0 && e.Offset < sorted[i-1].Offset {
			return nil, fmt.Errorf("%w: event at offset %d follows offset %d", ErrNonMonotonic, e.Offset, sorted[i-1].Offset)
		}
	}

	return &Engine{
		events:      sorted,
		totalDays:   totalDays,
		activeStart: cfg.ActiveStartHour,
		activeSpan:  cfg.ActiveEndHour - cfg.ActiveStartHour,
		startTime:   start,
	}, nil
}

// Events returns a copy of the ordered event list.
func (e *Engine) Events() []models.TimelineEvent {
	return slices.Clone(e.events)
}

// ComputeState returns the timeline state for the given viewport-center
// document offset. It never fails; out-of-range offsets clamp.
func (e *Engine) ComputeState(viewportCenterOffset int) models.TimelineState {
	// first event strictly below the viewport center
	idx := sort.Search(len(e.events), func(i int) bool {
		return e.events[i].Offset > viewportCenterOffset
	})
	if idx == 0 {
		return models.TimelineState{
			ProgressPercent: 0,
			DisplayTime:     FormatClock(e.startTime),
			TripTime:        e.startTime,
			DayIndex:        0,
			MarkerPercent:   markerMin,
			CompletedDays:   make([]bool, e.totalDays),
		}
	}

	current := e.events[idx-1]
	tripTime := current.TimeOfDay
	if idx < len(e.events) {
		next := e.events[idx]
		if next.Day == current.Day && next.Offset > current.Offset {
			frac := float64(viewportCenterOffset-current.Offset) / float64(next.Offset-current.Offset)
			frac = clamp(frac, 0, 1)
			tripTime = current.TimeOfDay + frac*(next.TimeOfDay-current.TimeOfDay)
		}
	}

	dayIndex := int(current.Day)
	progress := clamp((float64(dayIndex)+e.dayFraction(tripTime))/float64(e.totalDays)*100, 0, 100)

	completed := make([]bool, e.totalDays)
	currentDayFraction := e.dayFraction(current.TimeOfDay)
	for i := range completed {
		completed[i] = i < dayIndex || (i == dayIndex && currentDayFraction > 0.5)
	}

	return models.TimelineState{
		ProgressPercent: progress,
		DisplayTime:     FormatClock(tripTime),
		TripTime:        tripTime,
		DayIndex:        dayIndex,
		MarkerPercent:   clamp(progress, markerMin, markerMax),
		CompletedDays:   completed,
		Started:         true,
	}
}

func (e *Engine) dayFraction(t float64) float64 {
	return clamp((t-e.activeStart)/e.activeSpan, 0, 1)
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}
