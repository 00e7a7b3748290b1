package timeline

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var clockRegexp = regexp.MustCompile(`(?i)^\s*(\d{1,2}):(\d{2})\s*(AM|PM)\s*$`)

// ParseError reports a clock string that is not of the form "h:mm AM|PM".
type ParseError struct {
	Input  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("timeline: cannot parse time %q: %s", e.Input, e.Reason)
}

// ParseClock converts "9:50 AM" into fractional hours (9.8333...).
func ParseClock(s string) (float64, error) {
	m := clockRegexp.FindStringSubmatch(s)
	if m == nil {
		return 0, &ParseError{Input: s, Reason: "expected h:mm AM|PM"}
	}
	hours, _ := strconv.Atoi(m[1])
	minutes, _ := strconv.Atoi(m[2])
	if hours < 1 || hours > 12 {
		return 0, &ParseError{Input: s, Reason: "hour out of range"}
	}
	if minutes > 59 {
		return 0, &ParseError{Input: s, Reason: "minute out of range"}
	}

	period := strings.ToUpper(m[3])
	if period == "PM" && hours != 12 {
		hours += 12
	}
	if period == "AM" && hours == 12 {
		hours = 0
	}
	return float64(hours) + float64(minutes)/60, nil
}

// FormatClock renders fractional hours as "h:mm AM|PM", rounding to the
// nearest minute.
func FormatClock(hours float64) string {
	total := int(math.Round(hours * 60))
	total = ((total % (24 * 60)) + 24*60) % (24 * 60)
	h, m := total/60, total%60

	period := "AM"
	if h >= 12 {
		period = "PM"
	}
	display := h
	switch {
	case h == 0:
		display = 12
	case h > 12:
		display = h - 12
	}
	return fmt.Sprintf("%d:%02d %s", display, m, period)
}
