package config

import (
	"fmt"
	"strings"
	"time"
)

// Weekdays is a set of days of the week.
type Weekdays [7]bool

var weekdayNames = map[string]time.Weekday{
	"sun": time.Sunday, "mon": time.Monday, "tue": time.Tuesday, "wed": time.Wednesday,
	"thu": time.Thursday, "fri": time.Friday, "sat": time.Saturday,
}

// ParseWeekdays parses a comma-separated list of day names or ranges,
// e.g. "mon-fri" or "mon,wed,fri-sat". Ranges wrap past Saturday.
func ParseWeekdays(raw string) (Weekdays, error) {
	var days Weekdays
	for _, part := range strings.Split(strings.ToLower(raw), ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		from, to, isRange := strings.Cut(part, "-")
		start, ok := weekdayNames[strings.TrimSpace(from)]
		if !ok {
			return days, fmt.Errorf("unknown weekday %q", from)
		}
		end := start
		if isRange {
			if end, ok = weekdayNames[strings.TrimSpace(to)]; !ok {
				return days, fmt.Errorf("unknown weekday %q", to)
			}
		}
		for d := start; ; d = (d + 1) % 7 {
			days[d] = true
			if d == end {
				break
			}
		}
	}
	if days == (Weekdays{}) {
		return days, fmt.Errorf("no weekdays in %q", raw)
	}
	return days, nil
}

// Contains reports whether d is in the set.
func (w Weekdays) Contains(d time.Weekday) bool {
	return w[d]
}

// Window is a daily clock interval [Start, End) in minutes after midnight.
type Window struct {
	Start int
	End   int
}

// ParseWindow parses "HH:MM-HH:MM". The end is exclusive and must follow the start.
func ParseWindow(raw string) (Window, error) {
	from, to, ok := strings.Cut(raw, "-")
	if !ok {
		return Window{}, fmt.Errorf("window %q must look like HH:MM-HH:MM", raw)
	}
	start, err := parseClock(from)
	if err != nil {
		return Window{}, err
	}
	end, err := parseClock(to)
	if err != nil {
		return Window{}, err
	}
	if end <= start {
		return Window{}, fmt.Errorf("window %q ends before it starts", raw)
	}
	return Window{Start: start, End: end}, nil
}

func parseClock(raw string) (int, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid clock time %q", raw)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// Contains reports whether the wall clock of t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	m := t.Hour()*60 + t.Minute()
	return m >= w.Start && m < w.End
}

// Closed reports whether the window has already ended on t's day.
func (w Window) Closed(t time.Time) bool {
	return t.Hour()*60+t.Minute() >= w.End
}

func (w Window) String() string {
	return fmt.Sprintf("%02d:%02d-%02d:%02d", w.Start/60, w.Start%60, w.End/60, w.End%60)
}
