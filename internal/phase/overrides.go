package phase

import (
	"fmt"
	"strings"
	"time"
)

// Overrides holds operator-supplied phase start times that bypass the solar
// computation entirely.
type Overrides struct {
	Morning time.Time
	Day     time.Time
	Evening time.Time
	Night   time.Time
}

// ParseOverrides parses four comma-separated HH:MM tokens mapped positionally
// to morning, day, evening and night. Each time is anchored to now's calendar
// day in now's location; a time already past at parse time is advanced to the
// next day. Any malformed input returns an error so the caller can fall back
// to solar mode.
func ParseOverrides(input string, now time.Time) (*Overrides, error) {
	parts := strings.Split(input, ",")
	if len(parts) != 4 {
		return nil, fmt.Errorf("expected 4 times (morning,day,evening,night), got %d", len(parts))
	}

	times := make([]time.Time, 4)
	for i, part := range parts {
		parsed, err := time.Parse("15:04", strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("invalid time %q: %w", strings.TrimSpace(part), err)
		}

		at := time.Date(now.Year(), now.Month(), now.Day(),
			parsed.Hour(), parsed.Minute(), 0, 0, now.Location())
		if at.Before(now) {
			at = at.AddDate(0, 0, 1)
		}
		times[i] = at
	}

	return &Overrides{
		Morning: times[0],
		Day:     times[1],
		Evening: times[2],
		Night:   times[3],
	}, nil
}

// ScheduleFor projects the override clock times onto the calendar day of
// date, keeping date's location.
func (o *Overrides) ScheduleFor(date time.Time) Schedule {
	project := func(t time.Time) time.Time {
		return time.Date(date.Year(), date.Month(), date.Day(),
			t.Hour(), t.Minute(), t.Second(), 0, date.Location())
	}
	return Schedule{
		Morning: project(o.Morning),
		Day:     project(o.Day),
		Evening: project(o.Evening),
		Night:   project(o.Night),
	}
}
