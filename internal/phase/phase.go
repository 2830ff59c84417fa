// Package phase models the four daily cover phases and the schedule of
// instants at which each one begins.
package phase

import (
	"fmt"
	"time"
)

// Phase is one of the four cyclic time-of-day states driving which cover
// should currently be active.
type Phase string

const (
	Morning Phase = "morning"
	Day     Phase = "day"
	Evening Phase = "evening"
	Night   Phase = "night"
)

// All returns the phases in daily order.
func All() []Phase {
	return []Phase{Morning, Day, Evening, Night}
}

// Next returns the phase that follows p in cyclic order. Night wraps to the
// next day's morning.
func (p Phase) Next() Phase {
	switch p {
	case Morning:
		return Day
	case Day:
		return Evening
	case Evening:
		return Night
	default:
		return Morning
	}
}

// Parse validates a phase name read from external input.
func Parse(s string) (Phase, error) {
	switch Phase(s) {
	case Morning, Day, Evening, Night:
		return Phase(s), nil
	default:
		return "", fmt.Errorf("invalid phase: %q", s)
	}
}

// Schedule holds the start instant of each phase for one calendar day.
// Night's end is implicitly the next day's morning start.
type Schedule struct {
	Morning time.Time
	Day     time.Time
	Evening time.Time
	Night   time.Time
}

// Start returns the start instant for p.
func (s Schedule) Start(p Phase) time.Time {
	switch p {
	case Morning:
		return s.Morning
	case Day:
		return s.Day
	case Evening:
		return s.Evening
	default:
		return s.Night
	}
}

// Times returns the schedule as a phase-keyed map, mainly for logging and
// the persisted state snapshot.
func (s Schedule) Times() map[Phase]time.Time {
	return map[Phase]time.Time{
		Morning: s.Morning,
		Day:     s.Day,
		Evening: s.Evening,
		Night:   s.Night,
	}
}

// Resolve returns the phase active at now. Intervals are closed on the left:
// an instant equal to a phase's start belongs to that phase. Anything before
// morning start belongs to the previous night. The cascade is total, so a
// schedule with collapsed or inverted entries still yields a phase.
func (s Schedule) Resolve(now time.Time) Phase {
	switch {
	case now.Before(s.Morning):
		return Night
	case now.Before(s.Day):
		return Morning
	case now.Before(s.Evening):
		return Day
	case now.Before(s.Night):
		return Evening
	default:
		return Night
	}
}
