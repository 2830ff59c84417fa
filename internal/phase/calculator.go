package phase

import (
	"time"

	"go.uber.org/zap"
)

// SunSource resolves sunrise and sunset instants for a calendar day. It is
// best-effort and never fails; see internal/suntimes.
type SunSource interface {
	SunTimes(date time.Time) (sunrise, sunset time.Time)
}

// Calculator derives the four phase start instants for a calendar day, either
// from sunrise/sunset or from operator-supplied overrides.
type Calculator struct {
	sun             SunSource
	morningDuration time.Duration
	eveningDuration time.Duration
	overrides       *Overrides
	logger          *zap.Logger
}

// NewCalculator creates a new phase calculator. overrides may be nil, in
// which case sunrise/sunset drive the schedule.
func NewCalculator(sun SunSource, morningDuration, eveningDuration time.Duration, overrides *Overrides, logger *zap.Logger) *Calculator {
	return &Calculator{
		sun:             sun,
		morningDuration: morningDuration,
		eveningDuration: eveningDuration,
		overrides:       overrides,
		logger:          logger.Named("calculator"),
	}
}

// OverrideMode reports whether operator-supplied times are in effect.
func (c *Calculator) OverrideMode() bool {
	return c.overrides != nil
}

// ScheduleFor computes the phase start times for the calendar day of date.
// Morning starts at sunrise, day after the configured morning duration,
// evening the configured duration before sunset, night at sunset.
func (c *Calculator) ScheduleFor(date time.Time) Schedule {
	if c.overrides != nil {
		sched := c.overrides.ScheduleFor(date)
		c.logSchedule(date, sched, true)
		return sched
	}

	sunrise, sunset := c.sun.SunTimes(date)

	sched := Schedule{
		Morning: sunrise,
		Day:     sunrise.Add(c.morningDuration),
		Evening: sunset.Add(-c.eveningDuration),
		Night:   sunset,
	}

	// Large durations on a short day can push day past evening. The resolver
	// tolerates this; the operator gets a warning.
	if sched.Day.After(sched.Evening) {
		c.logger.Warn("configured durations invert day/evening ordering",
			zap.Time("day_start", sched.Day),
			zap.Time("evening_start", sched.Evening),
			zap.Duration("morning_duration", c.morningDuration),
			zap.Duration("evening_duration", c.eveningDuration))
	}

	c.logSchedule(date, sched, false)
	return sched
}

func (c *Calculator) logSchedule(date time.Time, sched Schedule, override bool) {
	c.logger.Info("Phase times calculated",
		zap.String("date", date.Format("2006-01-02")),
		zap.Bool("override_mode", override),
		zap.Time("morning", sched.Morning),
		zap.Time("day", sched.Day),
		zap.Time("evening", sched.Evening),
		zap.Time("night", sched.Night))
}
