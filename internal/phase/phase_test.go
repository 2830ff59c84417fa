package phase

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSchedule(t *testing.T) Schedule {
	t.Helper()
	loc := time.FixedZone("BST", 3600)
	day := func(hour, minute int) time.Time {
		return time.Date(2024, time.June, 15, hour, minute, 0, 0, loc)
	}
	return Schedule{
		Morning: day(6, 0),
		Day:     day(9, 0),
		Evening: day(19, 0),
		Night:   day(21, 0),
	}
}

func TestScheduleResolve(t *testing.T) {
	sched := testSchedule(t)

	tests := []struct {
		name string
		now  time.Time
		want Phase
	}{
		{"pre-dawn is prior night", sched.Morning.Add(-2 * time.Hour), Night},
		{"just before morning", sched.Morning.Add(-time.Second), Night},
		{"exactly morning start", sched.Morning, Morning},
		{"mid morning", sched.Morning.Add(time.Hour), Morning},
		{"exactly day start", sched.Day, Day},
		{"afternoon", sched.Day.Add(4 * time.Hour), Day},
		{"exactly evening start", sched.Evening, Evening},
		{"late evening", sched.Night.Add(-time.Minute), Evening},
		{"exactly night start", sched.Night, Night},
		{"near midnight", sched.Night.Add(2 * time.Hour), Night},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, sched.Resolve(tt.now))
		})
	}
}

func TestScheduleResolveMonotonic(t *testing.T) {
	sched := testSchedule(t)

	// Walk the day in 5-minute steps from morning start onwards; the resolved
	// phase index must never decrease.
	order := map[Phase]int{Morning: 0, Day: 1, Evening: 2, Night: 3}

	last := -1
	for now := sched.Morning; now.Before(sched.Night.Add(time.Hour)); now = now.Add(5 * time.Minute) {
		current := order[sched.Resolve(now)]
		assert.GreaterOrEqual(t, current, last, "phase went backwards at %v", now)
		last = current
	}
}

func TestScheduleResolveCollapsedPhase(t *testing.T) {
	sched := testSchedule(t)
	// Zero-width morning: day starts the instant morning does.
	sched.Day = sched.Morning

	assert.Equal(t, Day, sched.Resolve(sched.Morning))
	assert.Equal(t, Night, sched.Resolve(sched.Morning.Add(-time.Second)))
}

func TestScheduleResolveInvertedOrdering(t *testing.T) {
	// Oversized durations on a short day can put day after evening. The
	// resolver must still return some phase for every instant.
	loc := time.UTC
	day := func(hour int) time.Time {
		return time.Date(2024, time.December, 21, hour, 0, 0, 0, loc)
	}
	sched := Schedule{
		Morning: day(8),
		Day:     day(14), // 6h morning duration
		Evening: day(12), // 4h before a 16:00 sunset
		Night:   day(16),
	}

	for hour := 0; hour < 24; hour++ {
		resolved := sched.Resolve(day(hour))
		_, err := Parse(string(resolved))
		require.NoError(t, err, "hour %d", hour)
	}
}

func TestPhaseNextCyclic(t *testing.T) {
	assert.Equal(t, Day, Morning.Next())
	assert.Equal(t, Evening, Day.Next())
	assert.Equal(t, Night, Evening.Next())
	assert.Equal(t, Morning, Night.Next())
}

func TestParse(t *testing.T) {
	for _, p := range All() {
		parsed, err := Parse(string(p))
		require.NoError(t, err)
		assert.Equal(t, p, parsed)
	}

	_, err := Parse("twilight")
	assert.Error(t, err)
}

func TestScheduleStartAndTimes(t *testing.T) {
	sched := testSchedule(t)

	times := sched.Times()
	require.Len(t, times, 4)
	for _, p := range All() {
		assert.Equal(t, sched.Start(p), times[p])
	}
}
