package phase

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOverridesAllFuture(t *testing.T) {
	now := time.Date(2024, time.June, 15, 5, 0, 0, 0, time.UTC)

	overrides, err := ParseOverrides("06:00,09:00,18:00,21:00", now)
	require.NoError(t, err)

	// All four times are still ahead, so they stay on today.
	assert.Equal(t, time.Date(2024, time.June, 15, 6, 0, 0, 0, time.UTC), overrides.Morning)
	assert.Equal(t, time.Date(2024, time.June, 15, 9, 0, 0, 0, time.UTC), overrides.Day)
	assert.Equal(t, time.Date(2024, time.June, 15, 18, 0, 0, 0, time.UTC), overrides.Evening)
	assert.Equal(t, time.Date(2024, time.June, 15, 21, 0, 0, 0, time.UTC), overrides.Night)

	// Strictly non-decreasing.
	assert.False(t, overrides.Day.Before(overrides.Morning))
	assert.False(t, overrides.Evening.Before(overrides.Day))
	assert.False(t, overrides.Night.Before(overrides.Evening))
}

func TestParseOverridesPastTimesAdvanceToTomorrow(t *testing.T) {
	now := time.Date(2024, time.June, 15, 12, 0, 0, 0, time.UTC)

	overrides, err := ParseOverrides("06:00,09:00,18:00,21:00", now)
	require.NoError(t, err)

	// Morning and day already passed, so they move to tomorrow.
	assert.Equal(t, time.Date(2024, time.June, 16, 6, 0, 0, 0, time.UTC), overrides.Morning)
	assert.Equal(t, time.Date(2024, time.June, 16, 9, 0, 0, 0, time.UTC), overrides.Day)
	assert.Equal(t, time.Date(2024, time.June, 15, 18, 0, 0, 0, time.UTC), overrides.Evening)
	assert.Equal(t, time.Date(2024, time.June, 15, 21, 0, 0, 0, time.UTC), overrides.Night)
}

func TestParseOverridesWrongCount(t *testing.T) {
	now := time.Now()

	_, err := ParseOverrides("06:00,09:00,18:00", now)
	assert.Error(t, err)

	_, err = ParseOverrides("06:00,09:00,18:00,21:00,23:00", now)
	assert.Error(t, err)
}

func TestParseOverridesMalformedToken(t *testing.T) {
	now := time.Now()

	_, err := ParseOverrides("06:00,nine,18:00,21:00", now)
	assert.Error(t, err)

	_, err = ParseOverrides("06:00,09:00,18:00,25:61", now)
	assert.Error(t, err)
}

func TestParseOverridesTrimsWhitespace(t *testing.T) {
	now := time.Date(2024, time.June, 15, 5, 0, 0, 0, time.UTC)

	overrides, err := ParseOverrides(" 06:00 , 09:00 ,18:00, 21:00", now)
	require.NoError(t, err)
	assert.Equal(t, 6, overrides.Morning.Hour())
}

func TestParseOverridesKeepsLocation(t *testing.T) {
	loc := time.FixedZone("BST", 3600)
	now := time.Date(2024, time.June, 15, 5, 0, 0, 0, loc)

	overrides, err := ParseOverrides("06:00,09:00,18:00,21:00", now)
	require.NoError(t, err)
	assert.Equal(t, loc, overrides.Morning.Location())
}

func TestOverridesScheduleForProjectsOntoDate(t *testing.T) {
	now := time.Date(2024, time.June, 15, 5, 0, 0, 0, time.UTC)
	overrides, err := ParseOverrides("06:00,09:00,18:00,21:00", now)
	require.NoError(t, err)

	tomorrow := now.AddDate(0, 0, 1)
	sched := overrides.ScheduleFor(tomorrow)

	assert.Equal(t, time.Date(2024, time.June, 16, 6, 0, 0, 0, time.UTC), sched.Morning)
	assert.Equal(t, time.Date(2024, time.June, 16, 21, 0, 0, 0, time.UTC), sched.Night)
}
