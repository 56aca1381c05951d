package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClock(t *testing.T) {
	c, err := ParseClock("09:30")
	require.NoError(t, err)
	assert.Equal(t, ClockTime(9*60+30), c)
	assert.Equal(t, "09:30", c.String())

	c, err = ParseClock("00:00")
	require.NoError(t, err)
	assert.Equal(t, ClockTime(0), c)

	for _, bad := range []string{"", "9:30:00", "25:00", "09:61", "banana"} {
		_, err := ParseClock(bad)
		assert.Error(t, err, "expected error for %q", bad)
	}
}

func TestClockOnDate(t *testing.T) {
	date := time.Date(2026, 3, 10, 23, 59, 0, 0, time.UTC)
	c, err := ParseClock("09:00")
	require.NoError(t, err)

	anchored := c.OnDate(date, time.UTC)
	assert.Equal(t, time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC), anchored)
	assert.Equal(t, c, ClockOf(anchored))
}

func TestOverlaps(t *testing.T) {
	base := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)
	at := func(m int) time.Time { return base.Add(time.Duration(m) * time.Minute) }

	// Overlapping in the middle.
	assert.True(t, Overlaps(at(0), at(60), at(30), at(90)))
	// Contained.
	assert.True(t, Overlaps(at(0), at(60), at(15), at(45)))
	// Back-to-back intervals do not overlap.
	assert.False(t, Overlaps(at(0), at(60), at(60), at(120)))
	assert.False(t, Overlaps(at(60), at(120), at(0), at(60)))
	// Disjoint.
	assert.False(t, Overlaps(at(0), at(30), at(90), at(120)))
}
