package chat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClock_TruncatesToMillisecondsUTC(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	c := NewClock(func() time.Time {
		return time.Date(2026, 5, 1, 10, 0, 0, 123456789, loc)
	})

	got := c.Now()

	assert.Equal(t, time.UTC, got.Location())
	assert.Equal(t, time.Date(2026, 5, 1, 8, 0, 0, 123000000, time.UTC), got)
}

func TestClock_NeverGoesBackwards(t *testing.T) {
	base := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	readings := []time.Time{
		base.Add(2 * time.Second),
		base,
		base.Add(3 * time.Second),
	}
	i := 0
	c := NewClock(func() time.Time {
		t := readings[i]
		i++
		return t
	})

	first := c.Now()
	second := c.Now()
	third := c.Now()

	assert.Equal(t, first, second)
	assert.True(t, third.After(second))
}

func TestClock_DefaultsToWallClock(t *testing.T) {
	c := NewClock(nil)

	before := time.Now().Add(-time.Second)
	got := c.Now()

	assert.True(t, got.After(before))
	assert.Zero(t, got.Nanosecond()%int(time.Millisecond))
}
