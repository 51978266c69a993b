package watchdog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func TestWatchdogGoesStaleAfterTimeout(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	w := New(DefaultTimeout, clock.Now)

	assert.False(t, w.Stale())

	clock.Advance(9*time.Second + 999*time.Millisecond)
	assert.False(t, w.Stale())

	clock.Advance(time.Millisecond)
	assert.True(t, w.Stale())
	assert.Equal(t, 10*time.Second, w.Since())
}

func TestTouchResetsWatchdog(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	w := New(time.Second, clock.Now)

	clock.Advance(2 * time.Second)
	assert.True(t, w.Stale())

	w.Touch()
	assert.False(t, w.Stale())
	assert.Equal(t, time.Duration(0), w.Since())
}

func TestNilClockUsesWallTime(t *testing.T) {
	w := New(time.Hour, nil)

	assert.False(t, w.Stale())
	assert.Equal(t, time.Hour, w.Timeout())
}
