package watchdog

import "time"

// DefaultTimeout is how long a setpoint stream may stay silent before it is
// considered finished.
const DefaultTimeout = 10 * time.Second

// Clock returns the current time. Tests substitute their own.
type Clock func() time.Time

// Watchdog remembers when it was last touched.
// It is not safe for concurrent use; the owner serializes access.
type Watchdog struct {
	timeout time.Duration
	now     Clock
	last    time.Time
}

func New(timeout time.Duration, now Clock) *Watchdog {
	if now == nil {
		now = time.Now
	}
	return &Watchdog{timeout: timeout, now: now, last: now()}
}

// Touch marks the watchdog fresh.
func (w *Watchdog) Touch() {
	w.last = w.now()
}

// Stale reports whether at least the timeout has elapsed since the last touch.
func (w *Watchdog) Stale() bool {
	return w.Since() >= w.timeout
}

func (w *Watchdog) Since() time.Duration {
	return w.now().Sub(w.last)
}

func (w *Watchdog) Timeout() time.Duration {
	return w.timeout
}
