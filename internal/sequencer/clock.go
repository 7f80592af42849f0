package sequencer

import "time"

// Clock is the audio-time source. Now reports time in the clock's own
// domain, not wall clock; it must be monotonically non-decreasing.
type Clock interface {
	Now() time.Duration
}

// SystemClock measures monotonic time since construction. Stands in for a
// hardware audio clock when none is wired.
type SystemClock struct {
	start time.Time
}

func NewSystemClock() *SystemClock {
	return &SystemClock{start: time.Now()}
}

func (c *SystemClock) Now() time.Duration {
	return time.Since(c.start)
}
