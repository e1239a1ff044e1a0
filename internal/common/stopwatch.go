package common

import (
	"time"

	"github.com/benbjohnson/clock"
)

// This stopwatch keeps track of time. You can set a timeout for it,
// make it start counting time, and ask it if the timeout has been reached
type Stopwatch struct {
	Timeout   time.Duration
	startTime time.Time
	Running   bool
	clock     clock.Clock
}

func NewStopwatch(timeout time.Duration, clk clock.Clock) Stopwatch {
	if clk == nil {
		clk = clock.New()
	}
	return Stopwatch{Timeout: timeout, clock: clk}
}

func (s *Stopwatch) Start() {
	s.StartAt(s.clock.Now())
}

// Start counting from a moment in the past, for instance the
// modification time of a file
func (s *Stopwatch) StartAt(t time.Time) {
	s.Running = true
	s.startTime = t
}

func (s *Stopwatch) Stop() {
	s.Running = false
}

// A stopwatch that is not running counts as stopped
func (s *Stopwatch) Stopped() bool {
	if !s.Running {
		return true
	}
	return s.TimeStopped() >= 0
}

// Return the time elapsed since this stopwatch
// stopped (reached its timeout).
// Note that if the number is negative, the timeout still
// has not been reached
func (s *Stopwatch) TimeStopped() time.Duration {
	return s.clock.Now().Sub(s.startTime.Add(s.Timeout))
}

// Time left until the timeout is reached, zero if already reached
func (s *Stopwatch) Remaining() time.Duration {
	if s.Stopped() {
		return 0
	}
	return -s.TimeStopped()
}
