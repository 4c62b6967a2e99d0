package infra

import "time"

// Clock abstracts wall time and sleeping so timed waits (the dispatch
// pause, the deal-confirmation delay) can be simulated in tests.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

// SystemClock is the production Clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time        { return time.Now() }
func (SystemClock) Sleep(d time.Duration) { time.Sleep(d) }
