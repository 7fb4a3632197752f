package client

import "time"

// clock is the monotonic time source the session polls against. A real
// clock wraps time.Now/time.Sleep; tests substitute a fake to drive
// deadlines without wall-clock delay.
type clock interface {
	now() time.Time
	sleep(d time.Duration)
}

type realClock struct{}

func (realClock) now() time.Time        { return time.Now() }
func (realClock) sleep(d time.Duration) { time.Sleep(d) }
