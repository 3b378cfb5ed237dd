// Package clock lets time-dependent code run against either the wall clock or a
// manually advanced fake, so debounce and expiry behaviour can be tested without sleeping.
package clock

import "time"

// Clock is the subset of the time package used by the server.
type Clock interface {
	Now() time.Time

	// AfterFunc calls f once d has elapsed, unless the returned Timer is stopped first.
	AfterFunc(d time.Duration, f func()) *Timer
}

// Timer is a pending AfterFunc call.
type Timer struct {
	stop func() bool
}

// Stop cancels the call. It reports false if the call already ran or was stopped.
func (t *Timer) Stop() bool {
	if t == nil || t.stop == nil {
		return false
	}
	return t.stop()
}

type realClock struct{}

// Real returns a Clock backed by the time package.
func Real() Clock {
	return realClock{}
}

func (realClock) Now() time.Time {
	return time.Now()
}

func (realClock) AfterFunc(d time.Duration, f func()) *Timer {
	t := time.AfterFunc(d, f)
	return &Timer{stop: t.Stop}
}
