package clock

import "errors"

var (
	// ErrNilEasing is returned when an easing function is missing.
	ErrNilEasing = errors.New("clock: easing function is nil")

	// ErrNilClock is returned when a wrapper is built over an absent clock.
	ErrNilClock = errors.New("clock: inner clock is nil")
)
