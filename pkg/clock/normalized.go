package clock

import "github.com/tartampluch/go-tempo/pkg/clock/easing"

// NormalizedClock divides the time of its base clock by a duration,
// mapping [0, duration] onto [0, 1]. The result is not clamped.
type NormalizedClock[T Clock] struct {
	base     T
	duration float32
}

// Normalize is the bridge from an arbitrary clock to a Normalized one.
// A non-positive duration yields a clock stuck at 0.
func Normalize[T Clock](c T, duration float32) NormalizedClock[T] {
	return NormalizedClock[T]{base: c, duration: duration}
}

// GetTime returns base / duration.
func (c NormalizedClock[T]) GetTime() float32 {
	if c.duration <= 0 {
		return 0
	}
	return c.base.GetTime() / c.duration
}

func (NormalizedClock[T]) normalizedRange() {}

// EasedClock applies an easing curve to a normalized clock.
type EasedClock[T Normalized] struct {
	base T
	ease easing.Func
}

// Ease wraps c with the easing function f.
// It fails with ErrNilEasing when f is nil and ErrNilClock when c is absent.
func Ease[T Normalized](c T, f easing.Func) (EasedClock[T], error) {
	if f == nil {
		return EasedClock[T]{}, ErrNilEasing
	}
	if isNilClock(c) {
		return EasedClock[T]{}, ErrNilClock
	}
	return EasedClock[T]{base: c, ease: f}, nil
}

// MustEase is like Ease but panics on invalid arguments.
func MustEase[T Normalized](c T, f easing.Func) EasedClock[T] {
	eased, err := Ease(c, f)
	if err != nil {
		panic(err)
	}
	return eased
}

// GetTime returns f(base).
func (c EasedClock[T]) GetTime() float32 {
	return c.ease(c.base.GetTime())
}

func (EasedClock[T]) normalizedRange() {}

// NormalizedLoopClock repeats the [0, 1] range of a normalized clock.
type NormalizedLoopClock[T Normalized] struct {
	base T
}

// LoopNormalized returns a clock cycling through [0, 1).
func LoopNormalized[T Normalized](c T) NormalizedLoopClock[T] {
	return NormalizedLoopClock[T]{base: c}
}

// GetTime returns base modulo 1. Negative base time gives a negative result.
func (c NormalizedLoopClock[T]) GetTime() float32 {
	return mod(c.base.GetTime(), 1)
}

func (NormalizedLoopClock[T]) normalizedRange() {}

// NormalizedBounceClock ping-pongs a normalized clock between 0 and 1.
type NormalizedBounceClock[T Normalized] struct {
	base T
}

// BounceNormalized returns a clock going 0→1→0 every 2 units of base time.
func BounceNormalized[T Normalized](c T) NormalizedBounceClock[T] {
	return NormalizedBounceClock[T]{base: c}
}

// GetTime returns the triangle-wave time.
func (c NormalizedBounceClock[T]) GetTime() float32 {
	return fold(c.base.GetTime())
}

func (NormalizedBounceClock[T]) normalizedRange() {}

// Easing shortcuts. The functions are known to be non-nil, so these never fail.

// Linear applies easing.Linear.
func Linear[T Normalized](c T) EasedClock[T] {
	return EasedClock[T]{base: c, ease: easing.Linear}
}

// EaseIn applies easing.EaseIn.
func EaseIn[T Normalized](c T) EasedClock[T] {
	return EasedClock[T]{base: c, ease: easing.EaseIn}
}

// EaseOut applies easing.EaseOut.
func EaseOut[T Normalized](c T) EasedClock[T] {
	return EasedClock[T]{base: c, ease: easing.EaseOut}
}

// EaseInOut applies easing.EaseInOut.
func EaseInOut[T Normalized](c T) EasedClock[T] {
	return EasedClock[T]{base: c, ease: easing.EaseInOut}
}

// Sine applies easing.Sine.
func Sine[T Normalized](c T) EasedClock[T] {
	return EasedClock[T]{base: c, ease: easing.Sine}
}

// Smoothstep applies easing.Smoothstep.
func Smoothstep[T Normalized](c T) EasedClock[T] {
	return EasedClock[T]{base: c, ease: easing.Smoothstep}
}
