// Package clock provides composable time sources for animation and timing code.
//
// A Clock reports elapsed time in seconds. Transformers wrap a clock by value
// and derive a new time from it, so a pipeline such as
//
//	c := clock.EaseInOut(clock.BounceNormalized(clock.Normalize(clock.StartSystem(), 2)))
//
// is a single value of a fully known type with no heap indirection.
// Functions constrained to Normalized clocks are only available once a chain
// has gone through Normalize.
package clock

// Clock abstracts time acquisition.
// GetTime returns the elapsed time in seconds from an arbitrary epoch.
type Clock interface {
	GetTime() float32
}

// Normalized is implemented by clocks whose output is conventionally in [0, 1].
// It carries no extra behavior and only restricts which transformers apply.
type Normalized interface {
	Clock
	normalizedRange()
}

// NormalizedRange can be embedded by clocks defined outside this package
// to declare the [0, 1] output convention.
type NormalizedRange struct{}

func (NormalizedRange) normalizedRange() {}

// Func adapts a plain function to the Clock interface.
type Func func() float32

// GetTime calls f.
func (f Func) GetTime() float32 {
	return f()
}

// isNilClock reports whether c is an absent clock (nil interface value or nil func).
func isNilClock(c any) bool {
	switch v := c.(type) {
	case nil:
		return true
	case Func:
		return v == nil
	case *Manual:
		return v == nil
	}
	return false
}
