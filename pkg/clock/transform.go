package clock

import "math"

// mod is the truncated float remainder; the sign of the result follows x.
func mod(x, y float32) float32 {
	return float32(math.Mod(float64(x), float64(y)))
}

// ScaledClock multiplies the time of its base clock by a factor.
type ScaledClock[T Clock] struct {
	base  T
	scale float32
}

// Scale returns a clock running factor times faster than c.
// A negative factor reverses time.
func Scale[T Clock](c T, factor float32) ScaledClock[T] {
	return ScaledClock[T]{base: c, scale: factor}
}

// Negative reverses the direction of c. It is Scale(c, -1).
func Negative[T Clock](c T) ScaledClock[T] {
	return Scale(c, -1)
}

// GetTime returns the scaled time.
func (c ScaledClock[T]) GetTime() float32 {
	return c.base.GetTime() * c.scale
}

// OffsetClock adds a constant to the time of its base clock.
type OffsetClock[T Clock] struct {
	base   T
	offset float32
}

// Offset returns a clock shifted by offset seconds.
func Offset[T Clock](c T, offset float32) OffsetClock[T] {
	return OffsetClock[T]{base: c, offset: offset}
}

// GetTime returns the shifted time.
func (c OffsetClock[T]) GetTime() float32 {
	return c.base.GetTime() + c.offset
}

// LoopClock repeats the time of its base clock every duration seconds.
type LoopClock[T Clock] struct {
	base     T
	duration float32
}

// Loop returns a clock that wraps around every duration seconds.
// A non-positive duration yields a clock stuck at 0.
func Loop[T Clock](c T, duration float32) LoopClock[T] {
	return LoopClock[T]{base: c, duration: duration}
}

// GetTime returns the base time modulo the duration.
// Negative base time gives a negative result.
func (c LoopClock[T]) GetTime() float32 {
	if c.duration <= 0 {
		return 0
	}
	return mod(c.base.GetTime(), c.duration)
}

// ClampedClock keeps the time of its base clock inside [min, max].
type ClampedClock[T Clock] struct {
	base T
	min  float32
	max  float32
}

// Clamp returns a clock bounded to [lo, hi]. The caller guarantees lo <= hi.
func Clamp[T Clock](c T, lo, hi float32) ClampedClock[T] {
	return ClampedClock[T]{base: c, min: lo, max: hi}
}

// GetTime returns the clamped time.
func (c ClampedClock[T]) GetTime() float32 {
	t := c.base.GetTime()
	switch {
	case t < c.min:
		return c.min
	case t > c.max:
		return c.max
	default:
		return t
	}
}

// MinClock never reports a time below its lower bound.
type MinClock[T Clock] struct {
	base  T
	lower float32
}

// Min returns a clock whose time is at least value.
func Min[T Clock](c T, value float32) MinClock[T] {
	return MinClock[T]{base: c, lower: value}
}

// GetTime returns max(base, lower).
func (c MinClock[T]) GetTime() float32 {
	t := c.base.GetTime()
	if t < c.lower {
		return c.lower
	}
	return t
}

// MaxClock never reports a time above its upper bound.
type MaxClock[T Clock] struct {
	base  T
	upper float32
}

// Max returns a clock whose time is at most value.
func Max[T Clock](c T, value float32) MaxClock[T] {
	return MaxClock[T]{base: c, upper: value}
}

// GetTime returns min(base, upper).
func (c MaxClock[T]) GetTime() float32 {
	t := c.base.GetTime()
	if t > c.upper {
		return c.upper
	}
	return t
}

// BounceClock goes from 0 to duration and back, like a ball between two walls.
// One full round trip takes 2*duration seconds.
type BounceClock[T Clock] struct {
	base     T
	duration float32
}

// Bounce returns a clock oscillating in [0, duration].
// A non-positive duration yields a clock stuck at 0.
func Bounce[T Clock](c T, duration float32) BounceClock[T] {
	return BounceClock[T]{base: c, duration: duration}
}

// GetTime returns the triangle-wave time.
func (c BounceClock[T]) GetTime() float32 {
	if c.duration <= 0 {
		return 0
	}
	return fold(c.base.GetTime()/c.duration) * c.duration
}

// fold maps x onto a triangle wave of period 2 peaking at 1.
func fold(x float32) float32 {
	cycle := mod(x, 2)
	if cycle <= 1 {
		return cycle
	}
	return 2 - cycle
}
