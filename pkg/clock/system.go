package clock

import "time"

// WallClock supplies real time to System.
// Replace it in tests to get deterministic readings.
type WallClock interface {
	Now() time.Time
}

// RealWallClock implements WallClock using the standard time package.
// Readings carry Go's monotonic clock, so elapsed time ignores wall-clock jumps.
type RealWallClock struct{}

// Now returns the current local time.
func (RealWallClock) Now() time.Time {
	return time.Now()
}

// processStart is the reference of DefaultSystem.
var processStart = time.Now()

// System measures real seconds elapsed since a fixed start reference.
// It is immutable once constructed.
type System struct {
	wall  WallClock
	start time.Time
}

// NewSystem returns a System counting from start.
func NewSystem(start time.Time) System {
	return System{wall: RealWallClock{}, start: start}
}

// NewSystemWithWall returns a System counting from start on the given wall clock.
func NewSystemWithWall(wall WallClock, start time.Time) System {
	if wall == nil {
		wall = RealWallClock{}
	}
	return System{wall: wall, start: start}
}

// StartSystem returns a System whose time is 0 now.
func StartSystem() System {
	return NewSystem(time.Now())
}

// DefaultSystem returns the System started when the package was initialized.
func DefaultSystem() System {
	return NewSystem(processStart)
}

// Start returns the reference instant.
func (s System) Start() time.Time {
	return s.start
}

// GetTime returns the seconds elapsed since the start reference.
func (s System) GetTime() float32 {
	if s.wall == nil {
		return float32(time.Since(s.start).Seconds())
	}
	return float32(s.wall.Now().Sub(s.start).Seconds())
}
