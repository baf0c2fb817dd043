package clock

// Manual is a clock driven by its owner, for tests and pseudo time.
// It is not safe for concurrent use.
type Manual struct {
	current float32
}

// NewManual returns a Manual clock at time 0.
func NewManual() *Manual {
	return &Manual{}
}

// Set moves the clock to t.
func (m *Manual) Set(t float32) {
	m.current = t
}

// Advance moves the clock forward by dt (backward when dt is negative).
func (m *Manual) Advance(dt float32) {
	m.current += dt
}

// GetTime returns the last value set.
func (m *Manual) GetTime() float32 {
	return m.current
}
