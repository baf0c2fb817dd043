package clock

// Cached freezes the time of its inner clock between calls to Update,
// so every reader in one frame sees the same value.
// It is not safe for concurrent use.
type Cached[T Clock] struct {
	inner  T
	cached float32
}

// NewCached wraps inner and takes a first reading.
func NewCached[T Clock](inner T) (*Cached[T], error) {
	if isNilClock(inner) {
		return nil, ErrNilClock
	}
	c := &Cached[T]{inner: inner}
	c.Update()
	return c, nil
}

// GetTime returns the value read by the last Update.
func (c *Cached[T]) GetTime() float32 {
	return c.cached
}

// Update reads the inner clock once.
func (c *Cached[T]) Update() {
	c.cached = c.inner.GetTime()
}
