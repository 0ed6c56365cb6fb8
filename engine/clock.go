package engine

// Clock is the global simulation clock. Time only moves forward, and not at all while paused.
type Clock struct {
	t      float64
	dt     float64
	paused bool
}

// NewClock creates a running clock at time zero.
func NewClock() *Clock {
	return &Clock{}
}

// Advance moves the clock forward by step seconds unless it is paused.
//
// Parameters:
//   - step: seconds to add, ignored when not positive
//
// Returns:
//   - float64: the seconds actually added, zero while paused
func (c *Clock) Advance(step float64) float64 {
	if c.paused || step <= 0 {
		c.dt = 0
		return 0
	}
	c.t += step
	c.dt = step
	return step
}

// Time returns the clock time in seconds.
func (c *Clock) Time() float64 {
	return c.t
}

// Delta returns the seconds added by the last Advance.
func (c *Clock) Delta() float64 {
	return c.dt
}

// Paused reports whether the clock is frozen.
func (c *Clock) Paused() bool {
	return c.paused
}

// SetPaused freezes or resumes the clock.
func (c *Clock) SetPaused(paused bool) {
	c.paused = paused
}

// TogglePaused flips the paused state and returns the new one.
func (c *Clock) TogglePaused() bool {
	c.paused = !c.paused
	return c.paused
}
