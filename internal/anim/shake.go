package anim

import "math/rand"

// Shake is the exponentially decaying trauma model driving the per-frame
// jitter offset of the whole text layer. The random source is injected so
// tests can seed it (or disable jitter outright) for reproducible output.
type Shake struct {
	Jitter float64
	Rand   *rand.Rand

	trauma float64
}

// NewShake creates a shake engine with the given intensity and source.
// A nil source is allowed when jitter is zero.
func NewShake(jitter float64, r *rand.Rand) *Shake {
	return &Shake{Jitter: jitter, Rand: r}
}

// Step advances the trauma one frame: exponential decay, reset to the
// configured intensity whenever a new character became visible.
func (s *Shake) Step(visibleChanged bool, visibleCount int) {
	s.trauma *= 0.9
	if visibleChanged && s.Jitter > 0 && visibleCount > 0 {
		s.trauma = s.Jitter
	}
}

// Offset returns the pixel offset of the text layer for the current frame.
// Below the 0.5 threshold the shake is considered settled.
func (s *Shake) Offset() (dx, dy float64) {
	if s.trauma <= 0.5 || s.Rand == nil {
		return 0, 0
	}
	dx = (s.Rand.Float64() - 0.5) * s.trauma * 2
	dy = (s.Rand.Float64() - 0.5) * s.trauma * 2
	return dx, dy
}

// Trauma exposes the current trauma value.
func (s *Shake) Trauma() float64 { return s.trauma }
