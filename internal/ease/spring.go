package ease

import (
	"time"

	"github.com/charmbracelet/harmonica"
)

// DefaultStep matches the animation tick period.
const DefaultStep = 13 * time.Millisecond

// Spring is a damped spring curve. The spring is integrated from rest at a
// fixed step, so At stays a pure function of elapsed time. Values are clamped
// to [0, 1]; an underdamped spring therefore plateaus instead of overshooting.
type Spring struct {
	Frequency float64 // angular frequency
	Damping   float64 // damping ratio, 1 is critically damped
	Step      time.Duration
}

// DefaultSpring returns a critically damped spring that settles in roughly
// half a second.
func DefaultSpring() Spring {
	return Spring{Frequency: 12, Damping: 1, Step: DefaultStep}
}

// At implements Curve.
func (s Spring) At(elapsed, duration time.Duration) float64 {
	if elapsed <= 0 {
		return 0
	}
	if elapsed >= duration {
		return 1
	}
	step := s.Step
	if step <= 0 {
		step = DefaultStep
	}
	spring := harmonica.NewSpring(step.Seconds(), s.Frequency, s.Damping)
	var pos, vel float64
	for t := time.Duration(0); t < elapsed; t += step {
		pos, vel = spring.Update(pos, vel, 1)
	}
	return Clamp(pos, 0, 1)
}
