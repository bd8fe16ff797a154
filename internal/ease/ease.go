// Package ease maps elapsed transition time onto a normalized progress value
// in [0, 1]. Everything here is pure: no clocks, no I/O.
package ease

import (
	"fmt"
	"math"
	"time"
)

// Curve shapes the progress of a transition of the given duration.
type Curve interface {
	At(elapsed, duration time.Duration) float64
}

// CurveFunc adapts a plain function to the Curve interface.
type CurveFunc func(elapsed, duration time.Duration) float64

// At calls f(elapsed, duration).
func (f CurveFunc) At(elapsed, duration time.Duration) float64 {
	return f(elapsed, duration)
}

// Cosine is the slow-fast-slow curve 0.5 - 0.5·cos(π·elapsed/duration).
// It returns exactly 0 for elapsed <= 0 and exactly 1 for elapsed >= duration.
func Cosine(elapsed, duration time.Duration) float64 {
	if elapsed <= 0 {
		return 0
	}
	if elapsed >= duration {
		return 1
	}
	return 0.5 - 0.5*math.Cos(math.Pi*float64(elapsed)/float64(duration))
}

// Interpolate returns from + (to-from)·t.
func Interpolate(from, to, t float64) float64 {
	return from + (to-from)*t
}

// Clamp limits v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Lookup resolves a curve by its configuration name.
func Lookup(name string) (Curve, error) {
	switch name {
	case "", "cosine":
		return CurveFunc(Cosine), nil
	case "spring":
		return DefaultSpring(), nil
	default:
		return nil, fmt.Errorf("unknown easing curve %q", name)
	}
}
