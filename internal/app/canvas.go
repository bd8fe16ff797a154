package app

import "github.com/calcwidget/calcwidget/internal/ease"

// Canvas is the terminal's renderable surface. The session and the animation
// scheduler write element state into it; View reads it back.
type Canvas struct {
	images  map[string]string
	opacity map[string]float64
}

// NewCanvas creates an empty canvas.
func NewCanvas() *Canvas {
	return &Canvas{
		images:  make(map[string]string),
		opacity: make(map[string]float64),
	}
}

// SetImageSource records the image shown by element id.
func (c *Canvas) SetImageSource(id, path string) {
	c.images[id] = path
}

// SetOpacity records element id's opacity, clamped to [0, 1].
func (c *Canvas) SetOpacity(id string, v float64) {
	c.opacity[id] = ease.Clamp(v, 0, 1)
}

// Image returns the image last set for id.
func (c *Canvas) Image(id string) string {
	return c.images[id]
}

// Opacity returns the opacity last set for id; unset elements are invisible.
func (c *Canvas) Opacity(id string) float64 {
	return c.opacity[id]
}

// Shows reports whether element id currently shows path.
func (c *Canvas) Shows(id, path string) bool {
	return c.images[id] == path
}
