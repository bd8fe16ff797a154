// Package theme provides the Lip Gloss color palette and reusable styles
// for the calculator widget. It is a leaf package with no internal imports
// to avoid import cycles.
package theme

import (
	"github.com/charmbracelet/lipgloss"
	colorful "github.com/lucasb-eyer/go-colorful"
)

// Body colors, after the HP-42S case.
var (
	ColorCase     = lipgloss.Color("#2b2b2b")
	ColorBezel    = lipgloss.Color("#3a3a3a")
	ColorLCD      = lipgloss.Color("#b8c4a8")
	ColorLCDInk   = lipgloss.Color("#1c2418")
	ColorKey      = lipgloss.Color("#4a4a4a")
	ColorKeyText  = lipgloss.Color("#f2f2f2")
	ColorShiftKey = lipgloss.Color("#e08a2e")
	ColorShifted  = lipgloss.Color("#e0a050")
	ColorPressed  = lipgloss.Color("#8a8a8a")
)

// Annunciator colors.
var (
	ColorAnnOn  = lipgloss.Color("#1c2418")
	ColorAnnOff = lipgloss.Color("#a7b398")
)

// UI chrome colors.
var (
	ColorBorder  = lipgloss.Color("#4b5563")
	ColorDimmed  = lipgloss.Color("#6b7280")
	ColorBright  = lipgloss.Color("#f9fafb")
	ColorBg      = lipgloss.Color("#111827")
	ColorInfo    = lipgloss.Color("#60a5fa")
	ColorHealthy = lipgloss.Color("#22c55e")
	ColorWarning = lipgloss.Color("#d97706")
	ColorDanger  = lipgloss.Color("#dc2626")
)

// Debug log kind colors.
var (
	ColorTrafficIn  = lipgloss.Color("#2563eb")
	ColorTrafficOut = lipgloss.Color("#7c3aed")
)

// Fade blends from towards to by t in [0, 1], in Lab space so mid-fade
// colors do not muddy. Terminals have no alpha channel; this is how an
// element's opacity is shown.
func Fade(from, to lipgloss.Color, t float64) lipgloss.Color {
	a, errA := colorful.Hex(string(from))
	b, errB := colorful.Hex(string(to))
	if errA != nil || errB != nil {
		if t >= 0.5 {
			return to
		}
		return from
	}
	if t <= 0 {
		return from
	}
	if t >= 1 {
		return to
	}
	return lipgloss.Color(a.BlendLab(b, t).Clamped().Hex())
}

// Reusable styles.
var (
	StyleBorder = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder)

	StyleHeader = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorBright)

	StyleDimmed = lipgloss.NewStyle().
			Foreground(ColorDimmed)

	StyleSelected = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorBright)
)
