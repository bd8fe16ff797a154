// Package display renders the calculator LCD: the worker's display bitmap,
// the annunciator row and the fading info button.
package display

import (
	"strings"

	"github.com/calcwidget/calcwidget/internal/theme"
	"github.com/charmbracelet/lipgloss"
)

// LCD geometry of the worker's display in pixels.
const (
	PixelWidth  = 131
	PixelHeight = 16
)

// Width is the rendered LCD width in cells, border excluded.
const Width = (PixelWidth+1)/2 + 2

// InfoID is the element id of the info button.
const InfoID = "flip"

var annunciatorLabels = map[string]string{
	"AnnUpDown": "▲▼",
	"AnnShift":  "SHIFT",
	"AnnPrint":  "PRINT",
	"AnnRun":    "RUN",
	"AnnG":      "GRAD",
	"AnnRAD":    "RAD",
}

// Model is what the LCD shows.
type Model struct {
	Bitmap       *Bitmap
	Err          error
	Annunciators []string        // ids in display order
	Lit          map[string]bool // annunciator id -> lit
	InfoOpacity  float64
}

// View renders the LCD panel.
func (m Model) View() string {
	lcd := lipgloss.NewStyle().
		Background(theme.ColorLCD).
		Foreground(theme.ColorLCDInk).
		Width(Width).
		Padding(0, 1)

	lines := []string{m.annunciatorRow()}
	lines = append(lines, m.pixels()...)
	for i, l := range lines {
		lines[i] = lcd.Render(l)
	}

	return lipgloss.NewStyle().
		BorderStyle(lipgloss.ThickBorder()).
		BorderForeground(theme.ColorBezel).
		Render(strings.Join(lines, "\n"))
}

func (m Model) pixels() []string {
	rows := (PixelHeight + 1) / 2
	if m.Bitmap == nil {
		msg := "waiting for display"
		if m.Err != nil {
			msg = "display unavailable"
		}
		out := make([]string, rows)
		out[rows/2] = lipgloss.PlaceHorizontal(Width-2, lipgloss.Center, msg)
		return out
	}
	return m.Bitmap.Lines()
}

func (m Model) annunciatorRow() string {
	on := lipgloss.NewStyle().Foreground(theme.ColorAnnOn).Background(theme.ColorLCD).Bold(true)
	off := lipgloss.NewStyle().Foreground(theme.ColorAnnOff).Background(theme.ColorLCD)

	parts := make([]string, 0, len(m.Annunciators))
	for _, id := range m.Annunciators {
		label, ok := annunciatorLabels[id]
		if !ok {
			label = id
		}
		if m.Lit[id] {
			parts = append(parts, on.Render(label))
		} else {
			parts = append(parts, off.Render(strings.Repeat(" ", lipgloss.Width(label))))
		}
	}
	row := strings.Join(parts, " ")

	info := lipgloss.NewStyle().
		Foreground(theme.Fade(theme.ColorLCD, theme.ColorInfo, m.InfoOpacity)).
		Background(theme.ColorLCD).
		Render("ⓘ")
	gap := max(Width-2-lipgloss.Width(row)-lipgloss.Width(info), 1)
	return row + strings.Repeat(" ", gap) + info
}

// InfoHit reports whether (x, y), relative to the top-left of View, lands on
// the info button.
func InfoHit(x, y int) bool {
	// Row 1 is the annunciator row below the top border; the glyph sits in
	// the last content column, just inside the right padding.
	return y == 1 && x >= Width-2 && x <= Width
}

// Height is the rendered height of View.
func Height() int {
	return 1 + (PixelHeight+1)/2 + 2
}
