// Package keypad lays out and renders the 37-key HP-42S keyboard and maps
// pointer positions back onto key ids. Key ids are the worker's 0-based key
// numbers.
package keypad

import (
	"strconv"
	"strings"

	"github.com/calcwidget/calcwidget/internal/theme"
	"github.com/charmbracelet/lipgloss"
)

// Key is one keypad button.
type Key struct {
	ID      string
	Label   string
	Shifted string
	Width   int // cells, including the one-cell gap to the right
}

// Rows is the keyboard, top to bottom. Each row is 36 cells wide.
var Rows = buildRows()

func buildRows() [][]Key {
	type k struct{ label, shifted string }
	legends := [][]k{
		{{"Σ+", "Σ-"}, {"1/x", "yˣ"}, {"√x", "x²"}, {"LOG", "10ˣ"}, {"LN", "eˣ"}, {"XEQ", "GTO"}},
		{{"STO", "CMPLX"}, {"RCL", "%"}, {"R↓", "π"}, {"SIN", "ASIN"}, {"COS", "ACOS"}, {"TAN", "ATAN"}},
		{{"ENTER", "ALPHA"}, {"x≷y", "LASTx"}, {"+/-", "MODES"}, {"E", "DISP"}, {"←", "CLEAR"}},
		{{"▲", "BST"}, {"7", "SOLVER"}, {"8", "∫f(x)"}, {"9", "MATRIX"}, {"÷", "STAT"}},
		{{"▼", "SST"}, {"4", "BASE"}, {"5", "CONVERT"}, {"6", "FLAGS"}, {"×", "PROB"}},
		{{"SHIFT", ""}, {"1", "ASSIGN"}, {"2", "CUSTOM"}, {"3", "PGM.FCN"}, {"-", "PRINT"}},
		{{"EXIT", "OFF"}, {"0", "TOP.FCN"}, {".", "SHOW"}, {"R/S", "PRGM"}, {"+", "CATALOG"}},
	}

	id := 0
	rows := make([][]Key, len(legends))
	for r, row := range legends {
		for c, key := range row {
			w := 6
			switch {
			case r == 2 && c == 0:
				w = 12
			case r >= 3 && c == 0:
				w = 8
			case r >= 3:
				w = 7
			}
			rows[r] = append(rows[r], Key{ID: strconv.Itoa(id), Label: key.label, Shifted: key.shifted, Width: w})
			id++
		}
	}
	return rows
}

// RowHeight is the number of lines per keypad row: shifted legend, key cap.
const RowHeight = 2

// Count is the number of keys.
func Count() int {
	n := 0
	for _, row := range Rows {
		n += len(row)
	}
	return n
}

// Hit maps (x, y), relative to the top-left of View, onto a key id.
func Hit(x, y int) (string, bool) {
	if x < 0 || y < 0 {
		return "", false
	}
	r := y / RowHeight
	if r >= len(Rows) {
		return "", false
	}
	left := 0
	for _, key := range Rows[r] {
		// the last cell of each key is the gap
		if x >= left && x < left+key.Width-1 {
			return key.ID, true
		}
		left += key.Width
	}
	return "", false
}

// Model is the keypad's visual state.
type Model struct {
	Pressed map[string]bool
}

// View renders the keypad.
func (m Model) View() string {
	var lines []string
	for r, row := range Rows {
		var legend, caps strings.Builder
		for _, key := range row {
			capW := key.Width - 1

			legendStyle := lipgloss.NewStyle().Width(capW).Align(lipgloss.Center).Foreground(theme.ColorShifted)
			legend.WriteString(legendStyle.Render(fit(key.Shifted, capW)))
			legend.WriteString(" ")

			bg := theme.ColorKey
			if r == 5 && key.Label == "SHIFT" {
				bg = theme.ColorShiftKey
			}
			if m.Pressed[key.ID] {
				bg = theme.ColorPressed
			}
			capStyle := lipgloss.NewStyle().Width(capW).Align(lipgloss.Center).
				Background(bg).Foreground(theme.ColorKeyText).Bold(true)
			caps.WriteString(capStyle.Render(fit(key.Label, capW)))
			caps.WriteString(" ")
		}
		lines = append(lines, legend.String(), caps.String())
	}
	return strings.Join(lines, "\n")
}

// fit cuts s to at most w cells so a legend never wraps onto a second line.
func fit(s string, w int) string {
	r := []rune(s)
	if len(r) > w {
		return string(r[:w])
	}
	return s
}
