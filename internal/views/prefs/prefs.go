// Package prefs renders the back panel: the two calculator preference
// checkboxes and the about text.
package prefs

import (
	"strings"

	"github.com/calcwidget/calcwidget/internal/theme"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

// About is the markdown shown under the checkboxes.
const About = `## Free42

An HP-42S simulator. Keys are sent to the calculator worker; the display
is redrawn from the bitmap it writes.

* **F1** flip back to the calculator
* **F3** copy the X register
* **F4** paste into the calculator
`

// Option is one checkbox.
type Option struct {
	Key   string
	Label string
	On    bool
}

// DefaultOptions returns the calculator's preference checkboxes, unchecked.
func DefaultOptions() []Option {
	return []Option{
		{Key: "invSingular", Label: "Inverting or solving a singular matrix is an error"},
		{Key: "matrixOverflow", Label: "Matrix overflow is an error"},
	}
}

// Model is the back panel state.
type Model struct {
	Options []Option
	Cursor  int
	Width   int
	// Location is where the preferences are saved, if anywhere.
	Location string

	about  string // rendered About, cached per width
	aboutW int
	style  string
}

// New creates a back panel. style is a glamour standard style name such as
// "dark" or "notty".
func New(style string) Model {
	if style == "" {
		style = "dark"
	}
	return Model{Options: DefaultOptions(), style: style}
}

// Set updates an option's checked state. Unknown keys are ignored.
func (m *Model) Set(key string, on bool) {
	for i := range m.Options {
		if m.Options[i].Key == key {
			m.Options[i].On = on
		}
	}
}

// Up moves the cursor to the previous option.
func (m *Model) Up() {
	if m.Cursor > 0 {
		m.Cursor--
	}
}

// Down moves the cursor to the next option.
func (m *Model) Down() {
	if m.Cursor < len(m.Options)-1 {
		m.Cursor++
	}
}

// Toggle flips the option under the cursor and returns its key and new
// state.
func (m *Model) Toggle() (string, bool, bool) {
	if m.Cursor < 0 || m.Cursor >= len(m.Options) {
		return "", false, false
	}
	o := &m.Options[m.Cursor]
	o.On = !o.On
	return o.Key, o.On, true
}

// RenderAbout renders markdown at the given wrap width.
func RenderAbout(md string, width int, style string) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", err
	}
	out, err := r.Render(md)
	if err != nil {
		return "", err
	}
	return strings.Trim(out, "\n"), nil
}

// View renders the panel.
func (m *Model) View() string {
	width := max(m.Width, 40)

	var b strings.Builder
	b.WriteString(theme.StyleHeader.Render("PREFERENCES"))
	b.WriteString("\n\n")
	for i, o := range m.Options {
		box := "[ ]"
		if o.On {
			box = "[x]"
		}
		line := box + " " + o.Label
		if i == m.Cursor {
			line = theme.StyleSelected.Render("> " + line)
		} else {
			line = "  " + line
		}
		b.WriteString(line + "\n")
	}

	if m.about == "" || m.aboutW != width {
		about, err := RenderAbout(About, width-4, m.style)
		if err != nil {
			about = About
		}
		m.about, m.aboutW = about, width
	}
	b.WriteString("\n" + m.about + "\n\n")
	if m.Location != "" {
		b.WriteString(theme.StyleDimmed.Render("saved to "+m.Location) + "\n")
	}
	b.WriteString(theme.StyleDimmed.Render("↑/↓ select  space toggle  f1 done"))

	return lipgloss.NewStyle().
		Width(width).
		Padding(0, 1).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(theme.ColorBorder).
		Render(b.String())
}
