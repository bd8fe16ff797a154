// Package debug provides the protocol traffic overlay: every line exchanged
// with the worker, newest at the bottom.
package debug

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/calcwidget/calcwidget/internal/theme"
	"github.com/charmbracelet/lipgloss"
)

const maxEntries = 200

// Entry is one logged message.
type Entry struct {
	Time time.Time
	Dir  string // "in", "out", "err", "sys"
	Text string
}

// Model holds the traffic log.
type Model struct {
	Entries []Entry
	Offset  int // lines scrolled up from the bottom
	now     func() time.Time
}

// New creates an empty log.
func New() Model {
	return Model{now: time.Now}
}

// Add records a message, trimming the oldest entries past maxEntries, and
// jumps back to the bottom.
func (m *Model) Add(dir, text string) {
	now := time.Now
	if m.now != nil {
		now = m.now
	}
	m.Entries = append(m.Entries, Entry{Time: now(), Dir: dir, Text: text})
	if over := len(m.Entries) - maxEntries; over > 0 {
		m.Entries = append(m.Entries[:0:0], m.Entries[over:]...)
	}
	m.Offset = 0
}

// ScrollUp moves towards older entries.
func (m *Model) ScrollUp(n int) {
	m.Offset = min(m.Offset+n, max(len(m.Entries)-1, 0))
}

// ScrollDown moves towards newer entries.
func (m *Model) ScrollDown(n int) {
	m.Offset = max(m.Offset-n, 0)
}

// View renders the log as a bordered panel.
func (m Model) View(width, height int) string {
	innerW := max(width-4, 20)
	rows := max(height-6, 3)

	title := theme.StyleHeader.Render(" PROTOCOL LOG ")
	help := theme.StyleDimmed.Render(fmt.Sprintf("↑/↓:scroll  esc:close  %d entries", len(m.Entries)))

	var body string
	if len(m.Entries) == 0 {
		body = theme.StyleDimmed.Render("  No traffic yet.")
	} else {
		end := max(len(m.Entries)-m.Offset, 0)
		start := max(end-rows, 0)
		lines := make([]string, 0, end-start)
		for _, e := range m.Entries[start:end] {
			lines = append(lines, renderEntry(e, innerW))
		}
		body = strings.Join(lines, "\n")
		if m.Offset > 0 {
			body += "\n" + theme.StyleDimmed.Render(fmt.Sprintf(" ↓ %d newer", m.Offset))
		}
	}

	content := lipgloss.JoinVertical(lipgloss.Left, title, "", body, "", help)
	return lipgloss.NewStyle().
		Width(innerW).
		Padding(1, 2).
		BorderStyle(lipgloss.DoubleBorder()).
		BorderForeground(theme.ColorBorder).
		Render(content)
}

func renderEntry(e Entry, width int) string {
	ts := theme.StyleDimmed.Render(e.Time.Format("15:04:05.000"))
	dir := lipgloss.NewStyle().Foreground(dirColor(e.Dir)).Width(4).Render(e.Dir)
	text := visible(e.Text)
	if limit := width - 20; limit > 3 && len(text) > limit {
		text = text[:limit-3] + "..."
	}
	return ts + " " + dir + " " + text
}

// visible quotes control characters (paste separators, stray CRs) so they
// show up in the log instead of corrupting the terminal.
func visible(s string) string {
	if strings.IndexFunc(s, func(r rune) bool { return r < 0x20 || r == 0x7f }) < 0 {
		return s
	}
	q := strconv.Quote(s)
	return q[1 : len(q)-1]
}

func dirColor(dir string) lipgloss.Color {
	switch dir {
	case "in":
		return theme.ColorTrafficIn
	case "out":
		return theme.ColorTrafficOut
	case "err":
		return theme.ColorDanger
	case "sys":
		return theme.ColorWarning
	default:
		return theme.ColorDimmed
	}
}
