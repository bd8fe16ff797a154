package status

import (
	"fmt"

	"github.com/calcwidget/calcwidget/internal/theme"
	"github.com/calcwidget/calcwidget/internal/worker"
	"github.com/charmbracelet/lipgloss"
)

// State is the worker connection state shown in the bar.
type State int

const (
	StateStarting State = iota
	StateRunning
	StateExited
	StateUnavailable
)

// Model holds the status bar state.
type Model struct {
	State   State
	Remote  string // bridge URL when the worker is remote
	Usage   *worker.Usage
	Redraws uint64
	XReg    string
	Notice  string
	ExitErr error
	Width   int
}

// New creates a status bar model.
func New() Model {
	return Model{}
}

// View renders the status bar.
func (m Model) View() string {
	width := max(m.Width, 40)

	var stateStr string
	switch m.State {
	case StateRunning:
		label := "● worker"
		if m.Remote != "" {
			label = "● bridge " + m.Remote
		}
		stateStr = lipgloss.NewStyle().Foreground(theme.ColorHealthy).Render(label)
	case StateExited:
		label := "○ worker exited"
		if m.ExitErr != nil {
			label += ": " + m.ExitErr.Error()
		}
		stateStr = lipgloss.NewStyle().Foreground(theme.ColorDanger).Render(label)
	case StateUnavailable:
		stateStr = lipgloss.NewStyle().Foreground(theme.ColorDanger).Render("○ no worker")
	default:
		stateStr = lipgloss.NewStyle().Foreground(theme.ColorWarning).Render("◌ starting...")
	}

	sep := lipgloss.NewStyle().Foreground(theme.ColorBorder).Render(" | ")
	content := stateStr
	if m.Usage != nil {
		content += sep + fmt.Sprintf("pid %d  %.1f%%  %s", m.Usage.Pid, m.Usage.CPUPercent, m.Usage.HumanRSS())
	}
	content += sep + fmt.Sprintf("redraws %d", m.Redraws)
	if m.XReg != "" {
		content += sep + "x: " + m.XReg
	}
	if m.Notice != "" {
		content += sep + lipgloss.NewStyle().Foreground(theme.ColorWarning).Render(m.Notice)
	}

	return lipgloss.NewStyle().
		Width(width).
		Padding(0, 1).
		BorderStyle(lipgloss.DoubleBorder()).
		BorderForeground(theme.ColorBorder).
		Render(content)
}
