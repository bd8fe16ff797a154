package worker

import (
	"errors"
	"time"

	"github.com/calcwidget/calcwidget/internal/protocol"
	tea "github.com/charmbracelet/bubbletea"
)

// --- Bubble Tea messages ---

// LineMsg carries one inbound message from the worker.
type LineMsg struct{ Line string }

// DroppedMsg reports an inbound message that could not be read. The worker
// is waiting for its ack all the same.
type DroppedMsg struct{ Err error }

// ExitMsg is sent once when the worker's output ends.
type ExitMsg struct{ Err error }

// UsageMsg delivers a resource sample.
type UsageMsg struct {
	Usage Usage
	Err   error
}

// ReadLoop returns a command that waits for the next worker message. Issue it
// again after every LineMsg and DroppedMsg; the handshake guarantees the
// worker sends nothing further until the previous message was acknowledged.
func ReadLoop(t Transport) tea.Cmd {
	return func() tea.Msg {
		line, err := t.Next()
		if errors.Is(err, protocol.ErrMessageTooLong) {
			return DroppedMsg{Err: err}
		}
		if err != nil {
			return ExitMsg{Err: err}
		}
		return LineMsg{Line: line}
	}
}

// SampleEvery returns a command that samples pid after interval.
func SampleEvery(pid int, interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(time.Time) tea.Msg {
		u, err := Sample(pid)
		return UsageMsg{Usage: u, Err: err}
	})
}
