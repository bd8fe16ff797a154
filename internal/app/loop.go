package app

import (
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"
)

// postMsg carries a callback onto the Bubble Tea event loop.
type postMsg struct{ fn func() }

// Loop posts callbacks from other goroutines onto the program's event loop,
// so animation ticks mutate state on the same goroutine as Update.
type Loop struct {
	p atomic.Pointer[tea.Program]
}

// Attach binds the loop to a program. Posts before Attach are dropped.
func (l *Loop) Attach(p *tea.Program) {
	l.p.Store(p)
}

// Post schedules fn on the event loop. It blocks until the loop accepts the
// message or the program has exited.
func (l *Loop) Post(fn func()) {
	if p := l.p.Load(); p != nil {
		p.Send(postMsg{fn: fn})
	}
}
