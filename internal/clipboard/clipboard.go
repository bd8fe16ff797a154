// Package clipboard provides the clipboard collaborator.
package clipboard

import "github.com/atotto/clipboard"

// Clipboard reads and writes plain text.
type Clipboard interface {
	Read() (string, error)
	Write(text string) error
}

// System uses the desktop clipboard (pbcopy, xclip/xsel, wl-clipboard or the
// Windows API, whichever is present).
type System struct{}

// Available reports whether a system clipboard tool was found.
func (System) Available() bool { return !clipboard.Unsupported }

// Read returns the clipboard text.
func (System) Read() (string, error) { return clipboard.ReadAll() }

// Write replaces the clipboard text.
func (System) Write(text string) error { return clipboard.WriteAll(text) }

// Memory is a process-local clipboard, used when no system clipboard exists.
type Memory struct{ Text string }

// Read returns the stored text.
func (m *Memory) Read() (string, error) { return m.Text, nil }

// Write stores text.
func (m *Memory) Write(text string) error {
	m.Text = text
	return nil
}

// Default picks the system clipboard when available.
func Default() Clipboard {
	if (System{}).Available() {
		return System{}
	}
	return &Memory{}
}
