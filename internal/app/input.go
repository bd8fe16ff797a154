package app

import (
	"unicode"

	"github.com/calcwidget/calcwidget/internal/protocol"
	tea "github.com/charmbracelet/bubbletea"
)

// Codes the host platform reports for the arrow keys.
const (
	codeUp    = 63232
	codeDown  = 63233
	codeLeft  = 63234
	codeRight = 63235
)

// keyInput is one key press as the worker sees it: a character code plus
// modifiers.
type keyInput struct {
	code int
	mods protocol.Modifiers
}

// keyInputs translates a terminal key event into calculator key presses.
// Keys the calculator has no use for yield nothing.
func keyInputs(msg tea.KeyMsg) []keyInput {
	mods := protocol.Modifiers{Alt: msg.Alt}
	one := func(code int) []keyInput {
		return []keyInput{{code: code, mods: mods}}
	}

	switch msg.Type {
	case tea.KeyRunes:
		out := make([]keyInput, 0, len(msg.Runes))
		for _, r := range msg.Runes {
			m := mods
			m.Shift = unicode.IsUpper(r)
			out = append(out, keyInput{code: int(r), mods: m})
		}
		return out
	case tea.KeySpace:
		return one(' ')
	case tea.KeyEnter:
		return one(13)
	case tea.KeyBackspace:
		return one(8)
	case tea.KeyTab:
		return one(9)
	case tea.KeyShiftTab:
		mods.Shift = true
		return one(9)
	case tea.KeyEsc:
		return one(27)
	case tea.KeyDelete:
		return one(127)
	case tea.KeyUp:
		return one(codeUp)
	case tea.KeyDown:
		return one(codeDown)
	case tea.KeyLeft:
		return one(codeLeft)
	case tea.KeyRight:
		return one(codeRight)
	}

	if msg.Type >= tea.KeyCtrlA && msg.Type <= tea.KeyCtrlZ {
		mods.Ctrl = true
		return one('a' + int(msg.Type-tea.KeyCtrlA))
	}
	return nil
}
