// Package protocol implements the line protocol spoken with the calculator
// worker. Every message is one line: a one-letter tag followed by an optional
// operand. Outbound commands are encoded by Encode, inbound ones decoded by
// Decode, and every inbound message is answered with Ack.
package protocol

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Outbound tags.
const (
	TagKey         = 'K'
	TagButtonDown  = 'C'
	TagButtonUp    = 'U'
	TagPaste       = 'P'
	TagPrefEnable  = 'E'
	TagPrefDisable = 'e'
)

// Inbound tags.
const (
	TagRedraw          = 'd'
	TagShowAnnunciator = 'A'
	TagHideAnnunciator = 'a'
	TagClipboard       = 'x'
)

// Ack is written back after every inbound message.
var Ack = []byte("Ok\n")

// Paste payloads travel on a single line: CR and LF are swapped for the ASCII
// unit and record separators and swapped back by the worker.
const (
	PasteCR = '\x1f'
	PasteLF = '\x1e'
)

var (
	// ErrMalformedLine marks an inbound line that is empty or carries an
	// unknown tag.
	ErrMalformedLine = errors.New("protocol: malformed line")
	// ErrEmbeddedNewline marks an operand that would break line framing.
	ErrEmbeddedNewline = errors.New("protocol: operand contains a line terminator")
)

// Key modifier bits, added to the character code. The ranges are disjoint so
// a composed code never overflows into another modifier.
const (
	CtrlBit  = 1 << 16 // 65536
	AltBit   = 1 << 17 // 131072
	ShiftBit = 1 << 18 // 262144
)

// Modifiers are the modifier keys held during a key press.
type Modifiers struct {
	Ctrl  bool
	Alt   bool
	Shift bool
	Meta  bool
}

// ComposeKey builds the key event for a character code. Meta combinations
// are reserved by the host and report ok=false: nothing is sent for them.
func ComposeKey(code int, mods Modifiers) (ev KeyEvent, ok bool) {
	if mods.Meta {
		return KeyEvent{}, false
	}
	if mods.Ctrl {
		code += CtrlBit
	}
	if mods.Alt {
		code += AltBit
	}
	if mods.Shift {
		code += ShiftBit
	}
	return KeyEvent{Code: code}, true
}

// EscapePaste maps CR to PasteCR and LF to PasteLF.
func EscapePaste(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '\r':
			return PasteCR
		case '\n':
			return PasteLF
		}
		return r
	}, s)
}

// UnescapePaste reverses EscapePaste.
func UnescapePaste(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case PasteCR:
			return '\r'
		case PasteLF:
			return '\n'
		}
		return r
	}, s)
}

// Outbound is a command from the UI to the worker.
type Outbound interface {
	outbound()
}

// KeyEvent is a key press with a composed code.
type KeyEvent struct{ Code int }

// ButtonDown is a keypad button being pressed.
type ButtonDown struct{ ID string }

// ButtonUp is a keypad button being released.
type ButtonUp struct{ ID string }

// ClipboardPaste carries raw clipboard text; Encode escapes it.
type ClipboardPaste struct{ Text string }

// PreferenceSet turns a worker preference on or off.
type PreferenceSet struct {
	Key   string
	Value bool
}

func (KeyEvent) outbound()       {}
func (ButtonDown) outbound()     {}
func (ButtonUp) outbound()       {}
func (ClipboardPaste) outbound() {}
func (PreferenceSet) outbound()  {}

// Encode renders cmd as a single LF-terminated line.
func Encode(cmd Outbound) ([]byte, error) {
	var tag byte
	var operand string

	switch c := cmd.(type) {
	case KeyEvent:
		tag, operand = TagKey, strconv.Itoa(c.Code)
	case ButtonDown:
		tag, operand = TagButtonDown, c.ID
	case ButtonUp:
		tag, operand = TagButtonUp, c.ID
	case ClipboardPaste:
		tag, operand = TagPaste, EscapePaste(c.Text)
	case PreferenceSet:
		tag, operand = TagPrefDisable, c.Key
		if c.Value {
			tag = TagPrefEnable
		}
	default:
		return nil, fmt.Errorf("protocol: cannot encode %T", cmd)
	}

	if strings.ContainsAny(operand, "\r\n") {
		return nil, fmt.Errorf("%w: %c%q", ErrEmbeddedNewline, tag, operand)
	}

	b := make([]byte, 0, len(operand)+2)
	b = append(b, tag)
	b = append(b, operand...)
	return append(b, '\n'), nil
}

// Inbound is a command from the worker to the UI.
type Inbound interface {
	inbound()
}

// RedrawDisplay asks for the display image to be reloaded.
type RedrawDisplay struct{}

// ShowAnnunciator lights the named annunciator.
type ShowAnnunciator struct{ ID string }

// HideAnnunciator blanks the named annunciator.
type HideAnnunciator struct{ ID string }

// SetClipboardRegister records the value a copy should yield.
type SetClipboardRegister struct{ Value string }

// Ignored is the decode result for lines that carry no action.
type Ignored struct{ Line string }

func (RedrawDisplay) inbound()        {}
func (ShowAnnunciator) inbound()      {}
func (HideAnnunciator) inbound()      {}
func (SetClipboardRegister) inbound() {}
func (Ignored) inbound()              {}

// Decode parses one inbound line (without its terminator). It always returns
// a non-nil command; empty lines and unknown tags decode to Ignored together
// with an error wrapping ErrMalformedLine.
func Decode(line string) (Inbound, error) {
	if line == "" {
		return Ignored{}, fmt.Errorf("%w: empty", ErrMalformedLine)
	}

	operand := line[1:]
	switch line[0] {
	case TagRedraw:
		return RedrawDisplay{}, nil
	case TagShowAnnunciator:
		return ShowAnnunciator{ID: operand}, nil
	case TagHideAnnunciator:
		return HideAnnunciator{ID: operand}, nil
	case TagClipboard:
		return SetClipboardRegister{Value: operand}, nil
	default:
		return Ignored{Line: line}, fmt.Errorf("%w: unknown tag %q", ErrMalformedLine, line[0])
	}
}
