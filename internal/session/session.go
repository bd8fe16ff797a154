// Package session owns the connection to the calculator worker. It turns UI
// gestures into protocol commands, applies the worker's replies to the
// surface, and enforces the one-message-at-a-time handshake.
package session

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/calcwidget/calcwidget/internal/protocol"
	"github.com/google/uuid"
)

var (
	// ErrNoActiveSession is returned for every operation before a worker is
	// attached or after it has exited.
	ErrNoActiveSession = errors.New("session: no active session")
	// ErrProtocolOutOfOrder is returned when a write to the worker is
	// attempted while an inbound message is still awaiting its ack.
	ErrProtocolOutOfOrder = errors.New("session: write attempted before ack")
	// ErrInvalidOperand is returned for an id or key that cannot be sent on
	// one line.
	ErrInvalidOperand = errors.New("session: invalid operand")
)

// DisplayElement is the element id of the main display image.
const DisplayElement = "Display"

// PrefPrefix namespaces preference keys in the preference store.
const PrefPrefix = "Free42-"

// Surface is the renderable-surface collaborator.
type Surface interface {
	SetImageSource(elementID, path string)
	SetOpacity(elementID string, value float64)
}

// Preferences is the preference collaborator. A nil value removes the key.
type Preferences interface {
	GetBool(key string) bool
	SetBool(key string, value *bool) error
}

// Direction tags traffic passed to a Tracer.
type Direction string

const (
	DirOut Direction = "out"
	DirIn  Direction = "in"
	DirErr Direction = "err"
)

// Tracer observes protocol traffic, e.g. for a debug log.
type Tracer func(dir Direction, msg string)

// Session is the single connection to a worker process.
type Session struct {
	id      string
	w       io.Writer
	surface Surface
	prefs   Preferences
	assets  Assets
	log     *slog.Logger
	trace   Tracer

	lastSelectedValue string
	redrawToken       uint64
	awaitingAck       bool
	exited            bool
	exitErr           error
}

// Option configures a Session.
type Option func(*Session)

// WithAssets sets the image paths used for surface updates.
func WithAssets(a Assets) Option {
	return func(s *Session) { s.assets = a }
}

// WithLogger sets the logger; slog.Default is used otherwise.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.log = l
		}
	}
}

// WithTracer installs a traffic observer.
func WithTracer(t Tracer) Option {
	return func(s *Session) { s.trace = t }
}

// New creates a session writing to the worker's input w. A nil w yields a
// session that was never started: every operation reports
// ErrNoActiveSession.
func New(w io.Writer, surface Surface, prefs Preferences, opts ...Option) *Session {
	s := &Session{
		id:      uuid.NewString(),
		w:       w,
		surface: surface,
		prefs:   prefs,
		assets:  DefaultAssets(),
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With("session", s.id)
	return s
}

// ID identifies the session in logs.
func (s *Session) ID() string { return s.id }

// Active reports whether the session can still talk to its worker.
func (s *Session) Active() bool { return s.w != nil && !s.exited }

// ExitErr returns the error the worker exited with, if any.
func (s *Session) ExitErr() error { return s.exitErr }

// RedrawToken returns the current display cache-busting token.
func (s *Session) RedrawToken() uint64 { return s.redrawToken }

// AwaitingAck reports whether an inbound message is being handled.
func (s *Session) AwaitingAck() bool { return s.awaitingAck }

// OnKey sends a key press. Presses with meta held are dropped without error.
func (s *Session) OnKey(code int, mods protocol.Modifiers) error {
	if !s.Active() {
		return ErrNoActiveSession
	}
	ev, ok := protocol.ComposeKey(code, mods)
	if !ok {
		return nil
	}
	return s.send(ev)
}

// OnButtonPress shows the pressed image for button id and sends the press.
func (s *Session) OnButtonPress(id string) error {
	if err := s.checkButton(id); err != nil {
		return err
	}
	s.setImage(id, s.assets.PressedKey(id))
	return s.send(protocol.ButtonDown{ID: id})
}

// OnButtonRelease shows the released image for button id and sends the
// release.
func (s *Session) OnButtonRelease(id string) error {
	if err := s.checkButton(id); err != nil {
		return err
	}
	s.setImage(id, s.assets.ReleasedKey(id))
	return s.send(protocol.ButtonUp{ID: id})
}

// OnCopyRequest returns the value last published by the worker for the
// host clipboard. It does not write to the worker.
func (s *Session) OnCopyRequest() (string, error) {
	if !s.Active() {
		return "", ErrNoActiveSession
	}
	return s.lastSelectedValue, nil
}

// OnPasteRequest sends clipboard text to the worker.
func (s *Session) OnPasteRequest(text string) error {
	if !s.Active() {
		return ErrNoActiveSession
	}
	return s.send(protocol.ClipboardPaste{Text: text})
}

// OnPreferenceToggle persists a preference and forwards it to the worker.
func (s *Session) OnPreferenceToggle(key string, value bool) error {
	if !s.Active() {
		return ErrNoActiveSession
	}
	if key == "" || strings.ContainsAny(key, "\r\n") {
		return fmt.Errorf("%w: preference %q", ErrInvalidOperand, key)
	}
	if s.awaitingAck {
		return ErrProtocolOutOfOrder
	}
	if s.prefs != nil {
		var stored *bool
		if value {
			stored = &value
		}
		if err := s.prefs.SetBool(PrefPrefix+key, stored); err != nil {
			s.log.Warn("failed to persist preference", "key", key, "error", err)
		}
	}
	return s.send(protocol.PreferenceSet{Key: key, Value: value})
}

// StoredPreferences reads the saved state of each key so the preference
// panel can show it. Nothing is sent: the worker keeps its own copy of these
// settings in its state file.
func (s *Session) StoredPreferences(keys ...string) map[string]bool {
	out := make(map[string]bool, len(keys))
	for _, key := range keys {
		out[key] = s.prefs != nil && s.prefs.GetBool(PrefPrefix+key)
	}
	return out
}

// OnWorkerLine handles one inbound message and acknowledges it. Malformed
// lines are logged, acknowledged, and returned as protocol.Ignored.
func (s *Session) OnWorkerLine(line string) (protocol.Inbound, error) {
	if !s.Active() {
		return nil, ErrNoActiveSession
	}
	if s.awaitingAck {
		return nil, ErrProtocolOutOfOrder
	}
	s.traceMsg(DirIn, line)

	s.awaitingAck = true
	cmd, err := protocol.Decode(line)
	if err != nil {
		s.log.Debug("ignoring worker line", "line", line, "error", err)
		s.traceMsg(DirErr, err.Error())
	}
	s.apply(cmd)
	s.awaitingAck = false

	if err := s.write(protocol.Ack); err != nil {
		return cmd, err
	}
	return cmd, nil
}

// OnUnreadableMessage acknowledges a worker message that was dropped before
// it could be decoded.
func (s *Session) OnUnreadableMessage(err error) error {
	if !s.Active() {
		return ErrNoActiveSession
	}
	if s.awaitingAck {
		return ErrProtocolOutOfOrder
	}
	s.log.Warn("dropping unreadable worker message", "error", err)
	s.traceMsg(DirErr, err.Error())
	return s.write(protocol.Ack)
}

// OnWorkerExit moves the session to its terminal state. There is no restart.
func (s *Session) OnWorkerExit(err error) {
	if s.exited {
		return
	}
	s.exited = true
	s.awaitingAck = false
	if err != nil && !errors.Is(err, io.EOF) {
		s.exitErr = err
	}
	s.log.Info("worker exited", "error", err, "redraws", s.redrawToken)
}

func (s *Session) apply(cmd protocol.Inbound) {
	switch c := cmd.(type) {
	case protocol.RedrawDisplay:
		s.setImage(DisplayElement, s.assets.Display+"?"+strconv.FormatUint(s.redrawToken, 10))
		s.redrawToken++
	case protocol.ShowAnnunciator:
		s.setImage(c.ID, s.assets.Annunciator(c.ID))
	case protocol.HideAnnunciator:
		s.setImage(c.ID, s.assets.BlankAnnunciator())
	case protocol.SetClipboardRegister:
		s.lastSelectedValue = c.Value
	case protocol.Ignored:
	}
}

func (s *Session) checkButton(id string) error {
	if !s.Active() {
		return ErrNoActiveSession
	}
	if id == "" || strings.ContainsAny(id, "\r\n") {
		return fmt.Errorf("%w: button %q", ErrInvalidOperand, id)
	}
	if s.awaitingAck {
		return ErrProtocolOutOfOrder
	}
	return nil
}

func (s *Session) setImage(id, path string) {
	if s.surface != nil {
		s.surface.SetImageSource(id, path)
	}
}

func (s *Session) send(cmd protocol.Outbound) error {
	if !s.Active() {
		return ErrNoActiveSession
	}
	if s.awaitingAck {
		return ErrProtocolOutOfOrder
	}
	b, err := protocol.Encode(cmd)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidOperand, err)
	}
	s.traceMsg(DirOut, strings.TrimSuffix(string(b), "\n"))
	return s.write(b)
}

func (s *Session) write(b []byte) error {
	if _, err := s.w.Write(b); err != nil {
		s.log.Warn("write to worker failed", "error", err)
		s.traceMsg(DirErr, err.Error())
		return fmt.Errorf("write to worker: %w", err)
	}
	return nil
}

func (s *Session) traceMsg(dir Direction, msg string) {
	if s.trace != nil {
		s.trace(dir, msg)
	}
}
