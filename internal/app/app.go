// Package app is the Bubble Tea host for the calculator: it plays the part of
// the widget shell, feeding keyboard, pointer and clipboard gestures into the
// session and rendering what the session puts on the canvas.
package app

import (
	"errors"
	"log/slog"
	"time"

	"github.com/calcwidget/calcwidget/internal/anim"
	"github.com/calcwidget/calcwidget/internal/clipboard"
	"github.com/calcwidget/calcwidget/internal/ease"
	"github.com/calcwidget/calcwidget/internal/protocol"
	"github.com/calcwidget/calcwidget/internal/session"
	"github.com/calcwidget/calcwidget/internal/theme"
	"github.com/calcwidget/calcwidget/internal/views/debug"
	"github.com/calcwidget/calcwidget/internal/views/display"
	"github.com/calcwidget/calcwidget/internal/views/keypad"
	"github.com/calcwidget/calcwidget/internal/views/prefs"
	"github.com/calcwidget/calcwidget/internal/views/status"
	"github.com/calcwidget/calcwidget/internal/worker"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Face geometry, in cells from the top-left of View.
var (
	faceWidth  = display.Width + 2
	keypadTop  = display.Height() + 1
	keypadLeft = (faceWidth - 36) / 2
	faceHeight = keypadTop + len(keypad.Rows)*keypad.RowHeight
)

// Options wires the model to its collaborators.
type Options struct {
	Transport     worker.Transport // nil when no worker could be started
	Prefs         session.Preferences
	Clipboard     clipboard.Clipboard
	Assets        session.Assets
	Ticks         anim.TickSource
	Curve         ease.Curve
	Tick          time.Duration
	FadeDuration  time.Duration
	StatsInterval time.Duration
	Remote        string // bridge URL, shown in the status bar
	AboutStyle    string // glamour style for the back panel
	Logger        *slog.Logger
}

// Model is the root Bubble Tea model.
type Model struct {
	sess      *session.Session
	transport worker.Transport
	canvas    *Canvas
	sched     *anim.Scheduler
	clip      clipboard.Clipboard
	assets    session.Assets
	log       *slog.Logger

	keys          KeyMap
	width         int
	height        int
	fade          time.Duration
	statsInterval time.Duration

	flipped   bool
	showDebug bool
	hovering  bool
	pressed   string // key id held by the pointer

	bitmap      *display.Bitmap
	displayErr  error
	loadDisplay func(path string) (*display.Bitmap, error)

	statusBar  status.Model
	debugLog   debug.Model
	prefsPanel prefs.Model
}

// New creates the root model and the session it drives.
func New(opts Options) *Model {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	clip := opts.Clipboard
	if clip == nil {
		clip = &clipboard.Memory{}
	}
	if opts.Assets == (session.Assets{}) {
		opts.Assets = session.DefaultAssets()
	}
	if opts.FadeDuration <= 0 {
		opts.FadeDuration = anim.DefaultDuration
	}

	m := &Model{
		transport:     opts.Transport,
		canvas:        NewCanvas(),
		clip:          clip,
		assets:        opts.Assets,
		log:           log,
		keys:          DefaultKeyMap(),
		fade:          opts.FadeDuration,
		statsInterval: opts.StatsInterval,
		loadDisplay:   display.Load,
		statusBar:     status.New(),
		debugLog:      debug.New(),
		prefsPanel:    prefs.New(opts.AboutStyle),
	}

	m.sess = session.New(opts.Transport, m.canvas, opts.Prefs,
		session.WithAssets(opts.Assets),
		session.WithLogger(log),
		session.WithTracer(m.trace),
	)

	m.sched = anim.NewScheduler(opts.Ticks,
		anim.WithCurve(opts.Curve),
		anim.WithTick(opts.Tick),
	)

	if p, ok := opts.Prefs.(interface{ Path() string }); ok {
		m.prefsPanel.Location = p.Path()
	}
	for name, on := range m.sess.StoredPreferences(session.PreferenceKeys...) {
		m.prefsPanel.Set(name, on)
	}

	m.statusBar.Remote = opts.Remote
	if m.sess.Active() {
		m.statusBar.State = status.StateRunning
	} else {
		m.statusBar.State = status.StateUnavailable
	}
	return m
}

// Session exposes the controller, mainly for tests and shutdown.
func (m *Model) Session() *session.Session { return m.sess }

// Init starts reading from the worker and sampling its resource usage.
func (m *Model) Init() tea.Cmd {
	if !m.sess.Active() {
		return nil
	}
	cmds := []tea.Cmd{worker.ReadLoop(m.transport)}
	if cmd := m.sampleCmd(); cmd != nil {
		cmds = append(cmds, cmd)
	}
	return tea.Batch(cmds...)
}

func (m *Model) sampleCmd() tea.Cmd {
	id, ok := m.transport.(worker.Identified)
	if !ok || m.statsInterval <= 0 || !m.sess.Active() {
		return nil
	}
	return worker.SampleEvery(id.Pid(), m.statsInterval)
}

// Update handles messages.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.statusBar.Width = min(msg.Width, faceWidth) - 2
		m.prefsPanel.Width = faceWidth - 4
		return m, nil

	case postMsg:
		msg.fn()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		m.handleMouse(msg)
		return m, nil

	case tea.BlurMsg:
		m.leave()
		return m, nil

	case worker.LineMsg:
		m.handleLine(msg.Line)
		return m, worker.ReadLoop(m.transport)

	case worker.DroppedMsg:
		if err := m.sess.OnUnreadableMessage(msg.Err); err != nil {
			m.report("worker line", err)
		}
		m.debugLog.Add("sys", "dropped worker message")
		return m, worker.ReadLoop(m.transport)

	case worker.ExitMsg:
		m.sess.OnWorkerExit(msg.Err)
		m.pressed = ""
		m.statusBar.State = status.StateExited
		m.statusBar.ExitErr = m.sess.ExitErr()
		m.statusBar.Usage = nil
		m.debugLog.Add("sys", "worker exited")
		return m, nil

	case worker.UsageMsg:
		if msg.Err != nil {
			m.log.Debug("usage sample failed", "error", msg.Err)
			m.statusBar.Usage = nil
		} else {
			u := msg.Usage
			m.statusBar.Usage = &u
		}
		return m, m.sampleCmd()
	}

	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Paste {
		m.paste(string(msg.Runes))
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Debug):
		m.showDebug = !m.showDebug
		return m, nil
	}

	if m.showDebug {
		switch {
		case key.Matches(msg, m.keys.Escape):
			m.showDebug = false
		case key.Matches(msg, m.keys.Up):
			m.debugLog.ScrollUp(1)
		case key.Matches(msg, m.keys.Down):
			m.debugLog.ScrollDown(1)
		}
		return m, nil
	}

	if key.Matches(msg, m.keys.Flip) {
		m.flip(!m.flipped)
		return m, nil
	}

	if m.flipped {
		switch {
		case key.Matches(msg, m.keys.Escape):
			m.flip(false)
		case key.Matches(msg, m.keys.Up):
			m.prefsPanel.Up()
		case key.Matches(msg, m.keys.Down):
			m.prefsPanel.Down()
		case key.Matches(msg, m.keys.Toggle):
			m.togglePreference()
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Copy):
		m.copyX()
		return m, nil
	case key.Matches(msg, m.keys.Paste):
		text, err := m.clip.Read()
		if err != nil {
			m.report("read clipboard", err)
			return m, nil
		}
		m.paste(text)
		return m, nil
	}

	for _, in := range keyInputs(msg) {
		if err := m.sess.OnKey(in.code, in.mods); err != nil {
			m.report("key", err)
			break
		}
	}
	return m, nil
}

func (m *Model) handleMouse(msg tea.MouseMsg) {
	if m.showDebug {
		switch msg.Button {
		case tea.MouseButtonWheelUp:
			m.debugLog.ScrollUp(3)
		case tea.MouseButtonWheelDown:
			m.debugLog.ScrollDown(3)
		}
		return
	}
	if m.flipped {
		return
	}

	inFace := msg.X >= 0 && msg.X < faceWidth && msg.Y >= 0 && msg.Y < faceHeight
	switch {
	case inFace && !m.hovering:
		m.hovering = true
		m.fadeInfo(1)
	case !inFace && m.hovering:
		m.leave()
		return
	}

	id, onKey := keyAt(msg.X, msg.Y)
	switch msg.Action {
	case tea.MouseActionPress:
		if msg.Button != tea.MouseButtonLeft {
			return
		}
		if display.InfoHit(msg.X, msg.Y) {
			m.flip(true)
			return
		}
		if !onKey {
			return
		}
		m.release()
		if err := m.sess.OnButtonPress(id); err != nil {
			m.report("press", err)
			return
		}
		m.pressed = id
	case tea.MouseActionRelease:
		m.release()
	case tea.MouseActionMotion:
		// Dragging off a held key lets go of it.
		if m.pressed != "" && (!onKey || id != m.pressed) {
			m.release()
		}
	}
}

func keyAt(x, y int) (string, bool) {
	return keypad.Hit(x-keypadLeft, y-keypadTop)
}

// leave handles the pointer leaving the widget.
func (m *Model) leave() {
	m.release()
	if m.hovering {
		m.hovering = false
		m.fadeInfo(0)
	}
}

func (m *Model) release() {
	if m.pressed == "" {
		return
	}
	id := m.pressed
	m.pressed = ""
	if err := m.sess.OnButtonRelease(id); err != nil {
		m.report("release", err)
	}
}

func (m *Model) fadeInfo(to float64) {
	target := anim.Target{Surface: m.canvas, ID: display.InfoID}
	if err := m.sched.Start(target, to, m.fade); err != nil {
		m.log.Warn("info button fade", "error", err)
	}
}

func (m *Model) flip(back bool) {
	if back {
		m.release()
	}
	m.flipped = back
}

func (m *Model) togglePreference() {
	name, on, ok := m.prefsPanel.Toggle()
	if !ok {
		return
	}
	if err := m.sess.OnPreferenceToggle(name, on); err != nil {
		m.prefsPanel.Set(name, !on)
		m.report("preference", err)
	}
}

func (m *Model) copyX() {
	v, err := m.sess.OnCopyRequest()
	if err != nil {
		m.report("copy", err)
		return
	}
	if err := m.clip.Write(v); err != nil {
		m.report("write clipboard", err)
		return
	}
	m.statusBar.Notice = "copied " + v
}

func (m *Model) paste(text string) {
	if err := m.sess.OnPasteRequest(text); err != nil {
		m.report("paste", err)
	}
}

func (m *Model) handleLine(line string) {
	in, err := m.sess.OnWorkerLine(line)
	if err != nil {
		m.report("worker line", err)
	}
	switch c := in.(type) {
	case protocol.RedrawDisplay:
		m.refreshDisplay()
		m.statusBar.Redraws = m.sess.RedrawToken()
	case protocol.SetClipboardRegister:
		m.statusBar.XReg = c.Value
	}
}

func (m *Model) refreshDisplay() {
	bm, err := m.loadDisplay(m.canvas.Image(session.DisplayElement))
	if err != nil {
		if m.displayErr == nil {
			m.log.Warn("display image unreadable", "error", err)
		}
		m.displayErr = err
		return
	}
	m.bitmap, m.displayErr = bm, nil
}

// report logs a failed operation and surfaces it in the status bar.
func (m *Model) report(op string, err error) {
	switch {
	case errors.Is(err, session.ErrNoActiveSession):
		m.statusBar.Notice = "no active session"
	case errors.Is(err, session.ErrProtocolOutOfOrder):
		m.statusBar.Notice = "worker busy"
	default:
		m.statusBar.Notice = op + " failed"
	}
	m.log.Debug(op+" failed", "error", err)
}

func (m *Model) trace(dir session.Direction, text string) {
	m.debugLog.Add(string(dir), text)
}

// View renders the full TUI.
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}
	if m.showDebug {
		return m.debugLog.View(m.width, m.height)
	}

	var face string
	if m.flipped {
		face = m.prefsPanel.View()
	} else {
		face = m.front()
	}

	help := theme.StyleDimmed.Render("  f1:prefs  f2:log  f3:copy  f4:paste  f10:quit")
	return lipgloss.JoinVertical(lipgloss.Left, face, m.statusBar.View(), help)
}

func (m *Model) front() string {
	lit := make(map[string]bool, len(session.Annunciators))
	for _, id := range session.Annunciators {
		lit[id] = m.canvas.Shows(id, m.assets.Annunciator(id))
	}
	lcd := display.Model{
		Bitmap:       m.bitmap,
		Err:          m.displayErr,
		Annunciators: session.Annunciators,
		Lit:          lit,
		InfoOpacity:  m.canvas.Opacity(display.InfoID),
	}

	pressed := make(map[string]bool)
	for _, row := range keypad.Rows {
		for _, k := range row {
			if m.canvas.Shows(k.ID, m.assets.PressedKey(k.ID)) {
				pressed[k.ID] = true
			}
		}
	}
	keys := lipgloss.NewStyle().PaddingLeft(keypadLeft).Render(keypad.Model{Pressed: pressed}.View())

	return lipgloss.JoinVertical(lipgloss.Left, lcd.View(), "", keys)
}
