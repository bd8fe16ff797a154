package app

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/calcwidget/calcwidget/internal/anim"
	"github.com/calcwidget/calcwidget/internal/clipboard"
	prefstore "github.com/calcwidget/calcwidget/internal/prefs"
	"github.com/calcwidget/calcwidget/internal/protocol"
	"github.com/calcwidget/calcwidget/internal/views/display"
	"github.com/calcwidget/calcwidget/internal/views/status"
	"github.com/calcwidget/calcwidget/internal/worker"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTransport struct {
	bytes.Buffer
}

func (f *fakeTransport) Next() (string, error) { return "", io.EOF }
func (f *fakeTransport) Close() error          { return nil }

type fakeTicks struct {
	fn        func(time.Time)
	cancelled int
}

func (f *fakeTicks) Every(_ time.Duration, fn func(time.Time)) anim.Task {
	f.fn = fn
	return anim.TaskFunc(func() { f.cancelled++ })
}

type harness struct {
	m      *Model
	tr     *fakeTransport
	clip   *clipboard.Memory
	store  prefstore.Memory
	ticks  *fakeTicks
	loaded []string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		tr:    &fakeTransport{},
		clip:  &clipboard.Memory{},
		store: prefstore.Memory{},
		ticks: &fakeTicks{},
	}
	h.m = New(Options{
		Transport:  h.tr,
		Prefs:      h.store,
		Clipboard:  h.clip,
		Ticks:      h.ticks,
		AboutStyle: "notty",
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	h.m.loadDisplay = func(path string) (*display.Bitmap, error) {
		h.loaded = append(h.loaded, path)
		return &display.Bitmap{W: display.PixelWidth, H: display.PixelHeight, Pix: make([]bool, display.PixelWidth*display.PixelHeight)}, nil
	}
	h.m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return h
}

func (h *harness) send(msg tea.Msg) tea.Cmd {
	_, cmd := h.m.Update(msg)
	return cmd
}

// written returns and clears everything sent to the worker.
func (h *harness) written() string {
	s := h.tr.String()
	h.tr.Reset()
	return s
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func click(x, y int, action tea.MouseAction) tea.MouseMsg {
	return tea.MouseMsg{X: x, Y: y, Action: action, Button: tea.MouseButtonLeft}
}

func TestKeyInputs(t *testing.T) {
	tests := []struct {
		name string
		msg  tea.KeyMsg
		want []int
	}{
		{"digit", runes("7"), []int{'7'}},
		{"upper case carries shift", runes("A"), []int{65 + 262144}},
		{"alt", tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'x'}, Alt: true}, []int{'x' + 131072}},
		{"ctrl letter", tea.KeyMsg{Type: tea.KeyCtrlA}, []int{'a' + 65536}},
		{"enter", tea.KeyMsg{Type: tea.KeyEnter}, []int{13}},
		{"backspace", tea.KeyMsg{Type: tea.KeyBackspace}, []int{8}},
		{"delete", tea.KeyMsg{Type: tea.KeyDelete}, []int{127}},
		{"escape", tea.KeyMsg{Type: tea.KeyEsc}, []int{27}},
		{"space", tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}, []int{32}},
		{"arrows", tea.KeyMsg{Type: tea.KeyLeft}, []int{63234}},
		{"shift tab", tea.KeyMsg{Type: tea.KeyShiftTab}, []int{9 + 262144}},
		{"several runes", runes("12"), []int{'1', '2'}},
		{"unmapped", tea.KeyMsg{Type: tea.KeyF7}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []int
			for _, in := range keyInputs(tt.msg) {
				code := in.code
				if in.mods.Ctrl {
					code += 65536
				}
				if in.mods.Alt {
					code += 131072
				}
				if in.mods.Shift {
					code += 262144
				}
				got = append(got, code)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestKeysReachWorker(t *testing.T) {
	h := newHarness(t)

	h.send(runes("A"))
	h.send(tea.KeyMsg{Type: tea.KeyEnter})
	h.send(tea.KeyMsg{Type: tea.KeyUp})
	assert.Equal(t, "K262209\nK13\nK63232\n", h.written())
}

func TestReservedKeysStayLocal(t *testing.T) {
	h := newHarness(t)

	cmd := h.send(tea.KeyMsg{Type: tea.KeyF10})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())

	h.send(tea.KeyMsg{Type: tea.KeyF2})
	assert.True(t, h.m.showDebug)
	h.send(runes("7"))
	h.send(tea.KeyMsg{Type: tea.KeyEsc})
	assert.False(t, h.m.showDebug)
	assert.Empty(t, h.written())
}

func TestKeypadPressAndRelease(t *testing.T) {
	h := newHarness(t)
	x, y := keypadLeft+2, keypadTop+5 // ENTER cap

	h.send(click(x, y, tea.MouseActionPress))
	assert.Equal(t, "C12\n", h.written())
	assert.Equal(t, "Images/d/12.gif", h.m.canvas.Image("12"))

	h.send(click(x, y, tea.MouseActionRelease))
	assert.Equal(t, "U12\n", h.written())
	assert.Equal(t, "Images/u/12.gif", h.m.canvas.Image("12"))
}

func TestDraggingOffKeyReleasesIt(t *testing.T) {
	h := newHarness(t)
	x, y := keypadLeft+8, keypadTop+7 // "7"

	h.send(click(x, y, tea.MouseActionPress))
	h.send(click(x+1, y, tea.MouseActionMotion))
	assert.Equal(t, "C18\n", h.written(), "moving within the key keeps it held")

	h.send(click(x, y-2, tea.MouseActionMotion)) // onto ENTER
	assert.Equal(t, "U18\n", h.written())

	h.send(click(x, y-2, tea.MouseActionRelease))
	assert.Empty(t, h.written(), "release after leaving must not send a second U")
}

func TestHoverFadesInfoButton(t *testing.T) {
	h := newHarness(t)

	h.send(click(1, 1, tea.MouseActionMotion))
	tr, ok := h.m.sched.Active()
	require.True(t, ok)
	assert.Equal(t, 1.0, tr.To)

	h.ticks.fn(time.Now().Add(time.Second))
	assert.Equal(t, 1.0, h.m.canvas.Opacity(display.InfoID))
	_, ok = h.m.sched.Active()
	assert.False(t, ok)

	h.send(click(faceWidth+3, 1, tea.MouseActionMotion))
	tr, ok = h.m.sched.Active()
	require.True(t, ok)
	assert.Equal(t, 1.0, tr.From)
	assert.Equal(t, 0.0, tr.To)

	// Losing focus while already outside starts nothing new.
	h.send(tea.BlurMsg{})
	assert.Equal(t, tr.ID, func() uint64 { a, _ := h.m.sched.Active(); return a.ID }())
}

func TestBlurReleasesHeldKey(t *testing.T) {
	h := newHarness(t)
	x, y := keypadLeft+2, keypadTop+1 // Σ+

	h.send(click(x, y, tea.MouseActionPress))
	h.send(tea.BlurMsg{})
	assert.Equal(t, "C0\nU0\n", h.written())
	tr, ok := h.m.sched.Active()
	require.True(t, ok)
	assert.Equal(t, 0.0, tr.To)
}

func TestWorkerLines(t *testing.T) {
	h := newHarness(t)

	cmd := h.send(worker.LineMsg{Line: "AAnnRAD"})
	assert.NotNil(t, cmd, "the read loop must be re-armed")
	assert.Equal(t, "Ok\n", h.written())
	assert.True(t, h.m.canvas.Shows("AnnRAD", "Images/AnnRAD.png"))
	assert.Contains(t, h.m.View(), "RAD")

	h.send(worker.LineMsg{Line: "d"})
	h.send(worker.LineMsg{Line: "d"})
	assert.Equal(t, []string{"display.gif?0", "display.gif?1"}, h.loaded)
	assert.Equal(t, uint64(2), h.m.statusBar.Redraws)

	h.send(worker.LineMsg{Line: "Z123"})
	assert.Equal(t, "Ok\nOk\nOk\n", h.written())
}

func TestDroppedWorkerMessage(t *testing.T) {
	h := newHarness(t)

	cmd := h.send(worker.DroppedMsg{Err: protocol.ErrMessageTooLong})
	assert.NotNil(t, cmd, "the read loop must be re-armed")
	assert.Equal(t, "Ok\n", h.written())
	assert.Empty(t, h.loaded)
	assert.Equal(t, status.StateRunning, h.m.statusBar.State)

	h.send(worker.LineMsg{Line: "d"})
	assert.Equal(t, "Ok\n", h.written())
	assert.Equal(t, uint64(1), h.m.statusBar.Redraws)
}

func TestDisplayLoadFailureKeepsRunning(t *testing.T) {
	h := newHarness(t)
	h.m.loadDisplay = func(string) (*display.Bitmap, error) { return nil, errors.New("corrupt") }

	h.send(worker.LineMsg{Line: "d"})
	assert.Equal(t, "Ok\n", h.written())
	assert.Contains(t, h.m.View(), "display unavailable")
}

func TestCopyAndPaste(t *testing.T) {
	h := newHarness(t)

	h.send(worker.LineMsg{Line: "x3.1416"})
	h.written()
	h.send(tea.KeyMsg{Type: tea.KeyF3})
	assert.Equal(t, "3.1416", h.clip.Text)
	assert.Empty(t, h.written(), "copy must not write to the worker")

	h.clip.Text = "a\r\nb"
	h.send(tea.KeyMsg{Type: tea.KeyF4})
	assert.Equal(t, "Pa\x1F\x1Eb\n", h.written())

	h.send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("12"), Paste: true})
	assert.Equal(t, "P12\n", h.written())
}

func TestPreferencePanel(t *testing.T) {
	h := newHarness(t)

	// Clicking the info button flips to the back panel.
	h.send(click(display.Width-1, 1, tea.MouseActionPress))
	require.True(t, h.m.flipped)

	h.send(tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})
	assert.Equal(t, "EinvSingular\n", h.written())
	assert.True(t, h.store["Free42-invSingular"])
	assert.Contains(t, h.m.View(), "[x] Inverting")

	h.send(tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})
	assert.Equal(t, "einvSingular\n", h.written())
	_, stored := h.store["Free42-invSingular"]
	assert.False(t, stored, "clearing removes the key")

	h.send(tea.KeyMsg{Type: tea.KeyF1})
	assert.False(t, h.m.flipped)
}

func TestStoredPreferencesShownAtStartup(t *testing.T) {
	store := prefstore.Memory{"Free42-matrixOverflow": true}
	m := New(Options{Transport: &fakeTransport{}, Prefs: store, AboutStyle: "notty"})
	assert.False(t, m.prefsPanel.Options[0].On)
	assert.True(t, m.prefsPanel.Options[1].On)
}

func TestPreferenceFileShownOnBackPanel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.toml")
	store, err := prefstore.Open(path)
	require.NoError(t, err)

	m := New(Options{Transport: &fakeTransport{}, Prefs: store, AboutStyle: "notty"})
	assert.Equal(t, path, m.prefsPanel.Location)

	m = New(Options{Transport: &fakeTransport{}, Prefs: prefstore.Memory{}, AboutStyle: "notty"})
	assert.Empty(t, m.prefsPanel.Location)
}

func TestWorkerExit(t *testing.T) {
	h := newHarness(t)

	cmd := h.send(worker.ExitMsg{Err: io.EOF})
	assert.Nil(t, cmd)
	assert.Equal(t, status.StateExited, h.m.statusBar.State)
	assert.False(t, h.m.Session().Active())

	h.send(runes("1"))
	h.send(click(keypadLeft+2, keypadTop+1, tea.MouseActionPress))
	assert.Empty(t, h.written())
	assert.Equal(t, "no active session", h.m.statusBar.Notice)
	assert.Contains(t, h.m.View(), "worker exited")
}

func TestNoWorker(t *testing.T) {
	m := New(Options{AboutStyle: "notty"})
	assert.Nil(t, m.Init())
	assert.Equal(t, status.StateUnavailable, m.statusBar.State)

	m.Update(runes("1"))
	assert.Equal(t, "no active session", m.statusBar.Notice)
}

func TestPostRunsOnLoop(t *testing.T) {
	h := newHarness(t)
	called := false
	h.send(postMsg{fn: func() { called = true }})
	assert.True(t, called)

	var l Loop
	l.Post(func() { t.Fatal("posted without a program") })
}

func TestView(t *testing.T) {
	m := New(Options{AboutStyle: "notty"})
	assert.Equal(t, "Initializing...", m.View())

	h := newHarness(t)
	v := h.m.View()
	for _, want := range []string{"ENTER", "R/S", "waiting for display", "f10:quit"} {
		assert.True(t, strings.Contains(v, want), "view missing %q", want)
	}
}

func TestCanvasClampsOpacity(t *testing.T) {
	c := NewCanvas()
	c.SetOpacity("flip", 1.5)
	assert.Equal(t, 1.0, c.Opacity("flip"))
	c.SetOpacity("flip", -1)
	assert.Equal(t, 0.0, c.Opacity("flip"))
	assert.Equal(t, 0.0, c.Opacity("other"))
}
