package session

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/calcwidget/calcwidget/internal/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSurface struct {
	images  map[string]string
	opacity map[string]float64
	onImage func(id, path string)
}

func newSurface() *fakeSurface {
	return &fakeSurface{images: map[string]string{}, opacity: map[string]float64{}}
}

func (f *fakeSurface) SetImageSource(id, path string) {
	f.images[id] = path
	if f.onImage != nil {
		f.onImage(id, path)
	}
}

func (f *fakeSurface) SetOpacity(id string, v float64) { f.opacity[id] = v }

type fakePrefs struct {
	values map[string]bool
	err    error
}

func (p *fakePrefs) GetBool(key string) bool { return p.values[key] }

func (p *fakePrefs) SetBool(key string, v *bool) error {
	if p.err != nil {
		return p.err
	}
	if v == nil {
		delete(p.values, key)
		return nil
	}
	p.values[key] = *v
	return nil
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, io.ErrClosedPipe }

func newTestSession() (*Session, *bytes.Buffer, *fakeSurface, *fakePrefs) {
	var buf bytes.Buffer
	surface := newSurface()
	prefs := &fakePrefs{values: map[string]bool{}}
	return New(&buf, surface, prefs), &buf, surface, prefs
}

func TestOnKey(t *testing.T) {
	s, buf, _, _ := newTestSession()

	require.NoError(t, s.OnKey(65, protocol.Modifiers{Shift: true}))
	assert.Equal(t, "K262209\n", buf.String())

	buf.Reset()
	require.NoError(t, s.OnKey(65, protocol.Modifiers{Meta: true}))
	assert.Empty(t, buf.String(), "meta press must not be sent")
}

func TestButtonPressRelease(t *testing.T) {
	s, buf, surface, _ := newTestSession()

	require.NoError(t, s.OnButtonPress("12"))
	assert.Equal(t, "Images/d/12.gif", surface.images["12"])
	assert.Equal(t, "C12\n", buf.String())

	buf.Reset()
	require.NoError(t, s.OnButtonRelease("12"))
	assert.Equal(t, "Images/u/12.gif", surface.images["12"])
	assert.Equal(t, "U12\n", buf.String())
}

func TestButtonRejectsBadID(t *testing.T) {
	s, buf, surface, _ := newTestSession()
	for _, id := range []string{"", "1\n2"} {
		assert.ErrorIs(t, s.OnButtonPress(id), ErrInvalidOperand)
	}
	assert.Empty(t, buf.String())
	assert.Empty(t, surface.images)
}

func TestPaste(t *testing.T) {
	s, buf, _, _ := newTestSession()
	require.NoError(t, s.OnPasteRequest("a\r\nb"))
	assert.Equal(t, "Pa\x1f\x1eb\n", buf.String())
}

func TestCopyReturnsClipboardRegister(t *testing.T) {
	s, buf, _, _ := newTestSession()

	got, err := s.OnCopyRequest()
	require.NoError(t, err)
	assert.Equal(t, "", got)

	_, err = s.OnWorkerLine("x1.41421356")
	require.NoError(t, err)
	buf.Reset()

	got, err = s.OnCopyRequest()
	require.NoError(t, err)
	assert.Equal(t, "1.41421356", got)
	assert.Empty(t, buf.String(), "copy must not write to the worker")
}

func TestPreferenceToggle(t *testing.T) {
	s, buf, _, prefs := newTestSession()

	require.NoError(t, s.OnPreferenceToggle("invSingular", true))
	assert.Equal(t, "EinvSingular\n", buf.String())
	assert.True(t, prefs.values["Free42-invSingular"])

	buf.Reset()
	require.NoError(t, s.OnPreferenceToggle("invSingular", false))
	assert.Equal(t, "einvSingular\n", buf.String())
	_, present := prefs.values["Free42-invSingular"]
	assert.False(t, present, "cleared preference should be removed")
}

func TestPreferencePersistFailureStillSends(t *testing.T) {
	s, buf, _, prefs := newTestSession()
	prefs.err = errors.New("disk full")
	require.NoError(t, s.OnPreferenceToggle("matrixOverflow", true))
	assert.Equal(t, "EmatrixOverflow\n", buf.String())
}

func TestStoredPreferences(t *testing.T) {
	s, buf, _, prefs := newTestSession()
	prefs.values["Free42-matrixOverflow"] = true

	got := s.StoredPreferences(PreferenceKeys...)
	assert.Equal(t, map[string]bool{"invSingular": false, "matrixOverflow": true}, got)
	assert.Empty(t, buf.String(), "restoring must not write to the worker")

	never := New(nil, nil, nil)
	assert.Equal(t, map[string]bool{"invSingular": false}, never.StoredPreferences("invSingular"))
}

func TestWorkerLines(t *testing.T) {
	s, buf, surface, _ := newTestSession()

	cmd, err := s.OnWorkerLine("Ax7")
	require.NoError(t, err)
	assert.Equal(t, protocol.ShowAnnunciator{ID: "x7"}, cmd)
	assert.Equal(t, "Images/x7.png", surface.images["x7"])
	assert.Equal(t, "Ok\n", buf.String())

	buf.Reset()
	_, err = s.OnWorkerLine("ax7")
	require.NoError(t, err)
	assert.Equal(t, "Images/BlankAnn.png", surface.images["x7"])
	assert.Equal(t, "Ok\n", buf.String())
}

func TestRedrawTokenMonotonic(t *testing.T) {
	s, _, surface, _ := newTestSession()

	for i := 0; i < 3; i++ {
		_, err := s.OnWorkerLine("d")
		require.NoError(t, err)
	}
	assert.Equal(t, uint64(3), s.RedrawToken())
	assert.Equal(t, "display.gif?2", surface.images[DisplayElement])
}

func TestMalformedLinesAcknowledged(t *testing.T) {
	s, buf, surface, _ := newTestSession()

	for _, line := range []string{"", "Z123"} {
		buf.Reset()
		cmd, err := s.OnWorkerLine(line)
		require.NoError(t, err, "line %q", line)
		assert.IsType(t, protocol.Ignored{}, cmd)
		assert.Equal(t, "Ok\n", buf.String())
	}
	assert.Empty(t, surface.images)
	assert.True(t, s.Active())
}

func TestUnreadableMessageAcknowledged(t *testing.T) {
	s, buf, surface, _ := newTestSession()

	require.NoError(t, s.OnUnreadableMessage(protocol.ErrMessageTooLong))
	assert.Equal(t, "Ok\n", buf.String())
	assert.Empty(t, surface.images)
	assert.True(t, s.Active())

	s.OnWorkerExit(io.EOF)
	assert.ErrorIs(t, s.OnUnreadableMessage(protocol.ErrMessageTooLong), ErrNoActiveSession)
}

func TestWriteDuringInboundRejected(t *testing.T) {
	s, buf, surface, _ := newTestSession()

	var reentrant error
	surface.onImage = func(string, string) {
		reentrant = s.OnKey(65, protocol.Modifiers{})
	}

	_, err := s.OnWorkerLine("AAnnShift")
	require.NoError(t, err)
	assert.ErrorIs(t, reentrant, ErrProtocolOutOfOrder)
	assert.Equal(t, "Ok\n", buf.String(), "only the ack may be written")
	assert.False(t, s.AwaitingAck())
}

func TestNoActiveSessionAfterExit(t *testing.T) {
	s, buf, surface, prefs := newTestSession()
	s.OnWorkerExit(io.EOF)

	assert.False(t, s.Active())
	assert.NoError(t, s.ExitErr())
	assert.ErrorIs(t, s.OnKey(65, protocol.Modifiers{}), ErrNoActiveSession)
	assert.ErrorIs(t, s.OnButtonPress("1"), ErrNoActiveSession)
	assert.ErrorIs(t, s.OnButtonRelease("1"), ErrNoActiveSession)
	assert.ErrorIs(t, s.OnPasteRequest("x"), ErrNoActiveSession)
	assert.ErrorIs(t, s.OnPreferenceToggle("invSingular", true), ErrNoActiveSession)
	_, err := s.OnCopyRequest()
	assert.ErrorIs(t, err, ErrNoActiveSession)
	_, err = s.OnWorkerLine("d")
	assert.ErrorIs(t, err, ErrNoActiveSession)

	assert.Empty(t, buf.String())
	assert.Empty(t, surface.images)
	assert.Empty(t, prefs.values)
}

func TestExitErrorRecorded(t *testing.T) {
	s, _, _, _ := newTestSession()
	boom := errors.New("signal: killed")
	s.OnWorkerExit(boom)
	s.OnWorkerExit(nil)
	assert.Equal(t, boom, s.ExitErr())
}

func TestNeverStarted(t *testing.T) {
	s := New(nil, newSurface(), nil)
	assert.False(t, s.Active())
	assert.ErrorIs(t, s.OnKey(65, protocol.Modifiers{}), ErrNoActiveSession)
}

func TestWriteFailureKeepsSession(t *testing.T) {
	s := New(failingWriter{}, newSurface(), nil)
	err := s.OnKey(65, protocol.Modifiers{})
	assert.ErrorIs(t, err, io.ErrClosedPipe)
	assert.True(t, s.Active())
}

func TestTracer(t *testing.T) {
	var got []string
	var buf bytes.Buffer
	s := New(&buf, newSurface(), nil, WithTracer(func(dir Direction, msg string) {
		got = append(got, string(dir)+":"+msg)
	}))

	require.NoError(t, s.OnKey(49, protocol.Modifiers{}))
	_, _ = s.OnWorkerLine("Q")
	assert.Equal(t, []string{"out:K49", "in:Q", `err:protocol: malformed line: unknown tag 'Q'`}, got)
}
