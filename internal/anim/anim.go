// Package anim runs property transitions (opacity fades) on a renderable
// surface. A Scheduler owns at most one live transition and one live tick
// task; starting a new transition cancels the old task first and continues
// from the value the old transition last applied.
//
// The Scheduler is not safe for concurrent use. Ticks must be delivered on the
// same event loop that calls Start, which is what LoopTicks arranges.
package anim

import (
	"errors"
	"fmt"
	"time"

	"github.com/calcwidget/calcwidget/internal/ease"
)

const (
	// DefaultDuration is the length of a hover fade.
	DefaultDuration = 500 * time.Millisecond
	// DefaultTick approximates 75 Hz without flooding the host.
	DefaultTick = 13 * time.Millisecond
)

var (
	// ErrInvalidDuration is returned for a non-positive transition duration.
	ErrInvalidDuration = errors.New("anim: duration must be positive")
	// ErrOutOfRange is returned for a target value outside [0, 1].
	ErrOutOfRange = errors.New("anim: value must be within [0, 1]")
)

// Opacity is the part of the surface collaborator a transition drives.
type Opacity interface {
	SetOpacity(elementID string, value float64)
}

// Target names the element whose opacity is animated.
type Target struct {
	Surface Opacity
	ID      string
}

func (t Target) apply(v float64) {
	if t.Surface != nil {
		t.Surface.SetOpacity(t.ID, v)
	}
}

// Task is a cancellable periodic schedule.
type Task interface {
	Cancel()
}

// TickSource registers fn to be called every period until the returned Task
// is cancelled.
type TickSource interface {
	Every(period time.Duration, fn func(now time.Time)) Task
}

// Transition is a snapshot of the animation in flight.
type Transition struct {
	ID       uint64
	Target   Target
	Start    time.Time
	Duration time.Duration
	From     float64
	To       float64
	Current  float64
}

// Scheduler drives a single transition at a time.
type Scheduler struct {
	ticks  TickSource
	curve  ease.Curve
	period time.Duration
	now    func() time.Time

	seq     uint64
	active  *Transition
	task    Task
	resting map[string]float64
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithCurve replaces the cosine ease curve.
func WithCurve(c ease.Curve) Option {
	return func(s *Scheduler) {
		if c != nil {
			s.curve = c
		}
	}
}

// WithTick sets the tick period.
func WithTick(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.period = d
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
	}
}

// NewScheduler creates a scheduler that registers its ticks with ticks. With
// a nil TickSource every transition jumps straight to its end value.
func NewScheduler(ticks TickSource, opts ...Option) *Scheduler {
	s := &Scheduler{
		ticks:   ticks,
		curve:   ease.CurveFunc(ease.Cosine),
		period:  DefaultTick,
		now:     time.Now,
		resting: make(map[string]float64),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Value returns the last value applied to the element.
func (s *Scheduler) Value(id string) float64 {
	if s.active != nil && s.active.Target.ID == id {
		return s.active.Current
	}
	return s.resting[id]
}

// Active reports the transition in flight, if any.
func (s *Scheduler) Active() (Transition, bool) {
	if s.active == nil {
		return Transition{}, false
	}
	return *s.active, true
}

// Start begins a transition of target towards to over duration. Any
// transition in flight is cancelled and the new one starts from the value it
// last applied, even when it was driving a different element. With nothing in
// flight the transition starts from target's resting value.
func (s *Scheduler) Start(target Target, to float64, duration time.Duration) error {
	if duration <= 0 {
		return fmt.Errorf("%w: %v", ErrInvalidDuration, duration)
	}
	if to < 0 || to > 1 {
		return fmt.Errorf("%w: %v", ErrOutOfRange, to)
	}

	from := s.resting[target.ID]
	if s.active != nil {
		from = s.active.Current
	}
	s.cancel()

	s.seq++
	tr := &Transition{
		ID:       s.seq,
		Target:   target,
		Duration: duration,
		From:     from,
		To:       to,
		// Backdate by one tick so the first sample already moves.
		Start: s.now().Add(-s.period),
	}
	tr.Current = tr.From
	s.active = tr

	id := tr.ID
	if s.ticks == nil {
		s.advance(id, tr.Start.Add(duration))
		return nil
	}
	s.task = s.ticks.Every(s.period, func(now time.Time) {
		s.advance(id, now)
	})
	s.advance(id, s.now())
	return nil
}

// cancel stops the live task and freezes the in-flight value as the
// element's resting value.
func (s *Scheduler) cancel() {
	if s.task != nil {
		s.task.Cancel()
		s.task = nil
	}
	if s.active != nil {
		s.resting[s.active.Target.ID] = s.active.Current
		s.active = nil
	}
}

// advance samples transition id at now. Ticks for a replaced transition are
// dropped; a cancelled task may still have one tick queued on the loop.
func (s *Scheduler) advance(id uint64, now time.Time) {
	tr := s.active
	if tr == nil || tr.ID != id {
		return
	}

	elapsed := now.Sub(tr.Start)
	if elapsed < 0 {
		elapsed = 0
	}
	if elapsed >= tr.Duration {
		tr.Current = tr.To
		tr.Target.apply(tr.Current)
		s.cancel()
		return
	}

	t := s.curve.At(elapsed, tr.Duration)
	tr.Current = ease.Interpolate(tr.From, tr.To, t)
	tr.Target.apply(tr.Current)
}
