package anim

import (
	"context"
	"time"
)

// TaskFunc adapts a cancel function to Task.
type TaskFunc func()

// Cancel calls f.
func (f TaskFunc) Cancel() { f() }

// LoopTicks runs a time.Ticker on its own goroutine and hands every tick to
// Post, which must run the callback on the owner's event loop.
type LoopTicks struct {
	Post func(fn func())
}

// Every implements TickSource.
func (l LoopTicks) Every(period time.Duration, fn func(now time.Time)) Task {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		ticker := time.NewTicker(period)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				l.Post(func() { fn(now) })
			}
		}
	}()
	return TaskFunc(cancel)
}
