package worker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"sync"

	"github.com/calcwidget/calcwidget/internal/protocol"
)

// Command describes how to launch a worker process.
type Command struct {
	Path string
	Args []string
	Dir  string
	Env  []string
}

// Process is a worker running as a child process.
type Process struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	reader *protocol.Reader

	mu      sync.Mutex
	closed  bool
	done    chan struct{}
	waitErr error
}

// Start launches the worker. The process is killed when ctx is cancelled.
func Start(ctx context.Context, c Command) (*Process, error) {
	if c.Path == "" {
		return nil, errors.New("worker: no command configured")
	}
	cmd := exec.CommandContext(ctx, c.Path, c.Args...)
	cmd.Dir = c.Dir
	if len(c.Env) > 0 {
		cmd.Env = append(cmd.Environ(), c.Env...)
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("worker stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("worker stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting worker %s: %w", c.Path, err)
	}
	slog.Info("worker started", "path", c.Path, "pid", cmd.Process.Pid, "dir", c.Dir)

	return &Process{
		cmd:    cmd,
		stdin:  stdin,
		reader: protocol.NewReader(stdout),
		done:   make(chan struct{}),
	}, nil
}

// Pid returns the worker's process id.
func (p *Process) Pid() int {
	if p.cmd.Process == nil {
		return 0
	}
	return p.cmd.Process.Pid
}

// Write sends raw protocol bytes to the worker's stdin.
func (p *Process) Write(b []byte) (int, error) {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return 0, ErrClosed
	}
	return p.stdin.Write(b)
}

// Next returns the next message from the worker's stdout. An oversized
// message is returned as protocol.ErrMessageTooLong and the stream stays
// usable. When stdout ends the process is reaped and its exit status
// returned; a clean exit yields io.EOF. Any other read failure kills the
// worker first.
func (p *Process) Next() (string, error) {
	msg, err := p.reader.Next()
	switch {
	case err == nil:
		return msg, nil
	case errors.Is(err, protocol.ErrMessageTooLong):
		return "", err
	case errors.Is(err, io.EOF):
		if waitErr := p.wait(); waitErr != nil {
			return "", waitErr
		}
		return "", io.EOF
	}

	slog.Warn("worker output unreadable, stopping worker", "pid", p.Pid(), "error", err)
	if p.cmd.Process != nil {
		_ = p.cmd.Process.Kill()
	}
	_ = p.wait()
	return "", fmt.Errorf("reading worker output: %w", err)
}

func (p *Process) wait() error {
	select {
	case <-p.done:
	default:
		p.waitErr = p.cmd.Wait()
		close(p.done)
	}
	return p.waitErr
}

// Close closes stdin, which the worker treats as end of input, and kills the
// process if it is still running.
func (p *Process) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	err := p.stdin.Close()
	select {
	case <-p.done:
	default:
		if p.cmd.Process != nil {
			_ = p.cmd.Process.Kill()
		}
	}
	return err
}
