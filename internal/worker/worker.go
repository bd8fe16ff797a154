// Package worker connects to the calculator worker, either as a child process
// speaking over stdio or through a websocket bridge, and exposes the
// connection as Bubble Tea commands.
package worker

import (
	"errors"
	"io"
)

// ErrClosed is returned by operations on a closed transport.
var ErrClosed = errors.New("worker: transport closed")

// Transport is a live connection to a worker.
type Transport interface {
	io.Writer
	// Next blocks until the next inbound message. It returns io.EOF once the
	// worker has gone away, and protocol.ErrMessageTooLong, which is not
	// fatal, for a message that was dropped.
	Next() (string, error)
	Close() error
}

// Identified is implemented by transports that know the worker's pid.
type Identified interface {
	Pid() int
}
