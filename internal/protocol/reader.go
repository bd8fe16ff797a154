package protocol

import (
	"bytes"
	"errors"
	"io"
)

// MaxMessage bounds a single inbound message. Worker messages are a tag and
// at most a formatted X register, far below this.
const MaxMessage = 32 * 1024

// ErrMessageTooLong reports a message over MaxMessage. It is not fatal: the
// message is dropped, it still needs its ack, and Next can be called again.
var ErrMessageTooLong = errors.New("protocol: message too long")

type frame struct {
	msg string
	err error
}

// Reader splits a worker output stream into messages.
//
// A message ends at LF. The worker also writes messages without a trailing
// LF and then blocks until it has read the ack, so a read that ends without a
// terminator and without filling the buffer completes the message it
// carries. The buffer holds MaxMessage+1 bytes, so a read only fills it when
// the message is already too long; any message that fits is never held back
// waiting for bytes the worker will not send. A CR before the LF is dropped.
type Reader struct {
	r          io.Reader
	buf        []byte
	partial    []byte
	discarding bool // dropping the rest of an oversized message
	pending    []frame
	err        error
}

// NewReader returns a Reader over r.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: r, buf: make([]byte, MaxMessage+1)}
}

// Next returns the next message. An oversized message yields
// ErrMessageTooLong in its place. At end of stream any unterminated tail is
// returned first, then the read error (io.EOF for a clean exit).
func (fr *Reader) Next() (string, error) {
	for len(fr.pending) == 0 {
		if fr.err != nil {
			if fr.discarding || len(fr.partial) > 0 {
				fr.finish()
				continue
			}
			return "", fr.err
		}
		n, err := fr.r.Read(fr.buf)
		if n > 0 {
			fr.split(fr.buf[:n], n == len(fr.buf))
		}
		if err != nil {
			fr.err = err
		}
	}
	f := fr.pending[0]
	fr.pending = fr.pending[1:]
	return f.msg, f.err
}

func (fr *Reader) split(chunk []byte, full bool) {
	for len(chunk) > 0 {
		i := bytes.IndexByte(chunk, '\n')
		if i < 0 {
			fr.collect(chunk)
			if !full {
				fr.finish()
			}
			return
		}
		fr.collect(chunk[:i])
		fr.finish()
		chunk = chunk[i+1:]
	}
}

// collect appends to the message in progress, switching to discard mode once
// it outgrows MaxMessage.
func (fr *Reader) collect(b []byte) {
	if fr.discarding {
		return
	}
	fr.partial = append(fr.partial, b...)
	if len(fr.partial) > MaxMessage {
		fr.partial = nil
		fr.discarding = true
	}
}

// finish ends the message in progress.
func (fr *Reader) finish() {
	if fr.discarding {
		fr.discarding = false
		fr.pending = append(fr.pending, frame{err: ErrMessageTooLong})
		return
	}
	fr.pending = append(fr.pending, frame{msg: string(bytes.TrimSuffix(fr.partial, []byte{'\r'}))})
	fr.partial = nil
}
