package protocol

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chunkReader returns one chunk per Read call.
type chunkReader struct {
	chunks []string
}

func (c *chunkReader) Read(p []byte) (int, error) {
	if len(c.chunks) == 0 {
		return 0, io.EOF
	}
	n := copy(p, c.chunks[0])
	c.chunks[0] = c.chunks[0][n:]
	if c.chunks[0] == "" {
		c.chunks = c.chunks[1:]
	}
	return n, nil
}

func readAll(t *testing.T, r *Reader) []string {
	t.Helper()
	var out []string
	for {
		msg, err := r.Next()
		if err == io.EOF {
			return out
		}
		require.NoError(t, err)
		out = append(out, msg)
	}
}

func TestReaderTerminatedLines(t *testing.T) {
	r := NewReader(strings.NewReader("d\nAAnnShift\r\nx42\n"))
	assert.Equal(t, []string{"d", "AAnnShift", "x42"}, readAll(t, r))
}

func TestReaderUnterminatedChunks(t *testing.T) {
	// The worker writes "d", waits for the ack, then writes "x3".
	r := NewReader(&chunkReader{chunks: []string{"d", "x3", "aAnnRun"}})
	assert.Equal(t, []string{"d", "x3", "aAnnRun"}, readAll(t, r))
}

func TestReaderLineSplitAcrossReads(t *testing.T) {
	r := NewReader(&chunkReader{chunks: []string{"x1.5\nAAnn", "G\n"}})
	// "AAnn" ends a short read without a terminator, so it completes a
	// message on its own and "G" follows as the next one.
	assert.Equal(t, []string{"x1.5", "AAnn", "G"}, readAll(t, r))
}

func TestReaderLongMessageSpansBuffer(t *testing.T) {
	long := "x" + strings.Repeat("9", 5000)
	r := NewReader(strings.NewReader(long + "\n"))
	assert.Equal(t, []string{long}, readAll(t, r))
}

func TestReaderTailAtEOF(t *testing.T) {
	long := "x" + strings.Repeat("1", 4095) // exactly one full buffer
	r := NewReader(strings.NewReader(long))
	assert.Equal(t, []string{long}, readAll(t, r))
}

func TestReaderTooLong(t *testing.T) {
	r := NewReader(strings.NewReader(strings.Repeat("x", MaxMessage+4096)))
	_, err := r.Next()
	assert.ErrorIs(t, err, ErrMessageTooLong)

	_, err = r.Next()
	assert.ErrorIs(t, err, io.EOF, "the oversized message is reported once")
}

func TestReaderRecoversAfterTooLong(t *testing.T) {
	big := strings.Repeat("x", MaxMessage+100)

	tests := []struct {
		name   string
		chunks []string
	}{
		// The oversized message ends with a short read, as when the worker
		// blocks for its ack.
		{"ended by short read", []string{big, "d"}},
		// The oversized message ends at an LF in the middle of a read.
		{"ended by newline", []string{strings.Repeat("x", MaxMessage+1), "yyy\nd\n"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewReader(&chunkReader{chunks: tt.chunks})

			_, err := r.Next()
			require.ErrorIs(t, err, ErrMessageTooLong)

			msg, err := r.Next()
			require.NoError(t, err)
			assert.Equal(t, "d", msg)

			_, err = r.Next()
			assert.ErrorIs(t, err, io.EOF)
		})
	}
}

// stallReader hands out data once; reading again means the caller is waiting
// for bytes a blocked worker will never send.
type stallReader struct {
	t    *testing.T
	data string
	done bool
}

func (s *stallReader) Read(p []byte) (int, error) {
	if s.done {
		s.t.Errorf("Read called again after a complete %d-byte message", len(s.data))
		return 0, io.EOF
	}
	s.done = true
	return copy(p, s.data), nil
}

func TestReaderUnterminatedAtBufferSizes(t *testing.T) {
	for _, size := range []int{4096, 8192, MaxMessage} {
		msg := "x" + strings.Repeat("9", size-1)
		r := NewReader(&stallReader{t: t, data: msg})

		got, err := r.Next()
		require.NoError(t, err, "size %d", size)
		assert.Equal(t, len(msg), len(got), "size %d", size)
	}
}

func TestReaderEmptyLine(t *testing.T) {
	r := NewReader(strings.NewReader("\nd\n"))
	assert.Equal(t, []string{"", "d"}, readAll(t, r))
}
