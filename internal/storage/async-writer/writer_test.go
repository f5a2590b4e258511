package asyncwriter

import (
	"bytes"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvaleed/ringframe/internal/framing"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Write(p)
}

func (s *syncBuffer) Bytes() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]byte(nil), s.buf.Bytes()...)
}

type failingWriter struct{}

var errDiskFull = errors.New("disk full")

func (failingWriter) Write([]byte) (int, error) {
	return 0, errDiskFull
}

func TestAsyncWriter_WriteRecord(t *testing.T) {
	t.Run("frames records with header and alignment", func(t *testing.T) {
		var out syncBuffer
		aw := NewAsyncWriterSize(&out, 4096, time.Hour)

		require.NoError(t, aw.WriteRecord(7, []byte("hello")))
		require.NoError(t, aw.WriteRecord(1, nil))
		require.NoError(t, aw.Close())

		data := out.Bytes()
		require.Len(t, data, 16+8)

		var h framing.RecordHeader
		h.Unmarshal(data)
		assert.Equal(t, framing.RecordHeader{Length: 5, TypeID: 7}, h)
		assert.Equal(t, []byte("hello"), data[8:13])
		assert.Equal(t, []byte{0, 0, 0}, data[13:16])

		h.Unmarshal(data[16:])
		assert.Equal(t, framing.RecordHeader{Length: 0, TypeID: 1}, h)
	})

	t.Run("rejects reserved type ids", func(t *testing.T) {
		aw := NewAsyncWriterSize(&syncBuffer{}, 4096, time.Hour)
		defer aw.Close()

		assert.ErrorIs(t, aw.WriteRecord(0, []byte("x")), framing.ErrInvalidArgument)
	})

	t.Run("buffers until flush", func(t *testing.T) {
		var out syncBuffer
		aw := NewAsyncWriterSize(&out, 4096, time.Hour)
		defer aw.Close()

		require.NoError(t, aw.WriteRecord(2, []byte("buffered")))
		require.NoError(t, aw.Flush())
		assert.Len(t, out.Bytes(), 16)
	})

	t.Run("periodic flush", func(t *testing.T) {
		var out syncBuffer
		aw := NewAsyncWriterSize(&out, 4096, 10*time.Millisecond)
		defer aw.Close()

		require.NoError(t, aw.WriteRecord(2, []byte("tick")))
		assert.Eventually(t, func() bool {
			return len(out.Bytes()) == 16
		}, time.Second, 5*time.Millisecond)
	})
}

func TestAsyncWriter_Errors(t *testing.T) {
	t.Run("write after close", func(t *testing.T) {
		aw := NewAsyncWriterSize(&syncBuffer{}, 4096, time.Hour)
		require.NoError(t, aw.Close())

		assert.ErrorIs(t, aw.WriteRecord(1, []byte("late")), ErrWriteAfterClose)
		assert.ErrorIs(t, aw.Flush(), ErrWriteAfterClose)
	})

	t.Run("close is idempotent", func(t *testing.T) {
		aw := NewAsyncWriterSize(&syncBuffer{}, 4096, time.Hour)
		require.NoError(t, aw.Close())
		require.NoError(t, aw.Close())
	})

	t.Run("first write error is reported", func(t *testing.T) {
		// buffer smaller than a record so bufio hits the writer immediately
		aw := NewAsyncWriterSize(failingWriter{}, 16, time.Hour)

		require.NoError(t, aw.WriteRecord(1, make([]byte, 64)))
		assert.ErrorIs(t, aw.Flush(), errDiskFull)
		assert.ErrorIs(t, aw.Close(), errDiskFull)
	})
}
