package ringbuffer

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvaleed/ringframe/internal/framing"
)

func TestAtomicBuffer_NewAtomicBuffer(t *testing.T) {
	t.Run("accepts aligned storage", func(t *testing.T) {
		buf, err := NewAtomicBuffer(make([]byte, 64))
		require.NoError(t, err)
		assert.Equal(t, 64, buf.Capacity())
	})

	t.Run("rejects unaligned storage", func(t *testing.T) {
		data := make([]byte, 72)
		_, err := NewAtomicBuffer(data[1:])
		assert.ErrorIs(t, err, ErrUnalignedBuffer)
	})
}

func TestAtomicBuffer_Words(t *testing.T) {
	buf, err := NewAtomicBuffer(make([]byte, 64))
	require.NoError(t, err)

	t.Run("ordered store is seen by volatile load", func(t *testing.T) {
		buf.PutInt64Ordered(8, -42)
		assert.Equal(t, int64(-42), buf.GetInt64Volatile(8))
		assert.Equal(t, int64(-42), buf.GetInt64(8))
	})

	t.Run("native word matches the little-endian header layout", func(t *testing.T) {
		header := framing.MakeHeader(24, 7)
		buf.PutInt64Ordered(16, header)

		assert.Equal(t, header, framing.ReadHeader(buf.Bytes(16, framing.HeaderLength)))
		assert.Equal(t, []byte{24, 0, 0, 0, 7, 0, 0, 0}, buf.Bytes(16, framing.HeaderLength))
	})

	t.Run("add returns previous value", func(t *testing.T) {
		buf.PutInt64(24, 10)
		assert.Equal(t, int64(10), buf.AddInt64(24, 5))
		assert.Equal(t, int64(15), buf.GetInt64(24))
	})

	t.Run("out of range access panics", func(t *testing.T) {
		assert.Panics(t, func() { buf.GetInt64Volatile(60) })
		assert.Panics(t, func() { buf.PutInt64Ordered(64, 1) })
		assert.Panics(t, func() { buf.AddInt64(-8, 1) })
	})
}

// Run with -race: the only accesses to a shared word must be atomic.
func TestAtomicBuffer_ConcurrentWordAccess(t *testing.T) {
	buf, err := NewAtomicBuffer(make([]byte, 64))
	require.NoError(t, err)

	const rounds = 10000
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := range rounds {
			buf.PutInt64Ordered(8, framing.MakeHeader(int64(i), 1))
		}
	}()
	go func() {
		defer wg.Done()
		var last int32
		for range rounds {
			length := framing.RecordLength(buf.GetInt64Volatile(8))
			assert.GreaterOrEqual(t, length, last)
			last = length
			buf.AddInt64(16, 1)
		}
	}()
	wg.Wait()

	assert.Equal(t, int64(rounds), buf.GetInt64Volatile(16))
}

func TestAtomicBuffer_Bytes(t *testing.T) {
	buf, err := NewAtomicBuffer(make([]byte, 32))
	require.NoError(t, err)

	buf.PutBytes(4, []byte("hello"))
	assert.Equal(t, []byte("hello"), buf.Bytes(4, 5))

	buf.SetMemory(4, 5, 0)
	assert.Equal(t, make([]byte, 5), buf.Bytes(4, 5))

	view := buf.Bytes(0, 4)
	assert.Equal(t, 4, cap(view), "views must not reach past their length")
}
