// Package ringbuffer implements a one-to-one ring buffer over a byte region
// that may be shared between goroutines or processes.
package ringbuffer

import (
	"errors"
	"fmt"
	"sync/atomic"
	"unsafe"
)

var (
	ErrUnalignedBuffer = errors.New("buffer base address is not 8 byte aligned")
	ErrBigEndianHost   = errors.New("atomic buffer requires a little-endian host")
)

// AtomicBuffer gives word sized atomic access to a byte region.
// Indexes of 64-bit accesses must be multiples of 8.
type AtomicBuffer struct {
	data []byte
}

func NewAtomicBuffer(data []byte) (*AtomicBuffer, error) {
	if !littleEndianHost() {
		return nil, ErrBigEndianHost
	}
	if len(data) > 0 && uintptr(unsafe.Pointer(&data[0]))%8 != 0 {
		return nil, fmt.Errorf("%w: len=%d", ErrUnalignedBuffer, len(data))
	}
	return &AtomicBuffer{data: data}, nil
}

func (b *AtomicBuffer) Capacity() int {
	return len(b.data)
}

func (b *AtomicBuffer) word(index int) *int64 {
	// Slicing checks bounds without loading memory, so it cannot race with
	// an atomic store from the other side.
	w := b.data[index : index+8 : index+8]
	return (*int64)(unsafe.Pointer(unsafe.SliceData(w)))
}

// GetInt64Volatile atomically loads the word at index.
func (b *AtomicBuffer) GetInt64Volatile(index int) int64 {
	return atomic.LoadInt64(b.word(index))
}

// PutInt64Ordered atomically stores value at index. Every write made before
// the store is visible to a reader that observes value.
func (b *AtomicBuffer) PutInt64Ordered(index int, value int64) {
	atomic.StoreInt64(b.word(index), value)
}

// GetInt64 loads a word only ever written by the calling side.
func (b *AtomicBuffer) GetInt64(index int) int64 {
	return *b.word(index)
}

func (b *AtomicBuffer) PutInt64(index int, value int64) {
	*b.word(index) = value
}

// AddInt64 atomically adds delta to the word at index and returns the previous value.
func (b *AtomicBuffer) AddInt64(index int, delta int64) int64 {
	return atomic.AddInt64(b.word(index), delta) - delta
}

func (b *AtomicBuffer) PutBytes(index int, src []byte) {
	copy(b.data[index:index+len(src)], src)
}

// Bytes returns a view of length bytes starting at index. No copy is made.
func (b *AtomicBuffer) Bytes(index, length int) []byte {
	return b.data[index : index+length : index+length]
}

func (b *AtomicBuffer) SetMemory(index, length int, value byte) {
	region := b.data[index : index+length]
	for i := range region {
		region[i] = value
	}
}

func littleEndianHost() bool {
	var probe uint16 = 1
	return *(*byte)(unsafe.Pointer(&probe)) == 1
}
