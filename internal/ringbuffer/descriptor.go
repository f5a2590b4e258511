package ringbuffer

import (
	"errors"
	"fmt"
)

/*
  LAYOUT
  ------------------------------------------------------------------
  [ data: capacity bytes, power of two ][ trailer: TrailerLength bytes ]

  Trailer (each counter on its own pair of cache lines):
    tail position          - bytes claimed by the writer, ever increasing
    head cache position    - writer's last view of the head
    head position          - bytes consumed by the reader, ever increasing
    correlation counter    - shared id generator
    consumer heartbeat     - last time the reader was alive (unix nanos)

  Positions are counters, not indexes: index = position & (capacity - 1).
*/

const (
	CacheLineLength = 64

	tailPositionOffset       = CacheLineLength * 2
	headCachePositionOffset  = CacheLineLength * 4
	headPositionOffset       = CacheLineLength * 6
	correlationCounterOffset = CacheLineLength * 8
	consumerHeartbeatOffset  = CacheLineLength * 10

	// TrailerLength is the space after the data region used for counters.
	TrailerLength = CacheLineLength * 12

	// PaddingMsgTypeID marks records that fill the gap at the end of the buffer.
	PaddingMsgTypeID int32 = -1

	// MaxCapacity keeps every record length, including the negated length of
	// an in-progress claim, inside the signed 32-bit header field.
	MaxCapacity = 1 << 30
)

var ErrInvalidCapacity = errors.New("capacity must be a power of two between 1 and 2^30")

// CheckCapacity reports whether capacity can size a ring's data region.
func CheckCapacity(capacity int) error {
	if capacity <= 0 || capacity > MaxCapacity || capacity&(capacity-1) != 0 {
		return fmt.Errorf("%w: capacity=%d", ErrInvalidCapacity, capacity)
	}
	return nil
}

// RequiredBufferLength is the total length of a buffer holding capacity data bytes.
func RequiredBufferLength(capacity int) int {
	return capacity + TrailerLength
}
