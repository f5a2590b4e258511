package ringbuffer

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mvaleed/ringframe/internal/framing"
)

var (
	ErrInsufficientCapacity = errors.New("insufficient capacity in ring buffer")
	ErrMessageTooLong       = errors.New("message exceeds max message length")
	ErrInvalidClaim         = errors.New("index does not point at a claimed record")
)

// MessageHandler receives a view of a message body. The slice aliases the
// ring buffer and is only valid until the handler returns.
type MessageHandler func(msgTypeID int32, payload []byte)

// RingBuffer is a ring buffer for one writer and one reader. The writer side
// (Write, TryClaim, Commit, Abort) must be driven by a single goroutine at a
// time, as must the reader side (Read).
type RingBuffer struct {
	buffer       *AtomicBuffer
	capacity     int
	mask         int64
	maxMsgLength int

	tailPositionIndex       int
	headCachePositionIndex  int
	headPositionIndex       int
	correlationCounterIndex int
	consumerHeartbeatIndex  int

	logger  *slog.Logger
	metrics *metrics
}

// New attaches a ring buffer to buffer. The data region is everything before
// the trailer and must be a power of two in length.
func New(buffer *AtomicBuffer, opts ...Option) (*RingBuffer, error) {
	capacity := buffer.Capacity() - TrailerLength
	if err := CheckCapacity(capacity); err != nil {
		return nil, err
	}

	c := defaultConfig()
	for _, opt := range opts {
		opt(&c)
	}
	if c.registerer == nil {
		c.registerer = prometheus.NewRegistry()
	}

	rb := &RingBuffer{
		buffer:                  buffer,
		capacity:                capacity,
		mask:                    int64(capacity - 1),
		maxMsgLength:            capacity / 8,
		tailPositionIndex:       capacity + tailPositionOffset,
		headCachePositionIndex:  capacity + headCachePositionOffset,
		headPositionIndex:       capacity + headPositionOffset,
		correlationCounterIndex: capacity + correlationCounterOffset,
		consumerHeartbeatIndex:  capacity + consumerHeartbeatOffset,
		logger:                  c.logger,
		metrics:                 newMetrics(c.registerer, c.namespace, c.subsystem),
	}

	rb.logger.Debug("ring buffer attached",
		"capacity", capacity,
		"max_msg_length", rb.maxMsgLength,
		"producer_position", rb.ProducerPosition(),
		"consumer_position", rb.ConsumerPosition(),
	)

	return rb, nil
}

func (rb *RingBuffer) Capacity() int {
	return rb.capacity
}

// MaxMsgLength is the largest message body Write and TryClaim accept.
func (rb *RingBuffer) MaxMsgLength() int {
	return rb.maxMsgLength
}

// Buffer exposes the underlying storage, e.g. to fill a claimed record.
func (rb *RingBuffer) Buffer() *AtomicBuffer {
	return rb.buffer
}

// Write copies payload into the ring buffer as one record of type msgTypeID.
// The record becomes visible to the reader with a single store of its header.
func (rb *RingBuffer) Write(msgTypeID int32, payload []byte) error {
	if err := framing.CheckTypeID(msgTypeID); err != nil {
		return err
	}
	if err := rb.checkMsgLength(len(payload)); err != nil {
		return err
	}

	length := int64(len(payload))
	required := framing.RecordSize(length)
	recordIndex, err := rb.claimCapacity(required)
	if err != nil {
		return err
	}

	rb.buffer.PutBytes(int(framing.EncodedMsgOffset(recordIndex)), payload)
	rb.buffer.PutInt64Ordered(int(framing.LengthOffset(recordIndex)), framing.MakeHeader(length, msgTypeID))

	rb.metrics.messagesWritten.Inc()
	rb.metrics.bytesWritten.Add(float64(required))
	return nil
}

// TryClaim reserves a record with a body of length bytes and returns the
// index of its body. The record stays invisible to the reader until Commit.
func (rb *RingBuffer) TryClaim(msgTypeID int32, length int) (int, error) {
	if err := framing.CheckTypeID(msgTypeID); err != nil {
		return 0, err
	}
	if err := rb.checkMsgLength(length); err != nil {
		return 0, err
	}

	required := framing.RecordSize(int64(length))
	recordIndex, err := rb.claimCapacity(required)
	if err != nil {
		return 0, err
	}

	// in progress: negative length covering header and body
	inProgress := -(framing.HeaderLength + int64(length))
	rb.buffer.PutInt64Ordered(int(framing.LengthOffset(recordIndex)), framing.MakeHeader(inProgress, msgTypeID))

	return int(framing.EncodedMsgOffset(recordIndex)), nil
}

// Commit publishes the record claimed at index.
func (rb *RingBuffer) Commit(index int) error {
	recordIndex, header, err := rb.claimedRecord(index)
	if err != nil {
		return err
	}

	length := int64(-framing.RecordLength(header)) - framing.HeaderLength
	rb.buffer.PutInt64Ordered(recordIndex, framing.MakeHeader(length, framing.MessageTypeID(header)))

	rb.metrics.messagesWritten.Inc()
	rb.metrics.bytesWritten.Add(float64(framing.RecordSize(length)))
	return nil
}

// Abort turns the record claimed at index into padding the reader will skip.
func (rb *RingBuffer) Abort(index int) error {
	recordIndex, header, err := rb.claimedRecord(index)
	if err != nil {
		return err
	}

	length := int64(-framing.RecordLength(header)) - framing.HeaderLength
	rb.buffer.PutInt64Ordered(recordIndex, framing.MakeHeader(length, PaddingMsgTypeID))

	rb.metrics.abortedClaims.Inc()
	return nil
}

func (rb *RingBuffer) claimedRecord(index int) (int, int64, error) {
	recordIndex := index - framing.HeaderLength
	if recordIndex < 0 || recordIndex > rb.capacity-framing.HeaderLength || recordIndex%framing.Alignment != 0 {
		return 0, 0, fmt.Errorf("%w: index=%d capacity=%d", ErrInvalidClaim, index, rb.capacity)
	}

	header := rb.buffer.GetInt64Volatile(recordIndex)
	if framing.RecordLength(header) >= 0 || framing.MessageTypeID(header) < 1 {
		return 0, 0, fmt.Errorf("%w: index=%d header=%#x", ErrInvalidClaim, index, uint64(header))
	}

	return recordIndex, header, nil
}

// Read hands up to limit messages to handler and returns how many were read.
// Consumed space is zeroed and released to the writer even if handler panics.
func (rb *RingBuffer) Read(handler MessageHandler, limit int) int {
	head := rb.buffer.GetInt64(rb.headPositionIndex)
	headIndex := int(head & rb.mask)
	contiguousBlockLength := rb.capacity - headIndex

	bytesRead := 0
	messagesRead := 0

	defer func() {
		if bytesRead == 0 {
			return
		}
		rb.buffer.SetMemory(headIndex, bytesRead, 0)
		rb.buffer.PutInt64Ordered(rb.headPositionIndex, head+int64(bytesRead))
		rb.metrics.bytesRead.Add(float64(bytesRead))
	}()

	for bytesRead < contiguousBlockLength && messagesRead < limit {
		recordIndex := int64(headIndex + bytesRead)
		header := rb.buffer.GetInt64Volatile(int(framing.LengthOffset(recordIndex)))

		length := framing.RecordLength(header)
		msgTypeID := framing.MessageTypeID(header)
		if msgTypeID == 0 || length < 0 {
			// unset or still being written
			break
		}

		bytesRead += int(framing.RecordSize(int64(length)))
		if msgTypeID == PaddingMsgTypeID {
			continue
		}

		messagesRead++
		rb.metrics.messagesRead.Inc()
		handler(msgTypeID, rb.buffer.Bytes(int(framing.EncodedMsgOffset(recordIndex)), int(length)))
	}

	return messagesRead
}

// RecordVisitor sees one record. payload is nil for padding records.
// Returning false stops the walk.
type RecordVisitor func(position int64, header int64, payload []byte) bool

// Scan walks the records between the consumer and producer positions without
// consuming them and returns how many were visited. It stops at a record that
// is still being written. Running it next to a live reader is only useful for
// diagnostics: the reader may release and zero records under it.
func (rb *RingBuffer) Scan(visit RecordVisitor) int {
	position := rb.ConsumerPosition()
	tail := rb.ProducerPosition()

	visited := 0
	for position < tail {
		recordIndex := position & rb.mask
		header := rb.buffer.GetInt64Volatile(int(framing.LengthOffset(recordIndex)))

		length := framing.RecordLength(header)
		msgTypeID := framing.MessageTypeID(header)
		if msgTypeID == 0 || length < 0 {
			break
		}
		if framing.EncodedMsgOffset(recordIndex)+int64(length) > int64(rb.capacity) {
			rb.logger.Warn("record overruns buffer end", "position", position, "length", length)
			break
		}

		var payload []byte
		if msgTypeID != PaddingMsgTypeID {
			payload = rb.buffer.Bytes(int(framing.EncodedMsgOffset(recordIndex)), int(length))
		}

		visited++
		if !visit(position, header, payload) {
			break
		}
		position += framing.RecordSize(int64(length))
	}

	return visited
}

// NextCorrelationID returns a unique id for this ring buffer.
func (rb *RingBuffer) NextCorrelationID() int64 {
	return rb.buffer.AddInt64(rb.correlationCounterIndex, 1)
}

func (rb *RingBuffer) ConsumerHeartbeatTime() int64 {
	return rb.buffer.GetInt64Volatile(rb.consumerHeartbeatIndex)
}

func (rb *RingBuffer) SetConsumerHeartbeatTime(unixNanos int64) {
	rb.buffer.PutInt64Ordered(rb.consumerHeartbeatIndex, unixNanos)
}

// ProducerPosition is the number of bytes ever claimed by the writer.
func (rb *RingBuffer) ProducerPosition() int64 {
	return rb.buffer.GetInt64Volatile(rb.tailPositionIndex)
}

// ConsumerPosition is the number of bytes ever released by the reader.
func (rb *RingBuffer) ConsumerPosition() int64 {
	return rb.buffer.GetInt64Volatile(rb.headPositionIndex)
}

// Size is the number of bytes currently occupied by records.
func (rb *RingBuffer) Size() int {
	for {
		headBefore := rb.buffer.GetInt64Volatile(rb.headPositionIndex)
		tail := rb.buffer.GetInt64Volatile(rb.tailPositionIndex)
		headAfter := rb.buffer.GetInt64Volatile(rb.headPositionIndex)

		if headBefore == headAfter {
			return int(tail - headAfter)
		}
	}
}

func (rb *RingBuffer) checkMsgLength(length int) error {
	if length < 0 || length > rb.maxMsgLength {
		return fmt.Errorf("%w: length=%d max=%d", ErrMessageTooLong, length, rb.maxMsgLength)
	}
	return nil
}

// claimCapacity advances the tail by required bytes and returns the index of
// the claimed record. A padding record is inserted when the record would
// otherwise cross the end of the buffer.
func (rb *RingBuffer) claimCapacity(required int64) (int64, error) {
	capacity := int64(rb.capacity)
	tail := rb.buffer.GetInt64(rb.tailPositionIndex)
	head := rb.buffer.GetInt64(rb.headCachePositionIndex)

	if required > capacity-(tail-head) {
		head = rb.buffer.GetInt64Volatile(rb.headPositionIndex)
		if required > capacity-(tail-head) {
			return 0, rb.insufficientCapacity(required, tail, head)
		}
		rb.buffer.PutInt64(rb.headCachePositionIndex, head)
	}

	padding := int64(0)
	recordIndex := tail & rb.mask
	toBufferEndLength := capacity - recordIndex

	if required > toBufferEndLength {
		headIndex := head & rb.mask
		if required > headIndex {
			head = rb.buffer.GetInt64Volatile(rb.headPositionIndex)
			headIndex = head & rb.mask
			if required > headIndex {
				return 0, rb.insufficientCapacity(required, tail, head)
			}
			rb.buffer.PutInt64(rb.headCachePositionIndex, head)
		}
		padding = toBufferEndLength
	}

	if padding != 0 {
		rb.buffer.PutInt64Ordered(
			int(framing.LengthOffset(recordIndex)),
			framing.MakeHeader(padding-framing.HeaderLength, PaddingMsgTypeID),
		)
		rb.metrics.paddingRecords.Inc()
		rb.logger.Debug("inserted padding record", "index", recordIndex, "length", padding)
		recordIndex = 0
	}

	rb.buffer.PutInt64Ordered(rb.tailPositionIndex, tail+required+padding)
	return recordIndex, nil
}

func (rb *RingBuffer) insufficientCapacity(required, tail, head int64) error {
	rb.metrics.insufficientCapacity.Inc()
	return fmt.Errorf("%w: required=%d used=%d capacity=%d", ErrInsufficientCapacity, required, tail-head, rb.capacity)
}
