// Package asyncwriter frames records and writes them to a segment file from a
// background goroutine.
package asyncwriter

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/mvaleed/ringframe/internal/framing"
)

var ErrWriteAfterClose = errors.New("write called after writer closed")

type AsyncWriter struct {
	queue    chan *bytes.Buffer
	done     chan struct{}
	writer   *bufio.Writer
	interval time.Duration
	wg       sync.WaitGroup
	flushReq chan chan error
	once     sync.Once
	pool     sync.Pool

	// owned by writerLoop until wg is done
	err error
}

var padding [framing.Alignment]byte

func NewAsyncWriterSize(w io.Writer, writerBufferSize int, flushInterval time.Duration) *AsyncWriter {
	if flushInterval <= 0 {
		flushInterval = 100 * time.Millisecond
	}
	aw := &AsyncWriter{
		queue:    make(chan *bytes.Buffer, 10), // Tune buffer size for performance
		done:     make(chan struct{}),
		writer:   bufio.NewWriterSize(w, writerBufferSize),
		interval: flushInterval,
		flushReq: make(chan chan error),
		pool: sync.Pool{
			New: func() any {
				return bytes.NewBuffer(make([]byte, 0, 4096))
			},
		},
	}
	aw.wg.Add(1)
	go aw.writerLoop()
	return aw
}

func (aw *AsyncWriter) writerLoop() {
	defer aw.wg.Done()
	ticker := time.NewTicker(aw.interval)
	defer ticker.Stop()

	for {
		select {
		case data := <-aw.queue:
			aw.write(data)
		case <-ticker.C:
			aw.flush()
		case resp := <-aw.flushReq:
			resp <- aw.flush()
		case <-aw.done:
			aw.onDone()
			return
		}
	}
}

func (aw *AsyncWriter) onDone() {
	for {
		select {
		case data := <-aw.queue:
			aw.write(data)
		case resp := <-aw.flushReq:
			resp <- aw.flush()
		default:
			aw.flush()
			return
		}
	}
}

// write keeps the first error; records after a failed write are dropped.
func (aw *AsyncWriter) write(data *bytes.Buffer) {
	if aw.err == nil {
		if _, err := aw.writer.Write(data.Bytes()); err != nil {
			aw.err = err
		}
	}
	aw.pool.Put(data)
}

func (aw *AsyncWriter) flush() error {
	if aw.err == nil {
		aw.err = aw.writer.Flush()
	}
	return aw.err
}

// WriteRecord frames payload as a record of type msgTypeID and queues it.
// The payload is copied before WriteRecord returns.
func (aw *AsyncWriter) WriteRecord(msgTypeID int32, payload []byte) error {
	if err := framing.CheckTypeID(msgTypeID); err != nil {
		return err
	}
	select {
	case <-aw.done:
		return ErrWriteAfterClose
	default:
	}

	length := int64(len(payload))
	size := framing.RecordSize(length)

	poolBuf := aw.pool.Get().(*bytes.Buffer)
	poolBuf.Reset()
	poolBuf.Grow(int(size))

	var header [framing.HeaderLength]byte
	framing.PutHeader(header[:], framing.MakeHeader(length, msgTypeID))
	poolBuf.Write(header[:])
	poolBuf.Write(payload)
	poolBuf.Write(padding[:size-framing.HeaderLength-length])

	select {
	case aw.queue <- poolBuf:
		return nil
	case <-aw.done:
		aw.pool.Put(poolBuf)
		return ErrWriteAfterClose
	}
}

// Flush writes everything queued so far and reports the first write error.
func (aw *AsyncWriter) Flush() error {
	resp := make(chan error, 1)
	select {
	case aw.flushReq <- resp:
		return <-resp
	case <-aw.done:
		return ErrWriteAfterClose
	}
}

// Close drains the queue, flushes and reports the first write error.
func (aw *AsyncWriter) Close() error {
	aw.once.Do(func() {
		close(aw.done)
	})
	aw.wg.Wait()
	return aw.err
}

var _ io.Closer = (*AsyncWriter)(nil)
