package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mvaleed/ringframe/internal/ringbuffer"
	asyncwriter "github.com/mvaleed/ringframe/internal/storage/async-writer"
)

// Drain moves up to limit messages from ring into w. Messages are consumed
// even when w fails; the first error is returned.
func Drain(ring *ringbuffer.RingBuffer, w *asyncwriter.AsyncWriter, limit int) (int, error) {
	var writeErr error
	n := ring.Read(func(msgTypeID int32, payload []byte) {
		if writeErr != nil {
			return
		}
		writeErr = w.WriteRecord(msgTypeID, payload)
	}, limit)

	if writeErr != nil {
		return n, fmt.Errorf("error draining record: %w", writeErr)
	}
	return n, nil
}

// Drainer keeps a ring empty by draining it into a segment writer.
type Drainer struct {
	Ring         *ringbuffer.RingBuffer
	Writer       *asyncwriter.AsyncWriter
	BatchSize    int
	PollInterval time.Duration
	Logger       *slog.Logger
}

// Run drains until ctx is done, then flushes the writer. Cancellation is
// honored between batches even while the ring never empties. The consumer
// heartbeat is refreshed on every poll.
func (d *Drainer) Run(ctx context.Context) error {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var total int
	for {
		if ctx.Err() != nil {
			return d.stop(logger, total)
		}
		d.Ring.SetConsumerHeartbeatTime(time.Now().UnixNano())

		n, err := Drain(d.Ring, d.Writer, d.BatchSize)
		if err != nil {
			return err
		}
		total += n
		if n > 0 {
			continue
		}

		select {
		case <-ctx.Done():
			return d.stop(logger, total)
		case <-time.After(d.PollInterval):
		}
	}
}

func (d *Drainer) stop(logger *slog.Logger, total int) error {
	logger.Info("drain stopped", "messages", total)
	if err := d.Writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush segment: %w", err)
	}
	return nil
}
