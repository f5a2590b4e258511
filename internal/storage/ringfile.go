// Package storage backs ring buffers with memory mapped files and moves
// consumed records into flat segment files.
package storage

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mvaleed/ringframe/internal/ringbuffer"
	"github.com/mvaleed/ringframe/internal/storage/mmap"
)

type RingFileConfig struct {
	Path string
	// Capacity of the data region. Zero opens an existing file at its current size.
	Capacity   int
	Logger     *slog.Logger
	Registerer prometheus.Registerer
}

// RingFile is a ring buffer living in a memory mapped file. Any process that
// opens the same path shares the ring: one of them writes, one of them reads.
type RingFile struct {
	path   string
	store  *mmap.MmapStore
	ring   *ringbuffer.RingBuffer
	logger *slog.Logger
}

func OpenRingFile(cfg RingFileConfig) (*RingFile, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	size := 0
	if cfg.Capacity != 0 {
		if err := ringbuffer.CheckCapacity(cfg.Capacity); err != nil {
			return nil, fmt.Errorf("invalid ring file %s: %w", cfg.Path, err)
		}
		size = ringbuffer.RequiredBufferLength(cfg.Capacity)
	}

	store, err := mmap.Open(cfg.Path, size)
	if err != nil {
		return nil, fmt.Errorf("failed to map ring file %s: %w", cfg.Path, err)
	}

	buf, err := ringbuffer.NewAtomicBuffer(store.Bytes())
	if err != nil {
		store.Close()
		return nil, err
	}

	opts := []ringbuffer.Option{ringbuffer.WithLogger(logger)}
	if cfg.Registerer != nil {
		opts = append(opts, ringbuffer.WithPrometheus(cfg.Registerer, "ringframe", "ring"))
	}

	ring, err := ringbuffer.New(buf, opts...)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("invalid ring file %s: %w", cfg.Path, err)
	}

	logger.Info("opened ring file",
		"path", cfg.Path,
		"capacity", ring.Capacity(),
		"size", ring.Size(),
	)

	return &RingFile{
		path:   cfg.Path,
		store:  store,
		ring:   ring,
		logger: logger,
	}, nil
}

func (rf *RingFile) Ring() *ringbuffer.RingBuffer {
	return rf.ring
}

func (rf *RingFile) Path() string {
	return rf.path
}

// Sync flushes the mapping to disk. Other processes see writes without it.
func (rf *RingFile) Sync() error {
	return rf.store.Sync()
}

func (rf *RingFile) Close() error {
	syncErr := rf.store.Sync()
	closeErr := rf.store.Close()
	rf.logger.Debug("closed ring file", "path", rf.path)
	return errors.Join(syncErr, closeErr)
}
