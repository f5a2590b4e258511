package mmap

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

var ErrSizeMismatch = errors.New("file size does not match requested mapping size")

type MmapStore struct {
	file *os.File
	data []byte
}

// Open maps the file at path read-write and shared, so writes are visible to
// every process mapping the same file.
// A missing or empty file is created and sized to size bytes. An existing
// file must already be exactly size bytes; size 0 maps whatever is there
// and never creates the file.
func Open(path string, size int) (*MmapStore, error) {
	flag := os.O_RDWR
	if size > 0 {
		flag |= os.O_CREATE
	}
	f, err := os.OpenFile(path, flag, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	switch {
	case fi.Size() == 0 && size > 0:
		// New file. Truncate extends with zeros.
		if err := f.Truncate(int64(size)); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to size file: %w", err)
		}
	case size == 0:
		size = int(fi.Size())
	case fi.Size() != int64(size):
		f.Close()
		return nil, fmt.Errorf("%w: file=%d requested=%d", ErrSizeMismatch, fi.Size(), size)
	}

	if size == 0 {
		f.Close()
		return nil, fmt.Errorf("%w: cannot map an empty file", ErrSizeMismatch)
	}

	data, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to mmap: %w", err)
	}

	return &MmapStore{
		file: f,
		data: data,
	}, nil
}

// OpenReadOnly maps an existing file for inspection.
func OpenReadOnly(path string) (*MmapStore, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	// unix.Mmap returns EINVAL for a zero length mapping.
	if fi.Size() == 0 {
		return &MmapStore{
			file: f,
			data: nil,
		}, nil
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(fi.Size()), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to mmap: %w", err)
	}

	return &MmapStore{
		file: f,
		data: data,
	}, nil
}

// Bytes returns the whole mapping. The slice is invalid after Close.
func (m *MmapStore) Bytes() []byte {
	return m.data
}

// Sync flushes dirty pages of the mapping back to the file.
func (m *MmapStore) Sync() error {
	if len(m.data) == 0 {
		return nil
	}
	if err := unix.Msync(m.data, unix.MS_SYNC); err != nil {
		return fmt.Errorf("msync failed: %w", err)
	}
	return nil
}

// Close cleans up the memory map and closes the file handle.
func (m *MmapStore) Close() error {
	if len(m.data) > 0 {
		if err := unix.Munmap(m.data); err != nil {
			m.file.Close()
			return fmt.Errorf("munmap failed: %w", err)
		}
		m.data = nil
	}

	return m.file.Close()
}

// ReadAt returns a slice of the mmap data.
// It ensures you don't crash by reading out of bounds.
func (m *MmapStore) ReadAt(offset int, length int) ([]byte, error) {
	if m.data == nil {
		return nil, fmt.Errorf("storage is empty/closed")
	}

	if offset < 0 || length < 0 || offset+length > len(m.data) {
		return nil, fmt.Errorf("out of bounds: len=%d, req_off=%d, req_len=%d", len(m.data), offset, length)
	}

	return m.data[offset : offset+length], nil
}

func (m *MmapStore) Size() int64 {
	return int64(len(m.data))
}

func (m *MmapStore) Path() string {
	return m.file.Name()
}
