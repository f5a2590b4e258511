package storage

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/mvaleed/ringframe/internal/framing"
)

/*
  SEGMENT FILE
  ------------------------------------------------------------------
  Records drained from a ring are appended back to back using the same
  framing as inside the ring:

    [len(4) type(4)][payload][zero padding to 8] [len type][payload]...

  Headers are little-endian. Padding records never reach a segment.
*/

var (
	ErrTruncatedRecord = errors.New("segment ends inside a record")
	ErrCorruptRecord   = errors.New("corrupt record header")
)

// ScanSegment calls fn for every record in r. payload is only valid during
// the call. A non-nil error from fn stops the scan and is returned as is.
func ScanSegment(r io.Reader, fn func(h framing.RecordHeader, payload []byte) error) error {
	var headerBuf [framing.HeaderLength]byte
	var body bytes.Buffer
	var position int64

	for {
		_, err := io.ReadFull(r, headerBuf[:])
		if err == io.EOF {
			return nil
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return fmt.Errorf("%w: header at %d", ErrTruncatedRecord, position)
		}
		if err != nil {
			return fmt.Errorf("failed to read header at %d: %w", position, err)
		}

		var h framing.RecordHeader
		h.Unmarshal(headerBuf[:])
		if h.Length < 0 || framing.CheckTypeID(h.TypeID) != nil {
			return fmt.Errorf("%w: position=%d length=%d type=%d", ErrCorruptRecord, position, h.Length, h.TypeID)
		}

		size := framing.RecordSize(int64(h.Length))
		bodyLength := size - framing.HeaderLength

		// The buffer grows with the bytes actually read, so a corrupt length
		// cannot force a large allocation up front.
		body.Reset()
		read, err := io.CopyN(&body, r, bodyLength)
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("failed to read body at %d: %w", position, err)
		}
		if read < bodyLength {
			return fmt.Errorf("%w: body at %d", ErrTruncatedRecord, position)
		}

		if err := fn(h, body.Bytes()[:h.Length]); err != nil {
			return err
		}
		position += size
	}
}
