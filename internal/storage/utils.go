package storage

import (
	"fmt"
	"io"
	"os"

	"github.com/mvaleed/ringframe/internal/framing"
	"github.com/mvaleed/ringframe/internal/ringbuffer"
	"github.com/mvaleed/ringframe/internal/storage/mmap"
)

// DumpSegment prints records of a segment file for debugging.
// head limits the number of records, 0 prints all of them.
func DumpSegment(w io.Writer, path string, head int) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	recordNum := 0
	err = ScanSegment(f, func(h framing.RecordHeader, payload []byte) error {
		printRecord(w, recordNum, -1, h, payload)
		recordNum++
		if recordNum == head {
			return io.EOF
		}
		return nil
	})
	if err != nil && err != io.EOF {
		return fmt.Errorf("reading record %d: %w", recordNum, err)
	}

	fmt.Fprintf(w, "Total: %d records\n", recordNum)
	return nil
}

// DumpRingFile prints the unconsumed records of a ring file without
// consuming them. Padding records are included.
func DumpRingFile(w io.Writer, path string, head int) error {
	store, err := mmap.OpenReadOnly(path)
	if err != nil {
		return err
	}
	defer store.Close()

	buf, err := ringbuffer.NewAtomicBuffer(store.Bytes())
	if err != nil {
		return err
	}
	ring, err := ringbuffer.New(buf)
	if err != nil {
		return fmt.Errorf("invalid ring file %s: %w", path, err)
	}

	fmt.Fprintf(w, "Capacity: %d\n", ring.Capacity())
	fmt.Fprintf(w, "Producer: %d\n", ring.ProducerPosition())
	fmt.Fprintf(w, "Consumer: %d\n", ring.ConsumerPosition())
	fmt.Fprintln(w)

	recordNum := 0
	ring.Scan(func(position int64, header int64, payload []byte) bool {
		printRecord(w, recordNum, position, framing.UnpackHeader(header), payload)
		recordNum++
		return recordNum != head
	})

	fmt.Fprintf(w, "Total: %d records\n", recordNum)
	return nil
}

func printRecord(w io.Writer, recordNum int, position int64, h framing.RecordHeader, payload []byte) {
	fmt.Fprintf(w, "Record #%d\n", recordNum)
	if position >= 0 {
		fmt.Fprintf(w, "  Position:  %d\n", position)
	}
	if h.TypeID == ringbuffer.PaddingMsgTypeID {
		fmt.Fprintf(w, "  Padding:   %d\n", h.Length)
		fmt.Fprintln(w)
		return
	}
	fmt.Fprintf(w, "  Type:      %d\n", h.TypeID)
	fmt.Fprintf(w, "  Length:    %d\n", h.Length)
	fmt.Fprintf(w, "  Payload:   %q\n", truncate(payload, 100))
	fmt.Fprintln(w)
}

func truncate(b []byte, max int) []byte {
	if len(b) <= max {
		return b
	}
	return b[:max]
}
