package framing

import "encoding/binary"

// The header is always stored little-endian: length at bytes 0..3, type at
// bytes 4..7. On little-endian hosts this matches a native 64-bit store of
// the packed word.

// RecordHeader is the unpacked form of a header word.
type RecordHeader struct {
	Length int32
	TypeID int32
}

// UnpackHeader splits a header word into its fields.
func UnpackHeader(header int64) RecordHeader {
	return RecordHeader{
		Length: RecordLength(header),
		TypeID: MessageTypeID(header),
	}
}

// Pack returns the header word for h.
func (h RecordHeader) Pack() int64 {
	return MakeHeader(int64(h.Length), h.TypeID)
}

// Marshal writes h into the first HeaderLength bytes of dst.
func (h RecordHeader) Marshal(dst []byte) {
	binary.LittleEndian.PutUint32(dst[0:SizeOfInt32], uint32(h.Length))
	binary.LittleEndian.PutUint32(dst[SizeOfInt32:HeaderLength], uint32(h.TypeID))
}

// Unmarshal reads h from the first HeaderLength bytes of src.
// The caller must check len(src).
func (h *RecordHeader) Unmarshal(src []byte) {
	h.Length = int32(binary.LittleEndian.Uint32(src[0:SizeOfInt32]))
	h.TypeID = int32(binary.LittleEndian.Uint32(src[SizeOfInt32:HeaderLength]))
}

// PutHeader writes a packed header word into dst.
func PutHeader(dst []byte, header int64) {
	binary.LittleEndian.PutUint64(dst[:HeaderLength], uint64(header))
}

// ReadHeader reads a packed header word from src.
func ReadHeader(src []byte) int64 {
	return int64(binary.LittleEndian.Uint64(src[:HeaderLength]))
}
