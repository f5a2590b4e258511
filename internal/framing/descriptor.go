// Package framing describes how a record is laid out inside a ring buffer.
//
// Each record starts with an 8 byte header followed by the encoded message:
//
//	  0                   1                   2                   3
//	  0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1
//	 +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
//	 |R|                         Length                              |
//	 +-+-------------------------------------------------------------+
//	 |                            Type                               |
//	 +---------------------------------------------------------------+
//	 |                       Encoded Message                        ...
//	...                                                              |
//	 +---------------------------------------------------------------+
//
// Length and type are packed into one 64-bit word so a writer can publish
// both with a single atomic store. Length sits in the low 32 bits and type
// in the high 32 bits. A positive length signals the record is complete.
package framing

import (
	"errors"
	"fmt"
)

const (
	SizeOfInt32 = 4

	// HeaderLength is the length field plus the type field.
	HeaderLength = SizeOfInt32 * 2

	// Alignment every record start must respect.
	Alignment = HeaderLength
)

var ErrInvalidArgument = errors.New("invalid argument")

// LengthOffset returns where the length field of the record at recordOffset begins.
func LengthOffset(recordOffset int64) int64 {
	return recordOffset
}

// TypeOffset returns where the message type field of the record at recordOffset begins.
func TypeOffset(recordOffset int64) int64 {
	return recordOffset + SizeOfInt32
}

// EncodedMsgOffset returns where the encoded message of the record at recordOffset begins.
func EncodedMsgOffset(recordOffset int64) int64 {
	return recordOffset + HeaderLength
}

// MakeHeader packs length and msgTypeID into a header word.
// Only the low 32 bits of each input are kept.
func MakeHeader(length int64, msgTypeID int32) int64 {
	return int64(uint64(uint32(msgTypeID))<<32 | uint64(uint32(length)))
}

// RecordLength extracts the length field from a header word.
// The field is signed: negative values mark records still being written.
func RecordLength(header int64) int32 {
	return int32(header)
}

// MessageTypeID extracts the message type field from a header word.
func MessageTypeID(header int64) int32 {
	return int32(uint64(header) >> 32)
}

// CheckTypeID rejects type ids below 1; zero and negative ids are reserved.
func CheckTypeID(msgTypeID int32) error {
	if msgTypeID < 1 {
		return fmt.Errorf("%w: message type id must be greater than zero, msgTypeId=%d", ErrInvalidArgument, msgTypeID)
	}
	return nil
}

// Align rounds value up to the next multiple of alignment, which must be a power of two.
func Align(value, alignment int64) int64 {
	return (value + alignment - 1) &^ (alignment - 1)
}

// RecordSize is the number of bytes a record with a body of length bytes occupies.
func RecordSize(length int64) int64 {
	return Align(HeaderLength+length, Alignment)
}
