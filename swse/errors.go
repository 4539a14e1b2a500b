package swse

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/swsel/structure/errors"
)

var (
	// Indicates that the envelope digest does not match its content.
	ErrEnvelopeDigest = errors.New("envelope digest mismatch")
	// Indicates a compressed length that does not match the declared length.
	ErrEnvelopeLength = errors.New("envelope length mismatch")
	// Indicates that a type settings codec failed without reporting why.
	ErrSettingsCodec = fmt.Errorf("%w: type settings codec failed", errors.ErrFormatViolation)
	// Indicates that reserved bit 7 of a block's flags is set.
	errReservedFlag = errors.New("reserved flag bit is set")
	// Indicates that bytes follow the last block record.
	errTrailingData = errors.New("unexpected data after block table")
)

// ErrUnrecognizedVersion indicates a format version not recognized by the
// codec.
type ErrUnrecognizedVersion uint8

func (err ErrUnrecognizedVersion) Error() string {
	return fmt.Sprintf("unrecognized version %d", uint8(err))
}

// ErrUnknownCompression indicates an envelope compression method not known by
// the codec.
type ErrUnknownCompression uint8

func (err ErrUnknownCompression) Error() string {
	return fmt.Sprintf("unknown compression method %d", uint8(err))
}

// CodecError wraps an error that occurred while converting between a
// building and the records of the format.
type CodecError struct {
	Cause error
}

func (err CodecError) Error() string {
	if err.Cause == nil {
		return "codec error"
	}
	return "codec error: " + err.Cause.Error()
}

func (err CodecError) Unwrap() error {
	return err.Cause
}

// DataError wraps an error that occurred while encoding or decoding byte data.
type DataError struct {
	// Offset is the byte offset where the error occurred.
	Offset int64

	Cause error
}

func (err DataError) Error() string {
	var s strings.Builder
	s.WriteString("data error")
	if err.Offset >= 0 {
		s.WriteString(" at ")
		s.Write(strconv.AppendInt(nil, err.Offset, 10))
	}
	if err.Cause != nil {
		s.WriteString(": ")
		s.WriteString(err.Cause.Error())
	}
	return s.String()
}

func (err DataError) Unwrap() error {
	return err.Cause
}

// RecordError indicates an error that occurred within a record.
type RecordError struct {
	// Kind is the kind of record, such as "root" or "block".
	Kind string
	// Index is the position of the record within its table.
	Index int

	Cause error
}

func (err RecordError) Error() string {
	if err.Cause == nil {
		return fmt.Sprintf("%s #%d: unknown error", err.Kind, err.Index)
	}
	return fmt.Sprintf("%s #%d: %s", err.Kind, err.Index, err.Cause.Error())
}

func (err RecordError) Unwrap() error {
	return err.Cause
}

// ReferenceError indicates a reference that could not be resolved. The
// reference is dropped; a ReferenceError is only ever returned as a warning.
type ReferenceError struct {
	// Block is the index of the block holding the reference.
	Block int
	// Field names the relation, such as "load", "connection", or "field 2".
	Field string
	// Index is the unresolved block index, or -1 if the target is not part of
	// the building.
	Index int64
}

func (err ReferenceError) Error() string {
	if err.Index < 0 {
		return fmt.Sprintf("block #%d: %s: target outside of building: %s", err.Block, err.Field, errors.ErrDanglingReference)
	}
	return fmt.Sprintf("block #%d: %s: index %d: %s", err.Block, err.Field, err.Index, errors.ErrDanglingReference)
}

func (err ReferenceError) Is(target error) bool {
	return target == errors.ErrDanglingReference
}

// LegacyError reports that a block carried a legacy integer list, which was
// read and discarded.
type LegacyError struct {
	Block int
	Count int
}

func (err LegacyError) Error() string {
	return fmt.Sprintf("block #%d: discarded %d legacy integers", err.Block, err.Count)
}

// EnvelopeError wraps an error that occurred while reading or writing a
// compressed envelope.
type EnvelopeError struct {
	Cause error
}

func (err EnvelopeError) Error() string {
	if err.Cause == nil {
		return "envelope error"
	}
	return "envelope error: " + err.Cause.Error()
}

func (err EnvelopeError) Unwrap() error {
	return err.Cause
}
