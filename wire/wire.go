// Package wire implements the binary primitives of the structure format:
// fixed-width numbers in a selectable byte order, fixed and length-prefixed
// sequences, 7-bit encoded integers and strings, and flag-byte packing.
//
// Reader and Writer wrap the sticky-error readers of the parse package. Every
// operation returns whether it failed; once an operation fails, all following
// operations fail as well, and End returns the number of bytes processed and
// the first error.
package wire

import (
	"encoding/binary"
	"io"
	"unicode/utf8"

	"github.com/anaminus/parse"
	"github.com/swsel/structure/errors"
)

// DefaultLimit is the default ceiling, in bytes, for any single allocation
// made while reading a declared length.
const DefaultLimit = 16 << 20

// Number is a fixed-width numeric type.
type Number interface {
	uint8 | int8 | uint16 | int16 | uint32 | int32 | uint64 | int64 | float32 | float64
}

// Unsigned is a fixed-width unsigned integer type, usable as a length.
type Unsigned interface {
	uint8 | uint16 | uint32 | uint64
}

func sizeOf[T Number]() int {
	var v T
	return binary.Size(v)
}

func maxOf[L Unsigned]() uint64 {
	var m L
	return uint64(^m)
}

////////////////////////////////////////////////////////////////

// Reader reads primitives from a stream.
type Reader struct {
	*parse.BinaryReader

	// Order is the byte order of multi-byte numbers.
	Order binary.ByteOrder

	// Limit is the ceiling for any single allocation caused by a declared
	// length. Zero uses DefaultLimit.
	Limit int

	buf [8]byte
}

// NewReader returns a little-endian Reader that reads from r.
func NewReader(r io.Reader) *Reader {
	return &Reader{
		BinaryReader: parse.NewBinaryReader(r),
		Order:        binary.LittleEndian,
	}
}

// alloc fails if n elements of the given size exceed the allocation limit.
func (r *Reader) alloc(n uint64, size int) (failed bool) {
	if r.Err() != nil {
		return true
	}
	limit := r.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	if size < 1 {
		size = 1
	}
	if max := uint64(limit / size); n > max {
		return r.Add(0, errors.LengthError{Len: n, Max: max})
	}
	return false
}

// ReadNum reads a single number into v.
func ReadNum[T Number](r *Reader, v *T) (failed bool) {
	b := r.buf[:sizeOf[T]()]
	if r.Bytes(b) {
		return true
	}
	_, err := binary.Decode(b, r.Order, v)
	return r.Add(0, err)
}

// ReadArray fills s with len(s) numbers. No length is read.
func ReadArray[T Number](r *Reader, s []T) (failed bool) {
	if len(s) == 0 {
		return r.Err() != nil
	}
	b := make([]byte, len(s)*sizeOf[T]())
	if r.Bytes(b) {
		return true
	}
	_, err := binary.Decode(b, r.Order, s)
	return r.Add(0, err)
}

// ReadVec reads a length of type L, followed by that many numbers. An empty
// sequence is returned as nil.
func ReadVec[L Unsigned, T Number](r *Reader, v *[]T) (failed bool) {
	var n L
	if ReadNum(r, &n) {
		return true
	}
	if n == 0 {
		*v = nil
		return false
	}
	if r.alloc(uint64(n), sizeOf[T]()) {
		return true
	}
	s := make([]T, n)
	if ReadArray(r, s) {
		return true
	}
	*v = s
	return false
}

// ReadLength reads a count of type L and checks that count elements of the
// given size may be allocated.
func ReadLength[L Unsigned](r *Reader, size int, n *int) (failed bool) {
	var l L
	if ReadNum(r, &l) {
		return true
	}
	if r.alloc(uint64(l), size) {
		return true
	}
	*n = int(l)
	return false
}

// ReadUvarint reads an unsigned integer encoded 7 bits per byte, low-order
// chunk first, where 0x80 marks that another byte follows. Fails with
// ErrMalformedVarint if the value does not fit in T.
func ReadUvarint[T Unsigned](r *Reader, v *T) (failed bool) {
	bits := uint(sizeOf[T]()) * 8
	var x uint64
	var shift uint
	for {
		var b uint8
		if ReadNum(r, &b) {
			return true
		}
		if shift >= bits {
			return r.Add(0, errors.ErrMalformedVarint)
		}
		chunk := uint64(b & 0x7F)
		if rem := bits - shift; rem < 7 && chunk>>rem != 0 {
			return r.Add(0, errors.ErrMalformedVarint)
		}
		x |= chunk << shift
		if b&0x80 == 0 {
			break
		}
		shift += 7
	}
	*v = T(x)
	return false
}

// ReadString7 reads a string prefixed by its byte length as a 7-bit encoded
// integer. Fails with ErrInvalidUTF8 if the bytes are not valid UTF-8.
func ReadString7(r *Reader, s *string) (failed bool) {
	var n uint64
	if ReadUvarint(r, &n) {
		return true
	}
	if r.alloc(n, 1) {
		return true
	}
	b := make([]byte, n)
	if r.Bytes(b) {
		return true
	}
	if !utf8.Valid(b) {
		return r.Add(0, errors.ErrInvalidUTF8)
	}
	*s = string(b)
	return false
}

////////////////////////////////////////////////////////////////

// Writer writes primitives to a stream.
type Writer struct {
	*parse.BinaryWriter

	// Order is the byte order of multi-byte numbers.
	Order binary.ByteOrder

	buf [10]byte
}

// NewWriter returns a little-endian Writer that writes to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{
		BinaryWriter: parse.NewBinaryWriter(w),
		Order:        binary.LittleEndian,
	}
}

// CheckLength returns a LengthError if n cannot be represented by L.
func CheckLength[L Unsigned](n int) error {
	if n < 0 || uint64(n) > maxOf[L]() {
		return errors.LengthError{Len: uint64(n), Max: maxOf[L]()}
	}
	return nil
}

// WriteNum writes a single number.
func WriteNum[T Number](w *Writer, v T) (failed bool) {
	b, err := binary.Append(w.buf[:0], w.Order, v)
	if w.Add(0, err) {
		return true
	}
	return w.Bytes(b)
}

// WriteArray writes each number of s. No length is written.
func WriteArray[T Number](w *Writer, s []T) (failed bool) {
	if len(s) == 0 {
		return w.Err() != nil
	}
	b, err := binary.Append(make([]byte, 0, len(s)*sizeOf[T]()), w.Order, s)
	if w.Add(0, err) {
		return true
	}
	return w.Bytes(b)
}

// WriteLength writes n as a number of type L, failing with a LengthError if
// it does not fit.
func WriteLength[L Unsigned](w *Writer, n int) (failed bool) {
	if w.Add(0, CheckLength[L](n)) {
		return true
	}
	return WriteNum(w, L(n))
}

// WriteVec writes the length of s as type L, followed by each number of s.
func WriteVec[L Unsigned, T Number](w *Writer, s []T) (failed bool) {
	if WriteLength[L](w, len(s)) {
		return true
	}
	return WriteArray(w, s)
}

// WriteUvarint writes v 7 bits per byte, low-order chunk first.
func WriteUvarint[T Unsigned](w *Writer, v T) (failed bool) {
	x := uint64(v)
	b := w.buf[:0]
	for x >= 0x80 {
		b = append(b, byte(x)|0x80)
		x >>= 7
	}
	b = append(b, byte(x))
	return w.Bytes(b)
}

// WriteString7 writes the byte length of s as a 7-bit encoded integer,
// followed by the bytes of s.
func WriteString7(w *Writer, s string) (failed bool) {
	if WriteUvarint(w, uint64(len(s))) {
		return true
	}
	return w.Bytes([]byte(s))
}

////////////////////////////////////////////////////////////////

// PackBools packs up to 8 flags into a byte, where bit i holds flag i. Unused
// high bits are zero. Panics if more than 8 flags are given.
func PackBools(flags ...bool) byte {
	if len(flags) > 8 {
		panic("wire: more than 8 flags")
	}
	var b byte
	for i, f := range flags {
		if f {
			b |= 1 << i
		}
	}
	return b
}

// UnpackBools returns the first n flags of b, where flag i is bit i. n is
// capped at 8.
func UnpackBools(b byte, n int) []bool {
	if n > 8 {
		n = 8
	}
	if n < 0 {
		n = 0
	}
	flags := make([]bool, n)
	for i := range flags {
		flags[i] = b>>i&1 != 0
	}
	return flags
}
