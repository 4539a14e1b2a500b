// The errors package provides the error conditions shared by the structure
// packages, along with additional error primitives.
package errors

import (
	"errors"
	"strconv"
	"strings"
)

func New(text string) error {
	return errors.New(text)
}

func Unwrap(err error) error {
	return errors.Unwrap(err)
}

func Is(err, target error) bool {
	return errors.Is(err, target)
}

func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

var (
	// ErrFormatViolation indicates that a length, count, or index cannot be
	// represented by the format. It is always fatal.
	ErrFormatViolation = errors.New("format violation")
	// ErrLengthOverflow indicates a length that does not fit its wire width.
	ErrLengthOverflow = errors.New("length overflow")
	// ErrIndexSpaceExhausted indicates that a building has more roots or
	// blocks than the 16-bit index space can address.
	ErrIndexSpaceExhausted = errors.New("index space exhausted")
	// ErrMalformedVarint indicates a 7-bit encoded integer that does not fit
	// its target width.
	ErrMalformedVarint = errors.New("malformed 7-bit encoded integer")
	// ErrInvalidUTF8 indicates a string whose bytes are not valid UTF-8.
	ErrInvalidUTF8 = errors.New("invalid UTF-8")
	// ErrTruncatedStream indicates that the stream ended inside a record.
	ErrTruncatedStream = errors.New("truncated stream")
	// ErrDanglingReference indicates a reference whose target does not
	// exist. It is never fatal; the reference is dropped.
	ErrDanglingReference = errors.New("dangling reference")
)

// LengthError indicates that a length does not fit in the width used to
// encode it.
type LengthError struct {
	// Len is the length that was attempted.
	Len uint64
	// Max is the largest length the encoding can hold.
	Max uint64
}

func (err LengthError) Error() string {
	return "length " + strconv.FormatUint(err.Len, 10) + " exceeds maximum " + strconv.FormatUint(err.Max, 10)
}

func (err LengthError) Is(target error) bool {
	return target == ErrFormatViolation || target == ErrLengthOverflow
}

// IndexSpaceError indicates that more entities of a kind were counted than
// can be indexed.
type IndexSpaceError struct {
	// Kind is "root" or "block".
	Kind string
	// Count is the number of entities that were indexed before giving up.
	Count int
}

func (err IndexSpaceError) Error() string {
	return "too many " + err.Kind + "s: more than " + strconv.Itoa(err.Count)
}

func (err IndexSpaceError) Is(target error) bool {
	return target == ErrFormatViolation || target == ErrIndexSpaceExhausted
}

// Errors is a list of errors, such as the warnings gathered while decoding a
// building.
type Errors []error

// Error reports the number of errors, followed by each message on its own
// tab-indented line. A single error is reported as-is.
func (errs Errors) Error() string {
	if len(errs) == 0 {
		return "no errors"
	}
	if len(errs) == 1 {
		return errs[0].Error()
	}
	var buf strings.Builder
	buf.WriteString(strconv.Itoa(len(errs)))
	buf.WriteString(" errors:")
	for _, err := range errs {
		for _, line := range strings.Split(err.Error(), "\n") {
			buf.WriteString("\n\t")
			buf.WriteString(line)
		}
	}
	return buf.String()
}

// Unwrap exposes the list so that Is and As inspect every error.
func (errs Errors) Unwrap() []error {
	return errs
}

// Append adds each non-nil err to errs. An Errors argument contributes its
// elements rather than itself.
func (errs Errors) Append(err ...error) Errors {
	for _, err := range err {
		switch err := err.(type) {
		case nil:
		case Errors:
			errs = errs.Append(err...)
		default:
			errs = append(errs, err)
		}
	}
	return errs
}

// Return returns nil for an empty list, and errs otherwise.
func (errs Errors) Return() error {
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// Union flattens errs into a single Errors, or nil if every err is nil or
// empty.
func Union(errs ...error) error {
	return Errors(nil).Append(errs...).Return()
}
