// Package ewferr defines the error taxonomy shared by every layer of the
// EWF engine, so a caller can errors.As a single type regardless of which
// component raised the failure.
package ewferr

import (
	"errors"
	"fmt"
)

// Kind classifies what went wrong, independent of the wrapped cause.
type Kind int

const (
	// KindIO is an underlying pool I/O failure, including unexpected EOF.
	KindIO Kind = iota
	// KindFormatMagicMismatch means the file header bytes don't match any
	// known EWF variant.
	KindFormatMagicMismatch
	// KindFormatFieldMismatch means a fixed field (chunk_size,
	// set_identifier, number_of_chunks, ...) differs across segment files.
	KindFormatFieldMismatch
	// KindFormatLimitExceeded means a write would exceed the maximum number
	// of segments the format allows.
	KindFormatLimitExceeded
	// KindChecksumMismatch means CRC verification failed for a chunk or a
	// section descriptor.
	KindChecksumMismatch
	// KindInvalidChunk means a chunk index has no mapped location.
	KindInvalidChunk
	// KindCorruptedSection means a section descriptor or payload is
	// structurally invalid.
	KindCorruptedSection
	// KindUnsupportedValue means a format/compression/date value isn't
	// implemented.
	KindUnsupportedValue
	// KindInvalidArgument means the caller violated the API contract.
	KindInvalidArgument
)

func (k Kind) String() string {
	switch k {
	case KindIO:
		return "io"
	case KindFormatMagicMismatch:
		return "format_magic_mismatch"
	case KindFormatFieldMismatch:
		return "format_field_mismatch"
	case KindFormatLimitExceeded:
		return "format_limit_exceeded"
	case KindChecksumMismatch:
		return "checksum_mismatch"
	case KindInvalidChunk:
		return "invalid_chunk"
	case KindCorruptedSection:
		return "corrupted_section"
	case KindUnsupportedValue:
		return "unsupported_value"
	case KindInvalidArgument:
		return "invalid_argument"
	default:
		return "unknown"
	}
}

// Error is the concrete error type returned across package boundaries. Op
// names the failing operation (e.g. "segment.ReadSection", "chunk.Unpack")
// so a log line is useful without a stack trace.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an *Error, wrapping err (which may be nil).
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
