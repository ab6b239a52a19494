// Package apperr defines the closed ErrorKind taxonomy shared by every
// EdgeVec subpackage and the public edgevec package. It lives under
// internal so every package in this module can construct errors without
// creating an import cycle back to the root edgevec package, which
// re-exports these types for the public API (see edgevec/errors.go).
package apperr

import (
	"errors"
	"fmt"
)

// Kind is the closed taxonomy of failure modes every fallible EdgeVec
// operation reports through.
type Kind int

const (
	DimensionMismatch Kind = iota
	InvalidInput
	InvalidParameter
	IDNotFound
	BQDisabled
	EmptyIndex
	FilterParseError
	UnsupportedFormatVersion
	SnapshotCorrupted
	MemoryCritical
	UnsupportedMetric
	Internal
)

// String returns the taxonomy name used in error messages.
func (k Kind) String() string {
	switch k {
	case DimensionMismatch:
		return "DimensionMismatch"
	case InvalidInput:
		return "InvalidInput"
	case InvalidParameter:
		return "InvalidParameter"
	case IDNotFound:
		return "IdNotFound"
	case BQDisabled:
		return "BqDisabled"
	case EmptyIndex:
		return "EmptyIndex"
	case FilterParseError:
		return "FilterParseError"
	case UnsupportedFormatVersion:
		return "UnsupportedFormatVersion"
	case SnapshotCorrupted:
		return "SnapshotCorrupted"
	case MemoryCritical:
		return "MemoryCritical"
	case UnsupportedMetric:
		return "UnsupportedMetric"
	case Internal:
		return "Internal"
	default:
		return "Unknown"
	}
}

// Error wraps an underlying error with an operation name and its Kind.
type Error struct {
	Op   string
	Kind Kind
	Err  error

	// Pos is the one-based character offset of a FilterParseError.
	Pos int
}

func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("edgevec: %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("edgevec: %s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return other.Kind == e.Kind
	}
	return errors.Is(e.Err, target)
}

// New builds an *Error for op/kind wrapping err.
func New(op string, kind Kind, err error) *Error {
	return &Error{Op: op, Kind: kind, Err: err}
}

// Newf builds an *Error from a formatted message.
func Newf(op string, kind Kind, format string, args ...any) *Error {
	return &Error{Op: op, Kind: kind, Err: fmt.Errorf(format, args...)}
}

// NewParse builds a FilterParseError carrying a one-based character offset.
func NewParse(op string, pos int, msg string) *Error {
	return &Error{Op: op, Kind: FilterParseError, Err: errors.New(msg), Pos: pos}
}

// Sentinel errors usable with errors.Is without constructing a full *Error.
var (
	ErrDimensionMismatch        = &Error{Kind: DimensionMismatch, Err: errors.New("dimension mismatch")}
	ErrInvalidInput             = &Error{Kind: InvalidInput, Err: errors.New("invalid input")}
	ErrInvalidParameter         = &Error{Kind: InvalidParameter, Err: errors.New("invalid parameter")}
	ErrIDNotFound               = &Error{Kind: IDNotFound, Err: errors.New("id not found")}
	ErrBQDisabled               = &Error{Kind: BQDisabled, Err: errors.New("binary quantization disabled")}
	ErrEmptyIndex               = &Error{Kind: EmptyIndex, Err: errors.New("index has no live vectors")}
	ErrUnsupportedFormatVersion = &Error{Kind: UnsupportedFormatVersion, Err: errors.New("unsupported snapshot format version")}
	ErrSnapshotCorrupted        = &Error{Kind: SnapshotCorrupted, Err: errors.New("snapshot corrupted")}
	ErrMemoryCritical           = &Error{Kind: MemoryCritical, Err: errors.New("memory pressure critical")}
	ErrUnsupportedMetric        = &Error{Kind: UnsupportedMetric, Err: errors.New("unsupported metric")}
	ErrInternal                 = &Error{Kind: Internal, Err: errors.New("internal error")}
)
