package edgevec

import (
	"errors"

	"github.com/edgevec/edgevec/internal/apperr"
)

// Local sentinels wrapped by this package's own apperr.Error{Op: "edgevec...."}
// constructions, mirroring the naming convention every subpackage's
// errors.go uses (e.g. hnsw/errors.go, vectorstore/errors.go).
var (
	errBadDimensions    = errors.New("dimensions must be > 0")
	errBadK             = errors.New("k must be >= 1")
	errBadRescoreFactor = errors.New("rescoreFactor must be >= 1")
	errMemoryCritical   = errors.New("memory pressure critical, inserts blocked")
	errBQDisabled       = errors.New("index was not built with binary quantization enabled")
	errUnknownSparseID  = errors.New("no sparse vectors have been inserted into this index")
)

// ErrorKind is the closed taxonomy of failure modes every fallible
// EdgeVec operation reports through. The core never panics on
// documented input; panics are reserved for invariant violations that
// should never occur.
type ErrorKind = apperr.Kind

// The members of the ErrorKind taxonomy, re-exported for callers who
// want to switch on err.(*Error).Kind without importing the internal
// package directly.
const (
	KindDimensionMismatch        = apperr.DimensionMismatch
	KindInvalidInput             = apperr.InvalidInput
	KindInvalidParameter         = apperr.InvalidParameter
	KindIDNotFound               = apperr.IDNotFound
	KindBQDisabled               = apperr.BQDisabled
	KindEmptyIndex               = apperr.EmptyIndex
	KindFilterParseError         = apperr.FilterParseError
	KindUnsupportedFormatVersion = apperr.UnsupportedFormatVersion
	KindSnapshotCorrupted        = apperr.SnapshotCorrupted
	KindMemoryCritical           = apperr.MemoryCritical
	KindUnsupportedMetric        = apperr.UnsupportedMetric
	KindInternal                 = apperr.Internal
)

// Error wraps an underlying error with the operation name and the
// ErrorKind it belongs to. Use errors.As to recover one from an error
// chain, or compare against the sentinels below with errors.Is.
type Error = apperr.Error

// Sentinel errors for errors.Is comparisons against a specific kind.
var (
	ErrDimensionMismatch        = apperr.ErrDimensionMismatch
	ErrInvalidInput             = apperr.ErrInvalidInput
	ErrInvalidParameter         = apperr.ErrInvalidParameter
	ErrIDNotFound               = apperr.ErrIDNotFound
	ErrBQDisabled               = apperr.ErrBQDisabled
	ErrEmptyIndex               = apperr.ErrEmptyIndex
	ErrUnsupportedFormatVersion = apperr.ErrUnsupportedFormatVersion
	ErrSnapshotCorrupted        = apperr.ErrSnapshotCorrupted
	ErrMemoryCritical           = apperr.ErrMemoryCritical
	ErrUnsupportedMetric        = apperr.ErrUnsupportedMetric
	ErrInternal                 = apperr.ErrInternal
)
