package hnsw

import "errors"

var (
	errEmptyIndex  = errors.New("graph has no vectors")
	errBadK        = errors.New("k must be >= 1")
	errBadEf       = errors.New("ef must be >= 1")
	errBadM        = errors.New("M must be >= 2")
	errUnknownNode = errors.New("vector id not present in graph")
)
