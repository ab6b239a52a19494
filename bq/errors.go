package bq

import "errors"

var errBadK = errors.New("k must be >= 1")
