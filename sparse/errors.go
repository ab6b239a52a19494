package sparse

import "errors"

var (
	errNaNInf    = errors.New("sparse vector value contains NaN or Inf")
	errUnsorted  = errors.New("sparse vector indices must be strictly ascending with no duplicates")
	errUnknownID = errors.New("sparse id not found")
	errBadK      = errors.New("k must be >= 1")
)
