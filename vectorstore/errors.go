package vectorstore

import "errors"

var (
	errNaNInf    = errors.New("vector contains NaN or Inf")
	errUnknownID = errors.New("vector id not found")
)
