package metric

import "errors"

var (
	errLengthMismatch  = errors.New("vector lengths disagree")
	errNaNInf          = errors.New("vector contains NaN or Inf")
	errUnsupportedDense = errors.New("hamming is not a dense f32 metric")
	errUnknownMetric    = errors.New("unknown metric")
	errBytesLenMismatch = errors.New("byte sequences have different lengths")
)
