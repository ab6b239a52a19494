package hybrid

import "errors"

var (
	errNoDenseIndex  = errors.New("dense_k > 0 requires a dense index")
	errNoSparseIndex = errors.New("sparse_k > 0 requires a sparse index")
)
