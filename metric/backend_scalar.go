//go:build !amd64 && !arm64

package metric

// detectBackend selects the portable scalar backend on architectures
// without a dedicated fast path below. A reference scalar path must
// always exist and agree with any accelerated backend within a tight
// per-metric tolerance; on these architectures the reference path *is*
// the active backend.
func detectBackend() backend {
	return backend{
		name:        "scalar",
		dotProduct:  referenceDotProduct,
		squaredL2:   referenceSquaredL2,
		popcountXOR: referencePopcountXOR,
	}
}
