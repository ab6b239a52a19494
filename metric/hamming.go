package metric

import "github.com/edgevec/edgevec/internal/apperr"

// HammingDistanceFunc computes the popcount of the XOR of two equal-length
// packed bitstrings.
type HammingDistanceFunc func(a, b []byte) (uint32, error)

// HammingDistance returns the active backend's Hamming distance function.
// The backend is chosen once at init (see backend.go) and this function
// never branches per call on anything but the (already-selected)
// function pointer.
func HammingDistance() HammingDistanceFunc {
	return hammingDistance
}

func hammingDistance(a, b []byte) (uint32, error) {
	if len(a) != len(b) {
		return 0, apperr.New("metric.HammingDistance", apperr.DimensionMismatch, errBytesLenMismatch)
	}
	return activeBackend.popcountXOR(a, b), nil
}
