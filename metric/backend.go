package metric

import "sync"

// backend groups the three hot-loop primitives eligible for SIMD
// acceleration: dot product, squared L2, and popcount. Exactly one
// backend is selected at process init and never switched again, so the
// hot loop itself never branches on capability.
type backend struct {
	name       string
	dotProduct func(a, b []float32) float32
	squaredL2  func(a, b []float32) float32
	popcountXOR func(a, b []byte) uint32
}

var (
	activeBackend backend
	backendOnce   sync.Once
)

func init() {
	backendOnce.Do(func() {
		activeBackend = detectBackend()
	})
}

// ActiveBackend reports the name of the backend selected at init, for
// diagnostics. It is the only process-wide state this package exposes,
// and it is read-only after init.
func ActiveBackend() string {
	return activeBackend.name
}

func dotProduct(a, b []float32) (float32, error) {
	return activeBackend.dotProduct(a, b), nil
}

func squaredL2(a, b []float32) float32 {
	return activeBackend.squaredL2(a, b)
}
