// Package hnsw implements a multi-layer navigable small-world graph for
// approximate nearest-neighbour search over dense vectors. The graph
// holds only VectorIds and per-layer neighbour lists; it never owns the
// vector payloads themselves, fetching them on demand through the
// getVector function it was built with.
package hnsw

import "math"

// Params configures graph construction and the default search recall
// vs. latency trade-off. All fields are set to widely used HNSW
// defaults unless overridden.
type Params struct {
	// M is the target neighbour degree on layers above 0.
	M int
	// M0 is the neighbour degree cap on layer 0. Conventionally 2*M.
	M0 int
	// EfConstruction is the candidate queue size used while inserting.
	EfConstruction int
	// EfSearch is the default candidate queue size used while querying,
	// when the caller does not override it per-call.
	EfSearch int
	// Seed drives the per-graph level-sampling RNG. Fixing it makes
	// insertion order (and therefore graph shape) reproducible in
	// tests.
	Seed int64
}

// DefaultParams returns the conventional parameter set: M=16, M0=32,
// EfConstruction=200, EfSearch=100.
func DefaultParams() Params {
	return Params{
		M:              16,
		M0:             32,
		EfConstruction: 200,
		EfSearch:       100,
		Seed:           1,
	}
}

// levelMultiplier returns mL = 1/ln(M), the exponential-decay constant
// used when sampling a new node's top layer.
func (p Params) levelMultiplier() float64 {
	return 1.0 / math.Log(float64(p.M))
}
