// Package metric implements EdgeVec's distance functions and the
// capability-detection seam that picks a backend for dot product, L2,
// and popcount once at init time.
//
// Every distance returned by this package satisfies "lower value = more
// similar", so the rest of the engine can treat every metric uniformly
// as a min-heap distance regardless of its underlying similarity sense.
package metric

import (
	"math"

	"github.com/edgevec/edgevec/internal/apperr"
)

// Metric identifies which distance function a component of the index
// was built with.
type Metric uint8

const (
	Cosine Metric = iota
	Dot
	L2
	Hamming
)

// String returns the metric's lower-case name: cosine, dot, l2 or
// hamming. The snapshot header stores the one-byte Tag, not this name.
func (m Metric) String() string {
	switch m {
	case Cosine:
		return "cosine"
	case Dot:
		return "dot"
	case L2:
		return "l2"
	case Hamming:
		return "hamming"
	default:
		return "unknown"
	}
}

// Tag returns the one-byte metric tag used by the v0.4 snapshot header.
func (m Metric) Tag() byte { return byte(m) }

// MetricFromTag parses a snapshot header's metric tag.
func MetricFromTag(tag byte) (Metric, bool) {
	switch Metric(tag) {
	case Cosine, Dot, L2, Hamming:
		return Metric(tag), true
	default:
		return 0, false
	}
}

// DenseDistanceFunc computes the distance between two equal-length f32
// vectors.
type DenseDistanceFunc func(a, b []float32) (float32, error)

// DenseDistance returns the distance function for m. Hamming is not a
// dense-vector metric and returns UnsupportedMetric.
func DenseDistance(m Metric) (DenseDistanceFunc, error) {
	switch m {
	case Cosine:
		return cosineDistance, nil
	case Dot:
		return dotDistance, nil
	case L2:
		return l2Distance, nil
	case Hamming:
		return nil, apperr.New("metric.DenseDistance", apperr.UnsupportedMetric, errUnsupportedDense)
	default:
		return nil, apperr.New("metric.DenseDistance", apperr.UnsupportedMetric, errUnknownMetric)
	}
}

func validateDense(a, b []float32) error {
	if len(a) != len(b) {
		return apperr.New("metric", apperr.DimensionMismatch, errLengthMismatch)
	}
	for _, v := range a {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return apperr.New("metric", apperr.InvalidInput, errNaNInf)
		}
	}
	for _, v := range b {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return apperr.New("metric", apperr.InvalidInput, errNaNInf)
		}
	}
	return nil
}

// cosineDistance implements cosine distance as 1 minus dot product,
// under the assumption that both inputs are already unit-normalised.
// Callers at the boundary normalise or reject; this function does not
// re-normalise.
func cosineDistance(a, b []float32) (float32, error) {
	if err := validateDense(a, b); err != nil {
		return 0, err
	}
	dot, err := dotProduct(a, b)
	if err != nil {
		return 0, err
	}
	return 1 - dot, nil
}

func dotDistance(a, b []float32) (float32, error) {
	if err := validateDense(a, b); err != nil {
		return 0, err
	}
	dot, err := dotProduct(a, b)
	if err != nil {
		return 0, err
	}
	return -dot, nil
}

func l2Distance(a, b []float32) (float32, error) {
	if err := validateDense(a, b); err != nil {
		return 0, err
	}
	return squaredL2(a, b), nil
}
