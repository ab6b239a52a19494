package edgevec

import (
	"github.com/edgevec/edgevec/hnsw"
	"github.com/edgevec/edgevec/memorypressure"
	"github.com/edgevec/edgevec/metric"
)

// IndexConfig controls how a new Index is built: vector dimensionality,
// distance metric, HNSW construction parameters, whether to maintain a
// binary-quantized mirror, and the memory-pressure policy. Construct one
// with DefaultIndexConfig and layer ConfigOptions on top via the
// functional-options idiom.
type IndexConfig struct {
	Dimensions     int
	Metric         metric.Metric
	M              int
	EfConstruction int
	EfSearch       int
	UseBQ          bool
	RngSeed        int64
	MemoryConfig   memorypressure.Config
}

// DefaultIndexConfig returns the conventional HNSW parameter set
// (M=16, ef_construction=200, ef_search=100), Cosine metric, BQ
// disabled, and the default memory-pressure thresholds. Dimensions must
// still be set by the caller; NewIndex rejects 0.
func DefaultIndexConfig(dimensions int) IndexConfig {
	hp := hnsw.DefaultParams()
	return IndexConfig{
		Dimensions:     dimensions,
		Metric:         metric.Cosine,
		M:              hp.M,
		EfConstruction: hp.EfConstruction,
		EfSearch:       hp.EfSearch,
		UseBQ:          false,
		RngSeed:        hp.Seed,
		MemoryConfig:   memorypressure.DefaultConfig(),
	}
}

// ConfigOption mutates an IndexConfig under construction.
type ConfigOption func(*IndexConfig)

// WithMetric overrides the distance metric (default Cosine).
func WithMetric(m metric.Metric) ConfigOption {
	return func(c *IndexConfig) { c.Metric = m }
}

// WithM overrides the HNSW neighbour-degree target M (M0 derives as 2*M).
func WithM(m int) ConfigOption {
	return func(c *IndexConfig) { c.M = m }
}

// WithEfConstruction overrides the insertion-time candidate queue size.
func WithEfConstruction(ef int) ConfigOption {
	return func(c *IndexConfig) { c.EfConstruction = ef }
}

// WithEfSearch overrides the default query-time candidate queue size.
func WithEfSearch(ef int) ConfigOption {
	return func(c *IndexConfig) { c.EfSearch = ef }
}

// WithBQ enables maintaining a binary-quantized mirror alongside dense
// storage. Dimensions must be divisible by 8 for this to succeed.
func WithBQ(enabled bool) ConfigOption {
	return func(c *IndexConfig) { c.UseBQ = enabled }
}

// WithRngSeed fixes the level-sampling RNG seed for reproducible graph
// shape across runs.
func WithRngSeed(seed int64) ConfigOption {
	return func(c *IndexConfig) { c.RngSeed = seed }
}

// WithMemoryConfig overrides the memory-pressure thresholds and policy.
func WithMemoryConfig(mc memorypressure.Config) ConfigOption {
	return func(c *IndexConfig) { c.MemoryConfig = mc }
}

// NewIndexConfig builds an IndexConfig from DefaultIndexConfig(dimensions)
// with opts applied in order.
func NewIndexConfig(dimensions int, opts ...ConfigOption) IndexConfig {
	cfg := DefaultIndexConfig(dimensions)
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

func (c IndexConfig) hnswParams() hnsw.Params {
	m0 := 2 * c.M
	return hnsw.Params{
		M:              c.M,
		M0:             m0,
		EfConstruction: c.EfConstruction,
		EfSearch:       c.EfSearch,
		Seed:           c.RngSeed,
	}
}
