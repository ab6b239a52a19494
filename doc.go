// Package edgevec is an embedded approximate-nearest-neighbor vector index.
//
// It ingests high-dimensional float32 vectors with optional structured
// metadata, supports similarity search with optional metadata filtering,
// persists its state to a byte slice (so a host can park it in IndexedDB,
// a file, or anywhere else byte-addressable storage lives), and offers a
// binary-quantized representation that trades a small amount of recall for
// a large reduction in memory and a faster search path.
//
// # Key components
//
//   - hnsw.Graph: the multi-layer proximity graph over dense vectors.
//   - bq.Storage: binary-quantized codes and Hamming-distance rescoring.
//   - sparse.Storage / sparse.Searcher: BM25/TF-IDF-shaped sparse retrieval.
//   - hybrid.Searcher: Reciprocal Rank Fusion and linear fusion of the two.
//   - metadata.Store and metadata/filter: per-vector metadata and its DSL.
//   - snapshot: the versioned, checksummed wire format (v0.4).
//
// # Concurrency
//
// Index is not safe for concurrent use. It runs single-threaded,
// cooperative, synchronous: there is no internal locking and no internal
// goroutine. A caller sharing an Index across goroutines must supply its
// own exclusion. See Index's method docs for which are read-only and
// which mutate.
package edgevec
