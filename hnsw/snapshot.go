package hnsw

import (
	"math/rand"
	"sort"

	"github.com/edgevec/edgevec/vectorstore"
)

// Params exposes the graph's construction parameters, for the snapshot
// codec's GRAPH_PARAMS section.
func (g *Graph) Params() Params { return g.params }

// EntryPoint returns the graph's current entry point and whether one
// has been established yet (false only for a graph with zero nodes).
func (g *Graph) EntryPoint() (vectorstore.VectorId, bool) {
	return g.entryPoint, g.hasEntry
}

// TopLayer returns the highest layer any node currently occupies.
func (g *Graph) TopLayer() int { return g.topLayer }

// NodeTopLayer returns the index of the highest layer assigned to id at
// insertion time (len(neighbors)-1), for the snapshot codec's per-node
// GRAPH_LAYERS "top_layer" field.
func (g *Graph) NodeTopLayer(id vectorstore.VectorId) (int, bool) {
	n, ok := g.nodes[id]
	if !ok {
		return 0, false
	}
	return len(n.neighbors) - 1, true
}

// LayerNeighbors returns id's neighbour list at layer, in the order the
// graph currently holds it (not guaranteed to be sorted by distance).
func (g *Graph) LayerNeighbors(id vectorstore.VectorId, layer int) ([]Result, bool) {
	n, ok := g.nodes[id]
	if !ok || layer < 0 || layer >= len(n.neighbors) {
		return nil, false
	}
	out := make([]Result, len(n.neighbors[layer]))
	for i, s := range n.neighbors[layer] {
		out[i] = Result{ID: s.id, Dist: s.dist}
	}
	return out, true
}

// NewFromSnapshot builds a Graph whose structure is dictated entirely by
// a decoded snapshot rather than by running the insertion protocol.
// Nodes must be added via RestoreNode in ascending id order matching the
// GRAPH_LAYERS section layout (one entry per graph node, tombstoned
// ones included); SetEntryPoint must be called once after every node is
// restored.
func NewFromSnapshot(params Params, dist func(a, b []float32) (float32, error), getVector func(id vectorstore.VectorId) ([]float32, bool)) *Graph {
	return &Graph{
		params:    params,
		dist:      dist,
		getVector: getVector,
		nodes:     make(map[vectorstore.VectorId]*node),
		rng:       rand.New(rand.NewSource(params.Seed)),
		mL:        params.levelMultiplier(),
	}
}

// RestoreNode inserts id into the graph with an already-decoded
// per-layer neighbour list, bypassing level sampling and the
// neighbour-selection heuristic entirely (the snapshot already
// captured their outcome).
func (g *Graph) RestoreNode(id vectorstore.VectorId, layers [][]Result) {
	n := &node{neighbors: make([][]scored, len(layers))}
	for lc, edges := range layers {
		n.neighbors[lc] = make([]scored, len(edges))
		for i, e := range edges {
			n.neighbors[lc][i] = scored{id: e.ID, dist: e.Dist}
		}
	}
	g.nodes[id] = n
}

// SetEntryPoint fixes the graph's entry point and top layer after a
// RestoreNode pass, mirroring the snapshot's GRAPH_PARAMS
// entry_point_id/top_layer fields.
func (g *Graph) SetEntryPoint(id vectorstore.VectorId, topLayer int) {
	g.entryPoint = id
	g.hasEntry = true
	g.topLayer = topLayer
}

// SizeBytes estimates the live memory footprint of the graph's neighbor
// lists (16 bytes per edge: an 8-byte VectorId plus a 4-byte distance,
// rounded up for slice-header overhead), for the memory-pressure
// monitor. It walks every resident node, including tombstoned-but-
// uncompacted ones, since their neighbor lists still occupy memory
// until compaction.
func (g *Graph) SizeBytes() int64 {
	var total int64
	for _, n := range g.nodes {
		for _, layer := range n.neighbors {
			total += int64(len(layer)) * 16
		}
	}
	return total
}

// NodeIDs returns every id the graph currently holds a node for
// (including tombstoned-but-uncompacted ones), in ascending order, for
// the snapshot codec's GRAPH_LAYERS section.
func (g *Graph) NodeIDs() []vectorstore.VectorId {
	out := make([]vectorstore.VectorId, 0, len(g.nodes))
	for id := range g.nodes {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
