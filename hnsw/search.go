package hnsw

import (
	"sort"

	"github.com/edgevec/edgevec/internal/apperr"
	"github.com/edgevec/edgevec/vectorstore"
)

// Result pairs a graph node with its distance to a query, in the
// metric the graph was built with ("lower is closer" for every
// metric.Metric).
type Result struct {
	ID   vectorstore.VectorId
	Dist float32
}

// Filter decides whether a candidate id may occupy a result slot.
// Returning false does not stop the traversal from exploring past the
// id (see searchLayer's doc comment): this preserves graph connectivity
// under a restrictive predicate, at the cost of possibly returning
// fewer than k results.
type Filter func(id vectorstore.VectorId) bool

// Search runs the standard greedy-descend-then-search_layer protocol
// for the k nearest neighbours of query, using the graph's default
// ef_search.
func (g *Graph) Search(query []float32, k int) ([]Result, error) {
	return g.search(query, k, 0, nil)
}

// SearchWithEf is Search with an explicit ef override. BQ search and BQ
// rescoring do not go through it: Index.SearchBQRescored draws its
// candidates from a brute-force scan of bq.Storage, not from the graph.
func (g *Graph) SearchWithEf(query []float32, k, ef int) ([]Result, error) {
	return g.search(query, k, ef, nil)
}

// SearchFiltered is Search restricted to ids for which filter returns
// true. The result may hold fewer than k entries if the frontier
// exhausts before k matches are found; this is not an error.
func (g *Graph) SearchFiltered(query []float32, k, ef int, filter Filter) ([]Result, error) {
	return g.search(query, k, ef, filter)
}

func (g *Graph) search(query []float32, k, ef int, filter Filter) ([]Result, error) {
	if k < 1 {
		return nil, apperr.New("hnsw.Search", apperr.InvalidParameter, errBadK)
	}
	if !g.hasEntry {
		return nil, nil
	}
	if ef < 1 {
		ef = g.params.EfSearch
	}
	if ef < k {
		ef = k
	}

	distanceFn := func(cand vectorstore.VectorId) (float32, error) {
		cv, ok := g.getVector(cand)
		if !ok {
			return 0, apperr.New("hnsw.Search", apperr.Internal, errUnknownNode)
		}
		return g.dist(query, cv)
	}

	curr := []vectorstore.VectorId{g.entryPoint}
	for lc := g.topLayer; lc > 0; lc-- {
		res, err := g.searchLayer(distanceFn, curr, 1, lc, nil)
		if err != nil {
			return nil, err
		}
		curr = idsOf(res)
	}

	res, err := g.searchLayer(distanceFn, curr, ef, 0, filter)
	if err != nil {
		return nil, err
	}
	sort.Slice(res, func(i, j int) bool { return less(res[i], res[j]) })
	if len(res) > k {
		res = res[:k]
	}

	out := make([]Result, len(res))
	for i, r := range res {
		out[i] = Result{ID: r.id, Dist: r.dist}
	}
	return out, nil
}
