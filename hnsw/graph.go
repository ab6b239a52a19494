package hnsw

import (
	"container/heap"
	"math"
	"math/rand"
	"sort"

	"github.com/edgevec/edgevec/internal/apperr"
	"github.com/edgevec/edgevec/metric"
	"github.com/edgevec/edgevec/vectorstore"
)

// node is a graph vertex: a VectorId plus its per-layer neighbour
// lists. len(neighbors) == level+1; neighbors[0] is the base layer.
type node struct {
	neighbors [][]scored
}

// Graph is a multi-layer HNSW index over VectorIds. It never copies or
// owns vector payloads: distance computation always goes through
// getVector, which the owning index supplies (typically
// vectorstore.Storage.RawAny). Graph carries no internal lock; callers
// are responsible for not calling Insert concurrently with itself or
// with a search.
type Graph struct {
	params    Params
	dist      metric.DenseDistanceFunc
	getVector func(id vectorstore.VectorId) ([]float32, bool)

	nodes      map[vectorstore.VectorId]*node
	entryPoint vectorstore.VectorId
	hasEntry   bool
	topLayer   int

	rng *rand.Rand
	mL  float64
}

// New builds an empty graph. dist is the metric used to compare dense
// vectors; getVector resolves a VectorId to its payload (and must
// return ok=false only for ids the graph has never seen — tombstoned
// but un-compacted ids must still resolve, so traversal through them
// stays possible).
func New(params Params, dist metric.DenseDistanceFunc, getVector func(id vectorstore.VectorId) ([]float32, bool)) (*Graph, error) {
	if params.M < 2 {
		return nil, apperr.New("hnsw.New", apperr.InvalidParameter, errBadM)
	}
	if params.M0 < 2 {
		params.M0 = 2 * params.M
	}
	if params.EfConstruction < 1 {
		params.EfConstruction = 1
	}
	if params.EfSearch < 1 {
		params.EfSearch = 1
	}
	return &Graph{
		params:    params,
		dist:      dist,
		getVector: getVector,
		nodes:     make(map[vectorstore.VectorId]*node),
		rng:       rand.New(rand.NewSource(params.Seed)),
		mL:        params.levelMultiplier(),
	}, nil
}

// Len reports how many nodes (including unreachable-but-resident ones)
// the graph holds.
func (g *Graph) Len() int { return len(g.nodes) }

// selectLevel samples floor(-ln(U)*mL) for U uniform on (0,1].
func (g *Graph) selectLevel() int {
	u := g.rng.Float64()
	for u == 0 {
		u = g.rng.Float64()
	}
	return int(math.Floor(-math.Log(u) * g.mL))
}

// Insert adds id with payload vec to the graph. vec must already be
// resolvable through getVector (the owning index inserts into
// vectorstore before calling this).
func (g *Graph) Insert(id vectorstore.VectorId, vec []float32) error {
	level := g.selectLevel()
	n := &node{neighbors: make([][]scored, level+1)}
	g.nodes[id] = n

	if !g.hasEntry {
		g.entryPoint = id
		g.hasEntry = true
		g.topLayer = level
		return nil
	}

	distanceFn := func(cand vectorstore.VectorId) (float32, error) {
		cv, ok := g.getVector(cand)
		if !ok {
			return 0, apperr.New("hnsw.Insert", apperr.Internal, errUnknownNode)
		}
		return g.dist(vec, cv)
	}

	currNearest := []vectorstore.VectorId{g.entryPoint}
	for lc := g.topLayer; lc > level; lc-- {
		res, err := g.searchLayer(distanceFn, currNearest, 1, lc, nil)
		if err != nil {
			delete(g.nodes, id)
			return err
		}
		currNearest = idsOf(res)
	}

	start := level
	if g.topLayer < start {
		start = g.topLayer
	}
	for lc := start; lc >= 0; lc-- {
		m := g.params.M
		if lc == 0 {
			m = g.params.M0
		}
		candidates, err := g.searchLayer(distanceFn, currNearest, g.params.EfConstruction, lc, nil)
		if err != nil {
			delete(g.nodes, id)
			return err
		}
		selected := g.selectNeighbors(candidates, m)
		n.neighbors[lc] = selected
		for _, nb := range selected {
			g.addEdge(nb.id, scored{id: id, dist: nb.dist}, lc)
			g.prune(nb.id, lc)
		}
		currNearest = idsOf(candidates)
	}

	if level > g.topLayer {
		g.topLayer = level
		g.entryPoint = id
	}
	return nil
}

// addEdge appends a neighbour edge to to's list at layer, assuming to
// already has a neighbour list at that layer (true for every id
// search_layer can return at that layer, by construction).
func (g *Graph) addEdge(to vectorstore.VectorId, edge scored, layer int) {
	nd, ok := g.nodes[to]
	if !ok || layer >= len(nd.neighbors) {
		return
	}
	nd.neighbors[layer] = append(nd.neighbors[layer], edge)
}

// prune re-applies the neighbour-selection heuristic to id's layer
// list if it has grown past its degree cap.
func (g *Graph) prune(id vectorstore.VectorId, layer int) {
	nd, ok := g.nodes[id]
	if !ok || layer >= len(nd.neighbors) {
		return
	}
	degreeCap := g.params.M
	if layer == 0 {
		degreeCap = g.params.M0
	}
	if len(nd.neighbors[layer]) <= degreeCap {
		return
	}
	nd.neighbors[layer] = g.selectNeighbors(nd.neighbors[layer], degreeCap)
}

// selectNeighbors implements the domination heuristic: repeatedly take
// the nearest remaining candidate and accept it unless some already
// accepted neighbour is closer to it than the query is.
func (g *Graph) selectNeighbors(candidates []scored, m int) []scored {
	sorted := make([]scored, len(candidates))
	copy(sorted, candidates)
	sort.Slice(sorted, func(i, j int) bool { return less(sorted[i], sorted[j]) })

	accepted := make([]scored, 0, m)
	for _, c := range sorted {
		if len(accepted) >= m {
			break
		}
		cVec, ok := g.getVector(c.id)
		if !ok {
			continue
		}
		dominated := false
		for _, r := range accepted {
			rVec, ok := g.getVector(r.id)
			if !ok {
				continue
			}
			drc, err := g.dist(cVec, rVec)
			if err == nil && drc < c.dist {
				dominated = true
				break
			}
		}
		if !dominated {
			accepted = append(accepted, c)
		}
	}
	return accepted
}

// searchLayer is the shared traversal core for both insertion and
// search. distanceFn computes the query's distance to a candidate id.
// Every unvisited neighbour is scored, and it joins the traversal
// frontier (candidates) when the result heap holds fewer than ef
// entries or it is closer than the current worst result. When filter
// is non-nil it only gates whether an id is allowed to occupy a result
// slot, never whether it joins the frontier, so a restrictive predicate
// narrows what is returned without narrowing what is explored.
func (g *Graph) searchLayer(distanceFn func(vectorstore.VectorId) (float32, error), entryPoints []vectorstore.VectorId, ef int, layer int, filter func(vectorstore.VectorId) bool) ([]scored, error) {
	visited := make(map[vectorstore.VectorId]bool, ef*2)
	candidates := newMinHeap()
	result := newMaxHeap()

	pushResult := func(s scored) {
		if filter != nil && !filter(s.id) {
			return
		}
		heap.Push(result, s)
		if result.Len() > ef {
			heap.Pop(result)
		}
	}

	for _, ep := range entryPoints {
		if visited[ep] {
			continue
		}
		visited[ep] = true
		d, err := distanceFn(ep)
		if err != nil {
			return nil, err
		}
		heap.Push(candidates, scored{id: ep, dist: d})
		pushResult(scored{id: ep, dist: d})
	}

	for candidates.Len() > 0 {
		c := heap.Pop(candidates).(scored)
		if result.Len() >= ef {
			worst := (*result)[0]
			if c.dist > worst.dist {
				break
			}
		}
		nd, ok := g.nodes[c.id]
		if !ok || layer >= len(nd.neighbors) {
			continue
		}
		for _, e := range nd.neighbors[layer] {
			if visited[e.id] {
				continue
			}
			visited[e.id] = true
			d, err := distanceFn(e.id)
			if err != nil {
				return nil, err
			}
			admit := result.Len() < ef
			if !admit {
				worst := (*result)[0]
				admit = d < worst.dist
			}
			if admit {
				heap.Push(candidates, scored{id: e.id, dist: d})
				pushResult(scored{id: e.id, dist: d})
			}
		}
	}

	out := make([]scored, len(*result))
	copy(out, *result)
	return out, nil
}

func idsOf(s []scored) []vectorstore.VectorId {
	out := make([]vectorstore.VectorId, len(s))
	for i, v := range s {
		out[i] = v.id
	}
	return out
}
