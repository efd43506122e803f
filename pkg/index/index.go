package index

import (
	"sort"

	"github.com/ritzau/graph-explorer/pkg/model"
)

// Index is the derived, read-only view of a snapshot used by every other
// component: node lookup, undirected adjacency and connection counts.
// It is rebuilt for every snapshot and never mutated afterwards.
type Index struct {
	nodes     map[string]model.Node
	order     []string       // node ids in input order
	position  map[string]int // node id -> position in order
	edges     []model.Edge   // validated edges in input order
	adjacency map[string]map[string]struct{}
	neighbors map[string][]string // adjacency in order of first connecting edge
	incident  map[string][]int    // node id -> indices into edges
	counts    map[string]int

	// DroppedEdges is the number of input edges discarded because an
	// endpoint did not resolve to a node.
	DroppedEdges int
}

// Build indexes the given nodes and edges. Edges with dangling endpoints are
// dropped, duplicate node ids keep their first occurrence. Runs in
// O(|nodes| + |edges|).
func Build(nodes []model.Node, edges []model.Edge) *Index {
	idx := &Index{
		nodes:     make(map[string]model.Node, len(nodes)),
		order:     make([]string, 0, len(nodes)),
		position:  make(map[string]int, len(nodes)),
		edges:     make([]model.Edge, 0, len(edges)),
		adjacency: make(map[string]map[string]struct{}, len(nodes)),
		neighbors: make(map[string][]string, len(nodes)),
		incident:  make(map[string][]int, len(nodes)),
		counts:    make(map[string]int, len(nodes)),
	}

	for _, node := range nodes {
		if _, exists := idx.nodes[node.ID]; exists {
			continue
		}
		idx.position[node.ID] = len(idx.order)
		idx.order = append(idx.order, node.ID)
		idx.nodes[node.ID] = node
		idx.adjacency[node.ID] = make(map[string]struct{})
		idx.counts[node.ID] = 0
	}

	for _, edge := range edges {
		if !idx.Has(edge.SourceID) || !idx.Has(edge.TargetID) {
			idx.DroppedEdges++
			continue
		}
		if edge.RelationshipType == "" {
			edge.RelationshipType = model.DefaultRelationshipType
		}

		i := len(idx.edges)
		idx.edges = append(idx.edges, edge)

		idx.link(edge.SourceID, edge.TargetID)
		idx.incident[edge.SourceID] = append(idx.incident[edge.SourceID], i)
		idx.counts[edge.SourceID]++

		// A self loop is incident to its node once
		if edge.TargetID != edge.SourceID {
			idx.link(edge.TargetID, edge.SourceID)
			idx.incident[edge.TargetID] = append(idx.incident[edge.TargetID], i)
			idx.counts[edge.TargetID]++
		}
	}

	return idx
}

func (idx *Index) link(from, to string) {
	if _, exists := idx.adjacency[from][to]; exists {
		return
	}
	idx.adjacency[from][to] = struct{}{}
	idx.neighbors[from] = append(idx.neighbors[from], to)
}

// Len returns the number of indexed nodes.
func (idx *Index) Len() int {
	return len(idx.order)
}

// Has reports whether id names an indexed node.
func (idx *Index) Has(id string) bool {
	_, ok := idx.nodes[id]
	return ok
}

// Node returns the node with the given id.
func (idx *Index) Node(id string) (model.Node, bool) {
	node, ok := idx.nodes[id]
	return node, ok
}

// Order returns node ids in input order. The slice must not be modified.
func (idx *Index) Order() []string {
	return idx.order
}

// Position returns the input position of a node, or -1 if it is unknown.
func (idx *Index) Position(id string) int {
	if pos, ok := idx.position[id]; ok {
		return pos
	}
	return -1
}

// Edges returns the validated edges in input order. The slice must not be modified.
func (idx *Index) Edges() []model.Edge {
	return idx.edges
}

// Adjacent reports whether a and b share at least one edge.
func (idx *Index) Adjacent(a, b string) bool {
	_, ok := idx.adjacency[a][b]
	return ok
}

// Neighbors returns the distinct neighbours of id, ordered by the first edge
// connecting them.
func (idx *Index) Neighbors(id string) []string {
	return idx.neighbors[id]
}

// Incident returns every validated edge touching id, parallel edges included.
func (idx *Index) Incident(id string) []model.Edge {
	positions := idx.incident[id]
	result := make([]model.Edge, len(positions))
	for i, p := range positions {
		result[i] = idx.edges[p]
	}
	return result
}

// ConnectionCount returns the number of validated edges incident to id.
func (idx *Index) ConnectionCount(id string) int {
	return idx.counts[id]
}

// ConnectionCounts returns a copy of the node id -> connection count map.
func (idx *Index) ConnectionCounts() map[string]int {
	counts := make(map[string]int, len(idx.counts))
	for id, c := range idx.counts {
		counts[id] = c
	}
	return counts
}

// RelationshipTypes returns every relationship type present, sorted.
func (idx *Index) RelationshipTypes() []string {
	seen := make(map[string]bool)
	var types []string
	for _, edge := range idx.edges {
		if !seen[edge.RelationshipType] {
			seen[edge.RelationshipType] = true
			types = append(types, edge.RelationshipType)
		}
	}
	sort.Strings(types)
	return types
}
