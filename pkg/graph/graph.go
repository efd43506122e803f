package graph

import (
	"gonum.org/v1/gonum/graph/simple"
)

// IDs maps string node ids to the int64 ids gonum works with
type IDs struct {
	ids   map[string]int64
	names []string // graph ID -> node id
}

func newIDs(capacity int) *IDs {
	return &IDs{
		ids:   make(map[string]int64, capacity),
		names: make([]string, 0, capacity),
	}
}

func (m *IDs) add(name string) (int64, bool) {
	if id, exists := m.ids[name]; exists {
		return id, false
	}
	id := int64(len(m.names))
	m.ids[name] = id
	m.names = append(m.names, name)
	return id, true
}

// ID returns the graph ID for a node id
func (m *IDs) ID(name string) (int64, bool) {
	id, ok := m.ids[name]
	return id, ok
}

// Name returns the node id for a graph ID
func (m *IDs) Name(id int64) string {
	if id < 0 || id >= int64(len(m.names)) {
		return ""
	}
	return m.names[id]
}

// Len returns the number of mapped nodes
func (m *IDs) Len() int {
	return len(m.names)
}

// Undirected builds a simple undirected graph over nodes. Links naming
// unknown nodes are ignored, as are self loops and repeated pairs, since
// simple graphs hold at most one edge per pair.
func Undirected(nodes []string, links [][2]string) (*simple.UndirectedGraph, *IDs) {
	g := simple.NewUndirectedGraph()
	ids := newIDs(len(nodes))

	for _, name := range nodes {
		if id, added := ids.add(name); added {
			g.AddNode(simple.Node(id))
		}
	}

	for _, link := range links {
		from, ok := ids.ID(link[0])
		if !ok {
			continue
		}
		to, ok := ids.ID(link[1])
		if !ok || from == to {
			continue
		}
		if !g.HasEdgeBetween(from, to) {
			g.SetEdge(g.NewEdge(g.Node(from), g.Node(to)))
		}
	}

	return g, ids
}

// Directed builds a simple directed graph keeping edge direction as given
func Directed(nodes []string, links [][2]string) (*simple.DirectedGraph, *IDs) {
	g := simple.NewDirectedGraph()
	ids := newIDs(len(nodes))

	for _, name := range nodes {
		if id, added := ids.add(name); added {
			g.AddNode(simple.Node(id))
		}
	}

	for _, link := range links {
		from, ok := ids.ID(link[0])
		if !ok {
			continue
		}
		to, ok := ids.ID(link[1])
		if !ok || from == to {
			continue
		}
		if !g.HasEdgeFromTo(from, to) {
			g.SetEdge(g.NewEdge(g.Node(from), g.Node(to)))
		}
	}

	return g, ids
}
