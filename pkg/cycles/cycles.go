package cycles

import (
	"sort"

	"github.com/ritzau/graph-explorer/pkg/graph"
	"github.com/ritzau/graph-explorer/pkg/index"
)

// Cycle is a group of nodes that reach each other along directed edges
type Cycle struct {
	Nodes []string `json:"nodes"` // sorted node ids
}

// Find returns the cycles formed by edge direction in the snapshot, largest
// first. Edges with an inactive type are ignored; a nil activeTypes keeps
// every edge. Self loops are not reported.
func Find(idx *index.Index, activeTypes map[string]struct{}) []Cycle {
	var links [][2]string
	for _, edge := range idx.Edges() {
		if activeTypes != nil {
			if _, ok := activeTypes[edge.RelationshipType]; !ok {
				continue
			}
		}
		links = append(links, [2]string{edge.SourceID, edge.TargetID})
	}

	g, ids := graph.Directed(idx.Order(), links)

	order := make([]int64, ids.Len())
	for i := range order {
		order[i] = int64(i)
	}

	cycles := make([]Cycle, 0)
	for _, component := range newTarjan(g).components(order) {
		nodes := make([]string, len(component))
		for i, id := range component {
			nodes[i] = ids.Name(id)
		}
		sort.Strings(nodes)
		cycles = append(cycles, Cycle{Nodes: nodes})
	}

	sort.SliceStable(cycles, func(i, j int) bool {
		if len(cycles[i].Nodes) != len(cycles[j].Nodes) {
			return len(cycles[i].Nodes) > len(cycles[j].Nodes)
		}
		return cycles[i].Nodes[0] < cycles[j].Nodes[0]
	})
	return cycles
}
