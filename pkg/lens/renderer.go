package lens

import (
	"github.com/ritzau/graph-explorer/pkg/filter"
	"github.com/ritzau/graph-explorer/pkg/index"
	"github.com/ritzau/graph-explorer/pkg/logging"
	"github.com/ritzau/graph-explorer/pkg/model"
	"github.com/ritzau/graph-explorer/pkg/view"
)

// Render builds the detail view for a state: visible nodes in input order,
// the edges between them that pass the type filter, and the hop distance of
// each node from the selection. Positions are left at zero for the layout
// coordinator to fill in.
func Render(idx *index.Index, state *view.State) *View {
	v := &View{
		Nodes:     make([]ViewNode, 0, len(state.Visible)),
		Edges:     make([]ViewEdge, 0),
		Selection: state.Selected,
	}

	var distances map[string]int
	if state.Selected != "" {
		distances = Distances(idx, []string{state.Selected}, state.ActiveTypes)
	}

	for _, id := range idx.Order() {
		if !state.Visible.Has(id) {
			continue
		}
		node, _ := idx.Node(id)
		vn := ViewNode{
			ID:            node.ID,
			Name:          displayName(node),
			Type:          node.Type,
			EvidenceCount: node.EvidenceCount,
			Connections:   idx.ConnectionCount(id),
			Expanded:      state.Expanded.Has(id),
		}
		if d, ok := distances[id]; ok {
			vn.Distance = &d
		}
		v.Nodes = append(v.Nodes, vn)
	}

	seen := make(map[string]bool)
	for _, edge := range filter.FilterEdgesForView(idx.Edges(), state.Visible, state.ActiveTypes) {
		ve := ViewEdge{Source: edge.SourceID, Target: edge.TargetID, RelationshipType: edge.RelationshipType}
		// Parallel edges of the same type render as one line
		if seen[ve.Key()] {
			continue
		}
		seen[ve.Key()] = true
		v.Edges = append(v.Edges, ve)
	}

	logging.Trace("rendered detail view", "nodes", len(v.Nodes), "edges", len(v.Edges), "selection", v.Selection)
	return v
}

func displayName(node model.Node) string {
	if node.Name != "" {
		return node.Name
	}
	return node.ID
}
