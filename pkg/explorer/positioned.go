package explorer

import (
	"context"

	"github.com/ritzau/graph-explorer/pkg/layout"
	"github.com/ritzau/graph-explorer/pkg/lens"
	"github.com/ritzau/graph-explorer/pkg/summary"
)

// PositionedBubble is a bubble with its canvas position
type PositionedBubble struct {
	summary.Bubble
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// SummaryView is the summary-mode output handed to a renderer
type SummaryView struct {
	Bubbles     []PositionedBubble  `json:"bubbles"`
	BubbleEdges []summary.Edge      `json:"bubbleEdges"`
	Diagnostics summary.Diagnostics `json:"diagnostics"`
	Converged   bool                `json:"converged"`
}

// DetailGraph returns the nodes and links a layout run needs for a detail view
func DetailGraph(v *lens.View) ([]string, []layout.Link) {
	nodes := make([]string, len(v.Nodes))
	for i, n := range v.Nodes {
		nodes[i] = n.ID
	}
	links := make([]layout.Link, len(v.Edges))
	for i, e := range v.Edges {
		links[i] = layout.Link{Source: e.Source, Target: e.Target}
	}
	return nodes, links
}

// ApplyPositions copies layout positions onto the view nodes
func ApplyPositions(v *lens.View, positions map[string]layout.Position) {
	for i := range v.Nodes {
		if p, ok := positions[v.Nodes[i].ID]; ok {
			v.Nodes[i].X = p.X
			v.Nodes[i].Y = p.Y
		}
	}
}

// PositionedDetail renders the detail view and lays it out
func (s *Session) PositionedDetail(ctx context.Context, coordinator *layout.Coordinator) (*lens.View, layout.Result, error) {
	v := s.Detail()
	nodes, links := DetailGraph(v)
	result, err := coordinator.Layout(ctx, nodes, links)
	if err != nil {
		return nil, layout.Result{}, err
	}
	ApplyPositions(v, result.Positions)
	return v, result, nil
}

// PositionedSummary lays out the bubble hierarchy of the current graph
func (s *Session) PositionedSummary(ctx context.Context, coordinator *layout.Coordinator) (*SummaryView, error) {
	return PositionSummary(ctx, coordinator, s.Summary())
}

// PositionSummary lays out a bubble hierarchy. Both hierarchy and related
// edges act as springs.
func PositionSummary(ctx context.Context, coordinator *layout.Coordinator, g *summary.Graph) (*SummaryView, error) {
	nodes := make([]string, len(g.Bubbles))
	for i, b := range g.Bubbles {
		nodes[i] = b.ID
	}
	links := make([]layout.Link, len(g.Edges))
	for i, e := range g.Edges {
		links[i] = layout.Link{Source: e.Source, Target: e.Target}
	}

	result, err := coordinator.Layout(ctx, nodes, links)
	if err != nil {
		return nil, err
	}

	out := &SummaryView{
		Bubbles:     make([]PositionedBubble, len(g.Bubbles)),
		BubbleEdges: g.Edges,
		Diagnostics: g.Diagnostics,
		Converged:   result.Converged,
	}
	for i, b := range g.Bubbles {
		p := result.Positions[b.ID]
		out.Bubbles[i] = PositionedBubble{Bubble: b, X: p.X, Y: p.Y}
	}
	return out, nil
}
