package explorer

import (
	"github.com/ritzau/graph-explorer/pkg/index"
	"github.com/ritzau/graph-explorer/pkg/logging"
	"github.com/ritzau/graph-explorer/pkg/model"
	"github.com/ritzau/graph-explorer/pkg/summary"
)

// Graph is everything derived from one snapshot. It is immutable and shared
// by every session until the next snapshot replaces it.
type Graph struct {
	Snapshot *model.Snapshot
	Index    *index.Index
	Summary  *summary.Graph
}

// Stats describes a graph for status endpoints
type Stats struct {
	Nodes             int      `json:"nodes"`
	Edges             int      `json:"edges"`
	DroppedEdges      int      `json:"droppedEdges"`
	RelationshipTypes []string `json:"relationshipTypes"`
	Bubbles           int      `json:"bubbles"`
	Unclassified      int      `json:"unclassified"`
}

// NewGraph indexes and summarises a snapshot. A nil snapshot is treated as empty.
func NewGraph(snapshot *model.Snapshot, classifier *summary.Classifier) *Graph {
	if snapshot == nil {
		snapshot = model.NewSnapshot()
	}
	if classifier == nil {
		classifier = summary.DefaultClassifier()
	}

	idx := index.Build(snapshot.Nodes, snapshot.Edges)
	if idx.DroppedEdges > 0 {
		logging.Warn("dropped dangling edges", "dropped", idx.DroppedEdges, "edges", len(snapshot.Edges))
	}

	return &Graph{
		Snapshot: snapshot,
		Index:    idx,
		Summary:  summary.Build(idx, classifier),
	}
}

// Stats returns the counts reported to clients and metrics
func (g *Graph) Stats() Stats {
	return Stats{
		Nodes:             g.Index.Len(),
		Edges:             len(g.Index.Edges()),
		DroppedEdges:      g.Index.DroppedEdges,
		RelationshipTypes: g.Index.RelationshipTypes(),
		Bubbles:           len(g.Summary.Bubbles),
		Unclassified:      g.Summary.Diagnostics.Unclassified,
	}
}
