package model

// DefaultRelationshipType is used for edges that arrive without a type label.
const DefaultRelationshipType = "RELATED"

// Snapshot is one immutable version of the raw knowledge graph as delivered by
// the extraction service. A new snapshot replaces the previous one wholesale.
type Snapshot struct {
	Nodes    []Node         `json:"nodes" yaml:"nodes"`
	Edges    []Edge         `json:"edges" yaml:"edges"`
	Metadata map[string]any `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// Node is a typed entity extracted from source documents.
type Node struct {
	ID            string         `json:"id" yaml:"id"`
	Type          string         `json:"type" yaml:"type"` // entity kind, e.g. "Process", "Customer"
	Name          string         `json:"name" yaml:"name"`
	Properties    map[string]any `json:"properties,omitempty" yaml:"properties,omitempty"`
	EvidenceCount int            `json:"evidenceCount" yaml:"evidenceCount"` // number of supporting citations
}

// Edge is a typed relationship between two nodes. Edges are directed in the
// data but every consumer in this module treats them as undirected.
type Edge struct {
	SourceID         string   `json:"sourceId" yaml:"sourceId"`
	TargetID         string   `json:"targetId" yaml:"targetId"`
	RelationshipType string   `json:"relationshipType" yaml:"relationshipType"` // e.g. "USES", "CONTAINS"
	Confidence       *float64 `json:"confidence,omitempty" yaml:"confidence,omitempty"`
	EvidenceCount    *int     `json:"evidenceCount,omitempty" yaml:"evidenceCount,omitempty"`
	SourceDocuments  []string `json:"sourceDocuments,omitempty" yaml:"sourceDocuments,omitempty"`
}

// NewSnapshot creates an empty snapshot.
func NewSnapshot() *Snapshot {
	return &Snapshot{
		Nodes: make([]Node, 0),
		Edges: make([]Edge, 0),
	}
}

// AddNode appends a node to the snapshot.
func (s *Snapshot) AddNode(node Node) {
	s.Nodes = append(s.Nodes, node)
}

// AddEdge appends an edge, filling in the default relationship type.
func (s *Snapshot) AddEdge(edge Edge) {
	if edge.RelationshipType == "" {
		edge.RelationshipType = DefaultRelationshipType
	}
	s.Edges = append(s.Edges, edge)
}

// Other returns the endpoint of e that is not id. For a self loop it returns id.
func (e Edge) Other(id string) string {
	if e.SourceID == id {
		return e.TargetID
	}
	return e.SourceID
}

// Key identifies an edge by endpoints and type, e.g. "a|b|USES".
func (e Edge) Key() string {
	return e.SourceID + "|" + e.TargetID + "|" + e.RelationshipType
}
