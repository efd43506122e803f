package lens

// ViewNode is a node as rendered in the detail view
type ViewNode struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Type          string `json:"type"`
	EvidenceCount int    `json:"evidenceCount"`
	Connections   int    `json:"connections"`
	Expanded      bool   `json:"expanded,omitempty"`
	// Distance is the hop count from the selected node, nil when there is no
	// selection or the node cannot be reached from it
	Distance *int    `json:"distance,omitempty"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
}

// ViewEdge is an edge between two visible nodes
type ViewEdge struct {
	Source           string `json:"source"`
	Target           string `json:"target"`
	RelationshipType string `json:"relationshipType"`
}

// Key identifies an edge by endpoints and type
func (e ViewEdge) Key() string {
	return edgeKey(e.Source, e.Target, e.RelationshipType)
}

// View is the detail-mode output handed to a renderer
type View struct {
	Nodes     []ViewNode `json:"nodes"`
	Edges     []ViewEdge `json:"edges"`
	Selection string     `json:"selection,omitempty"`
}
