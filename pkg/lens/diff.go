package lens

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/ritzau/graph-explorer/pkg/view"
)

// ViewDiff represents the difference between two detail views
type ViewDiff struct {
	AddedNodes    []ViewNode `json:"addedNodes"`
	RemovedNodes  []string   `json:"removedNodes"`  // Node IDs
	ModifiedNodes []ViewNode `json:"modifiedNodes"` // Nodes with changed properties
	AddedEdges    []ViewEdge `json:"addedEdges"`
	RemovedEdges  []string   `json:"removedEdges"` // Edge keys (source|target|type)
	Selection     string     `json:"selection,omitempty"`
	FullView      bool       `json:"fullView"` // True if this carries the whole view, not a diff

	// SelectionChanged is set when Selection differs from the previous view
	SelectionChanged bool `json:"selectionChanged,omitempty"`
}

// Empty reports whether applying the diff would change nothing
func (d *ViewDiff) Empty() bool {
	return !d.FullView &&
		len(d.AddedNodes) == 0 && len(d.RemovedNodes) == 0 && len(d.ModifiedNodes) == 0 &&
		len(d.AddedEdges) == 0 && len(d.RemovedEdges) == 0 &&
		!d.SelectionChanged
}

// ViewSnapshot represents a cached view for diffing
type ViewSnapshot struct {
	// Hash is the ComputeHash of the state the view was rendered from, empty
	// when unknown
	Hash      string
	Nodes     map[string]ViewNode // nodeID -> node
	Edges     map[string]ViewEdge // edgeKey -> edge
	Selection string
}

// ComputeHash identifies a view state. Equal states over the same graph render
// equal views.
func ComputeHash(state *view.State) string {
	data := struct {
		Visible     []string
		Expanded    []string
		ActiveTypes []string
		Depth       int
		Selected    string
	}{
		Visible:     state.Visible.Sorted(),
		Expanded:    state.Expanded.Sorted(),
		ActiveTypes: state.ActiveTypes.Sorted(),
		Depth:       state.Depth,
		Selected:    state.Selected,
	}

	jsonData, err := json.Marshal(data)
	if err != nil {
		return ""
	}

	hash := sha256.Sum256(jsonData)
	return fmt.Sprintf("%x", hash)
}

// CreateSnapshot creates a snapshot from a view for diffing
func CreateSnapshot(v *View) *ViewSnapshot {
	snapshot := &ViewSnapshot{
		Nodes:     make(map[string]ViewNode, len(v.Nodes)),
		Edges:     make(map[string]ViewEdge, len(v.Edges)),
		Selection: v.Selection,
	}

	for _, node := range v.Nodes {
		snapshot.Nodes[node.ID] = node
	}
	for _, edge := range v.Edges {
		snapshot.Edges[edge.Key()] = edge
	}

	return snapshot
}

// ComputeDiff computes the difference between a cached snapshot and a new view.
// Results are sorted by id so equal inputs produce equal diffs.
func ComputeDiff(oldSnapshot *ViewSnapshot, newView *View) *ViewDiff {
	// If no old snapshot, return the full view
	if oldSnapshot == nil {
		return &ViewDiff{
			AddedNodes: newView.Nodes,
			AddedEdges: newView.Edges,
			Selection:  newView.Selection,
			FullView:   true,
		}
	}

	diff := &ViewDiff{
		AddedNodes:    make([]ViewNode, 0),
		RemovedNodes:  make([]string, 0),
		ModifiedNodes: make([]ViewNode, 0),
		AddedEdges:    make([]ViewEdge, 0),
		RemovedEdges:  make([]string, 0),
		Selection:     newView.Selection,
	}
	diff.SelectionChanged = oldSnapshot.Selection != newView.Selection

	newNodes := make(map[string]bool, len(newView.Nodes))
	for _, node := range newView.Nodes {
		newNodes[node.ID] = true
		if oldNode, exists := oldSnapshot.Nodes[node.ID]; exists {
			if !nodesEqual(oldNode, node) {
				diff.ModifiedNodes = append(diff.ModifiedNodes, node)
			}
		} else {
			diff.AddedNodes = append(diff.AddedNodes, node)
		}
	}
	for id := range oldSnapshot.Nodes {
		if !newNodes[id] {
			diff.RemovedNodes = append(diff.RemovedNodes, id)
		}
	}

	newEdges := make(map[string]bool, len(newView.Edges))
	for _, edge := range newView.Edges {
		key := edge.Key()
		newEdges[key] = true
		if _, exists := oldSnapshot.Edges[key]; !exists {
			diff.AddedEdges = append(diff.AddedEdges, edge)
		}
	}
	for key := range oldSnapshot.Edges {
		if !newEdges[key] {
			diff.RemovedEdges = append(diff.RemovedEdges, key)
		}
	}

	sort.Strings(diff.RemovedNodes)
	sort.Strings(diff.RemovedEdges)

	return diff
}

// edgeKey creates a unique key for an edge
func edgeKey(source, target, relationshipType string) string {
	return fmt.Sprintf("%s|%s|%s", source, target, relationshipType)
}

// nodesEqual checks if two nodes are equal, ignoring position which changes during layout
func nodesEqual(a, b ViewNode) bool {
	return a.ID == b.ID &&
		a.Name == b.Name &&
		a.Type == b.Type &&
		a.EvidenceCount == b.EvidenceCount &&
		a.Connections == b.Connections &&
		a.Expanded == b.Expanded &&
		distanceEqual(a.Distance, b.Distance)
}

func distanceEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
