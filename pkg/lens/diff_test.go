package lens

import (
	"testing"

	"github.com/ritzau/graph-explorer/pkg/view"
)

func TestComputeDiffWithoutSnapshotIsFull(t *testing.T) {
	v := &View{Nodes: []ViewNode{{ID: "a"}}, Edges: []ViewEdge{}}

	diff := ComputeDiff(nil, v)

	if !diff.FullView || len(diff.AddedNodes) != 1 {
		t.Errorf("Expected full view with one node, got %+v", diff)
	}
}

func TestComputeDiff(t *testing.T) {
	old := &View{
		Nodes: []ViewNode{{ID: "a", Name: "A"}, {ID: "b", Name: "B"}, {ID: "gone"}},
		Edges: []ViewEdge{
			{Source: "a", Target: "b", RelationshipType: "USES"},
			{Source: "a", Target: "gone", RelationshipType: "USES"},
		},
	}
	two := 2
	next := &View{
		Nodes: []ViewNode{{ID: "a", Name: "A", X: 40}, {ID: "b", Name: "B", Distance: &two}, {ID: "c"}},
		Edges: []ViewEdge{
			{Source: "a", Target: "b", RelationshipType: "USES"},
			{Source: "b", Target: "c", RelationshipType: "OWNS"},
		},
		Selection: "a",
	}

	diff := ComputeDiff(CreateSnapshot(old), next)

	if diff.FullView {
		t.Error("Expected an incremental diff")
	}
	if len(diff.AddedNodes) != 1 || diff.AddedNodes[0].ID != "c" {
		t.Errorf("Expected c to be added, got %+v", diff.AddedNodes)
	}
	if len(diff.RemovedNodes) != 1 || diff.RemovedNodes[0] != "gone" {
		t.Errorf("Expected gone to be removed, got %v", diff.RemovedNodes)
	}
	// a only moved, b gained a distance
	if len(diff.ModifiedNodes) != 1 || diff.ModifiedNodes[0].ID != "b" {
		t.Errorf("Expected only b to be modified, got %+v", diff.ModifiedNodes)
	}
	if len(diff.AddedEdges) != 1 || diff.AddedEdges[0].Key() != "b|c|OWNS" {
		t.Errorf("Expected b|c|OWNS to be added, got %+v", diff.AddedEdges)
	}
	if len(diff.RemovedEdges) != 1 || diff.RemovedEdges[0] != "a|gone|USES" {
		t.Errorf("Expected a|gone|USES to be removed, got %v", diff.RemovedEdges)
	}
	if diff.Selection != "a" {
		t.Errorf("Expected selection a, got %q", diff.Selection)
	}
}

func TestComputeDiffOfIdenticalViewsIsEmpty(t *testing.T) {
	v := &View{Nodes: []ViewNode{{ID: "a"}}, Edges: []ViewEdge{}}

	if diff := ComputeDiff(CreateSnapshot(v), v); !diff.Empty() {
		t.Errorf("Expected empty diff, got %+v", diff)
	}
}

func TestComputeHashTracksState(t *testing.T) {
	a := view.NewState(1, 1, []string{"USES"})
	a.Visible = view.NewSet("x", "y")
	b := a.Clone()

	if ComputeHash(a) != ComputeHash(b) {
		t.Error("Expected equal states to hash equally")
	}
	b.Selected = "x"
	if ComputeHash(a) == ComputeHash(b) {
		t.Error("Expected selection to change the hash")
	}
}

func TestComputeDiffReportsSelectionChange(t *testing.T) {
	v := &View{Nodes: []ViewNode{{ID: "a"}}, Edges: []ViewEdge{}}
	selected := &View{Nodes: v.Nodes, Edges: v.Edges, Selection: "z"}

	diff := ComputeDiff(CreateSnapshot(v), selected)
	if !diff.SelectionChanged || diff.Empty() {
		t.Errorf("Expected a selection change, got %+v", diff)
	}

	if diff := ComputeDiff(CreateSnapshot(selected), selected); diff.SelectionChanged || !diff.Empty() {
		t.Errorf("Expected an unchanged selection to be empty, got %+v", diff)
	}
}
