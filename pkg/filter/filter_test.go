package filter

import (
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/ritzau/graph-explorer/pkg/index"
	"github.com/ritzau/graph-explorer/pkg/model"
	"github.com/ritzau/graph-explorer/pkg/view"
)

func scenarioIndex() *index.Index {
	return index.Build(
		[]model.Node{
			{ID: "A", Name: "A", EvidenceCount: 10},
			{ID: "B", Name: "B", EvidenceCount: 5},
		},
		[]model.Edge{{SourceID: "A", TargetID: "B", RelationshipType: "USES"}},
	)
}

func TestComputeInitialVisibleScenario(t *testing.T) {
	got := ComputeInitialVisible(scenarioIndex(), 1, 50)

	if fmt.Sprint(got) != "[A B]" {
		t.Errorf("Expected [A B], got %v", got)
	}
}

func TestComputeInitialVisibleThresholdAndCap(t *testing.T) {
	// hub connects to everyone, leaves have one connection, "lonely" has none
	nodes := []model.Node{{ID: "lonely"}, {ID: "hub"}}
	var edges []model.Edge
	for i := 0; i < 5; i++ {
		id := fmt.Sprintf("leaf%d", i)
		nodes = append(nodes, model.Node{ID: id})
		edges = append(edges, model.Edge{SourceID: "hub", TargetID: id, RelationshipType: "USES"})
	}
	idx := index.Build(nodes, edges)

	got := ComputeInitialVisible(idx, 1, 3)
	want := []string{"hub", "leaf0", "leaf1"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("Expected %v, got %v", want, got)
	}

	if got := ComputeInitialVisible(idx, 2, 50); fmt.Sprint(got) != "[hub]" {
		t.Errorf("Expected only the hub above threshold 2, got %v", got)
	}

	if got := ComputeInitialVisible(idx, 0, 0); len(got) != 7 {
		t.Errorf("Expected default cap to include all 7 nodes, got %d", len(got))
	}
}

func TestFilterEdgesForView(t *testing.T) {
	edges := []model.Edge{
		{SourceID: "A", TargetID: "B", RelationshipType: "USES"},
		{SourceID: "A", TargetID: "B", RelationshipType: "OWNS"},
		{SourceID: "A", TargetID: "C", RelationshipType: "USES"},
	}

	got := FilterEdgesForView(edges, view.NewSet("A", "B"), view.NewSet("USES"))

	if len(got) != 1 || got[0].RelationshipType != "USES" || got[0].TargetID != "B" {
		t.Errorf("Expected only A-USES-B, got %+v", got)
	}
}

func TestSearch(t *testing.T) {
	idx := index.Build(
		[]model.Node{
			{ID: "1", Name: "Order Review"},
			{ID: "2", Name: "Customer KYC Review"},
			{ID: "3", Name: "review"},
			{ID: "4", Name: "Settlement"},
			{ID: "5", Name: "Review Board"},
		},
		[]model.Edge{
			{SourceID: "2", TargetID: "4", RelationshipType: "USES"},
			{SourceID: "2", TargetID: "1", RelationshipType: "USES"},
		},
	)

	got := Search(idx, "REVIEW", 0)
	// exact, prefix, then substrings by connection count (2 has two edges, 1 has one)
	want := []string{"3", "5", "2", "1"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("Expected %v, got %v", want, got)
	}

	if got := Search(idx, "review", 2); len(got) != 2 {
		t.Errorf("Expected cap of 2, got %v", got)
	}
	if got := Search(idx, "   ", 5); got != nil {
		t.Errorf("Expected blank search to match nothing, got %v", got)
	}
	if got := Search(idx, "nothing like this", 5); len(got) != 0 {
		t.Errorf("Expected no matches, got %v", got)
	}
}

func TestInitialVisibleProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("result is the top-cap above threshold", prop.ForAll(
		func(n int, ends []int, threshold int, cap int) bool {
			nodes := make([]model.Node, n)
			for i := range nodes {
				nodes[i] = model.Node{ID: fmt.Sprintf("n%d", i)}
			}
			var edges []model.Edge
			for i := 0; i+1 < len(ends); i += 2 {
				edges = append(edges, model.Edge{
					SourceID:         fmt.Sprintf("n%d", ends[i]%max(n, 1)),
					TargetID:         fmt.Sprintf("n%d", ends[i+1]%max(n, 1)),
					RelationshipType: "USES",
				})
			}
			idx := index.Build(nodes, edges)
			got := ComputeInitialVisible(idx, threshold, cap)

			if len(got) > cap {
				return false
			}
			eligible := 0
			for _, id := range idx.Order() {
				if idx.ConnectionCount(id) >= threshold {
					eligible++
				}
			}
			if len(got) != min(cap, eligible) {
				return false
			}
			for i, id := range got {
				if idx.ConnectionCount(id) < threshold {
					return false
				}
				if i > 0 {
					prev := got[i-1]
					if idx.ConnectionCount(prev) < idx.ConnectionCount(id) {
						return false
					}
					if idx.ConnectionCount(prev) == idx.ConnectionCount(id) && idx.Position(prev) > idx.Position(id) {
						return false
					}
				}
			}
			// nothing left out may beat the weakest included node
			if len(got) > 0 {
				included := view.NewSet(got...)
				last := got[len(got)-1]
				for _, id := range idx.Order() {
					if !included.Has(id) && idx.ConnectionCount(id) > idx.ConnectionCount(last) {
						return false
					}
				}
			}
			return true
		},
		gen.IntRange(0, 15),
		gen.SliceOf(gen.IntRange(0, 30)),
		gen.IntRange(0, 4),
		gen.IntRange(1, 10),
	))

	properties.TestingRun(t)
}
