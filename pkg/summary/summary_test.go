package summary

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/ritzau/graph-explorer/pkg/index"
	"github.com/ritzau/graph-explorer/pkg/model"
)

func sampleIndex() *index.Index {
	nodes := []model.Node{
		{ID: "c1", Name: "Customer KYC Review", EvidenceCount: 9},
		{ID: "c2", Name: "Customer Profile", EvidenceCount: 7},
		{ID: "c3", Name: "Account Opening", EvidenceCount: 5},
		{ID: "c4", Name: "Client Contact", EvidenceCount: 5},
		{ID: "c5", Name: "Customer Notes", EvidenceCount: 1},
		{ID: "o1", Name: "Settlement Order Placement", EvidenceCount: 4},
		{ID: "p1", Name: "Payment Clearing", EvidenceCount: 3},
		{ID: "p2", Name: "Refund Handling", EvidenceCount: 2},
		{ID: "u1", Name: "Quarterly Weather", EvidenceCount: 50},
	}
	edges := []model.Edge{
		{SourceID: "c1", TargetID: "c5", RelationshipType: "USES"},
		{SourceID: "c1", TargetID: "u1", RelationshipType: "USES"},
		{SourceID: "c2", TargetID: "o1", RelationshipType: "USES"},
		{SourceID: "o1", TargetID: "p2", RelationshipType: "TRIGGERS"},
		{SourceID: "o1", TargetID: "p1", RelationshipType: "TRIGGERS"},
		{SourceID: "c2", TargetID: "p1", RelationshipType: "USES"},
	}
	return index.Build(nodes, edges)
}

func TestBuildHierarchy(t *testing.T) {
	g := Build(sampleIndex(), DefaultClassifier())

	customer, ok := g.Bubble("category:customer-account-management")
	if !ok {
		t.Fatalf("Missing customer category, bubbles: %+v", g.Bubbles)
	}
	if customer.Size != 27 {
		t.Errorf("Expected category size 27, got %d", customer.Size)
	}
	// c3 and c4 tie on evidence, input order decides
	want := []string{"topic:c1", "topic:c2", "topic:c3", "topic:c4"}
	if !reflect.DeepEqual(customer.SubtopicIDs, want) {
		t.Errorf("Expected topics %v, got %v", want, customer.SubtopicIDs)
	}

	// c5 did not make the topic cut but is c1's neighbour
	c1, _ := g.Bubble("topic:c1")
	if !reflect.DeepEqual(c1.SubtopicIDs, []string{"subtopic:c5"}) {
		t.Errorf("Expected c1 subtopics [subtopic:c5], got %v", c1.SubtopicIDs)
	}
	if g.NodeToBubble["c5"] != "subtopic:c5" {
		t.Errorf("Expected c5 to map to its subtopic, got %q", g.NodeToBubble["c5"])
	}
	sub, _ := g.Bubble("subtopic:c5")
	if sub.Category != "Customer & Account Management" || sub.Kind != KindSubtopic {
		t.Errorf("Unexpected subtopic %+v", sub)
	}

	// o1 is already a topic of its own category, so c2 links to it instead
	c2, _ := g.Bubble("topic:c2")
	if len(c2.SubtopicIDs) != 0 {
		t.Errorf("Expected c2 to have no subtopics, got %v", c2.SubtopicIDs)
	}
	if !reflect.DeepEqual(c2.ConnectedTopicIDs, []string{"topic:o1", "topic:p1"}) {
		t.Errorf("Expected c2 connected to o1 and p1, got %v", c2.ConnectedTopicIDs)
	}
	o1, _ := g.Bubble("topic:o1")
	if !reflect.DeepEqual(o1.ConnectedTopicIDs, []string{"topic:c2", "topic:p1", "topic:p2"}) {
		t.Errorf("Expected symmetric links on o1, got %v", o1.ConnectedTopicIDs)
	}
}

func TestUnclassifiedNodeIsAbsent(t *testing.T) {
	g := Build(sampleIndex(), DefaultClassifier())

	if _, ok := g.NodeToBubble["u1"]; ok {
		t.Error("Unclassified node must not map to a bubble")
	}
	for _, b := range g.Bubbles {
		if b.SourceNodeID == "u1" {
			t.Errorf("Unclassified node represented by %s", b.ID)
		}
	}
	if g.Diagnostics.Unclassified != 1 || !reflect.DeepEqual(g.Diagnostics.UnclassifiedIDs, []string{"u1"}) {
		t.Errorf("Expected diagnostics to report u1, got %+v", g.Diagnostics)
	}
}

func TestBuildEmpty(t *testing.T) {
	g := Build(index.Build(nil, nil), DefaultClassifier())

	if len(g.Bubbles) != 0 || len(g.Edges) != 0 || g.Diagnostics.Unclassified != 0 {
		t.Errorf("Expected empty summary, got %+v", g)
	}
}

func TestCategoryOrderFollowsRules(t *testing.T) {
	g := Build(sampleIndex(), DefaultClassifier())

	var categories []string
	for _, b := range g.Bubbles {
		if b.Kind == KindCategory {
			categories = append(categories, b.Name)
		}
	}
	want := []string{"Customer & Account Management", "Order Journey & Processes", "Payments & Settlement"}
	if !reflect.DeepEqual(categories, want) {
		t.Errorf("Expected categories %v, got %v", want, categories)
	}
}

func TestCategoryID(t *testing.T) {
	if got := categoryID("Risk & Compliance"); got != "category:risk-compliance" {
		t.Errorf("Unexpected id %q", got)
	}
	if got := categoryID("  People & Organisation!"); got != "category:people-organisation" {
		t.Errorf("Unexpected id %q", got)
	}
}

var words = []string{"Customer", "Order", "Payment", "Risk", "Product", "System", "Team", "Misc"}

func generatedIndex(names []int, ends []int) *index.Index {
	nodes := make([]model.Node, len(names))
	for i, n := range names {
		nodes[i] = model.Node{
			ID:            fmt.Sprintf("n%d", i),
			Name:          fmt.Sprintf("%s %d", words[n%len(words)], i),
			EvidenceCount: (n * 7) % 11,
		}
	}
	var edges []model.Edge
	for i := 0; i+1 < len(ends) && len(nodes) > 0; i += 2 {
		edges = append(edges, model.Edge{
			SourceID:         nodes[ends[i]%len(nodes)].ID,
			TargetID:         nodes[ends[i+1]%len(nodes)].ID,
			RelationshipType: "USES",
		})
	}
	return index.Build(nodes, edges)
}

func TestSummaryProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("bounded hierarchy with unique representation", prop.ForAll(
		func(names []int, ends []int) bool {
			g := Build(generatedIndex(names, ends), DefaultClassifier())

			categories := 0
			represented := make(map[string]bool)
			kinds := make(map[string]Bubble)
			for _, b := range g.Bubbles {
				kinds[b.ID] = b
			}
			for _, b := range g.Bubbles {
				switch b.Kind {
				case KindCategory:
					categories++
					if len(b.SubtopicIDs) > MaxTopics {
						return false
					}
					for _, id := range b.SubtopicIDs {
						if kinds[id].Category != b.Category {
							return false
						}
					}
				case KindTopic:
					if len(b.SubtopicIDs) > MaxSubtopics {
						return false
					}
				}
				if b.SourceNodeID != "" {
					if represented[b.SourceNodeID] {
						return false
					}
					represented[b.SourceNodeID] = true
				}
				for _, other := range b.ConnectedTopicIDs {
					found := false
					for _, back := range kinds[other].ConnectedTopicIDs {
						if back == b.ID {
							found = true
						}
					}
					if !found {
						return false
					}
				}
			}
			return categories <= MaxCategories
		},
		gen.SliceOf(gen.IntRange(0, 20)),
		gen.SliceOf(gen.IntRange(0, 60)),
	))

	properties.Property("deterministic for identical input", prop.ForAll(
		func(names []int, ends []int) bool {
			first := Build(generatedIndex(names, ends), DefaultClassifier())
			second := Build(generatedIndex(names, ends), DefaultClassifier())
			return reflect.DeepEqual(first, second)
		},
		gen.SliceOf(gen.IntRange(0, 20)),
		gen.SliceOf(gen.IntRange(0, 60)),
	))

	properties.TestingRun(t)
}
