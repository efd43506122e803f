package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fatih/color"

	"github.com/ritzau/graph-explorer/pkg/cycles"
	"github.com/ritzau/graph-explorer/pkg/explorer"
	"github.com/ritzau/graph-explorer/pkg/lens"
	"github.com/ritzau/graph-explorer/pkg/summary"
)

func init() {
	color.NoColor = true
}

func TestPrintStats(t *testing.T) {
	var buf bytes.Buffer
	PrintStats(&buf, "graph.json", explorer.Stats{
		Nodes:             3,
		Edges:             2,
		DroppedEdges:      1,
		RelationshipTypes: []string{"PAYS", "USES"},
	})

	out := buf.String()
	for _, want := range []string{"Source: graph.json", "Nodes: 3", "Edges: 2", "Dropped edges: 1", "PAYS, USES"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %q in output:\n%s", want, out)
		}
	}
}

func TestPrintSummary(t *testing.T) {
	view := &explorer.SummaryView{
		Bubbles: []explorer.PositionedBubble{
			{Bubble: summary.Bubble{ID: "category:systems", Name: "Systems", Size: 2, Kind: summary.KindCategory, SubtopicIDs: []string{"topic:B"}}},
			{Bubble: summary.Bubble{ID: "topic:B", Name: "CRM Platform", Kind: summary.KindTopic, SubtopicIDs: []string{"subtopic:C"}}, X: 100, Y: 200},
			{Bubble: summary.Bubble{ID: "subtopic:C", Name: "Billing DB", Kind: summary.KindSubtopic}, X: 150, Y: 250},
		},
		BubbleEdges: []summary.Edge{
			{Source: "category:systems", Target: "topic:B", Kind: summary.EdgeContains},
		},
		Diagnostics: summary.Diagnostics{Unclassified: 2},
	}

	var buf bytes.Buffer
	PrintSummary(&buf, view)
	out := buf.String()

	for _, want := range []string{
		"Systems (2)\n",
		"  CRM Platform @ (100, 200)\n",
		"    Billing DB @ (150, 250)\n",
		"Bubbles: 3, related links: 0",
		"Unclassified: 2 node(s)",
		"Layout stopped at its tick budget",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %q in output:\n%s", want, out)
		}
	}
}

func TestPrintDetail(t *testing.T) {
	one := 1
	view := &lens.View{
		Nodes: []lens.ViewNode{
			{ID: "A", Name: "Order Intake", Type: "Process", Connections: 1, EvidenceCount: 10},
			{ID: "B", Name: "CRM Platform", Type: "System", Connections: 1, Distance: &one},
		},
		Edges:     []lens.ViewEdge{{Source: "A", Target: "B", RelationshipType: "USES"}},
		Selection: "A",
	}

	var buf bytes.Buffer
	PrintDetail(&buf, view)
	out := buf.String()

	for _, want := range []string{
		"DETAIL: 2 node(s), 1 edge(s)",
		`* A "Order Intake" [Process] connections=1 evidence=10`,
		"distance=1",
		"A -[USES]- B",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %q in output:\n%s", want, out)
		}
	}
}

func TestPrintCycles(t *testing.T) {
	var buf bytes.Buffer
	PrintCycles(&buf, nil)
	if !strings.Contains(buf.String(), "No cycles found") {
		t.Errorf("Expected the no-cycle message, got %q", buf.String())
	}

	buf.Reset()
	PrintCycles(&buf, []cycles.Cycle{{Nodes: []string{"A", "B"}}})
	if !strings.Contains(buf.String(), "A <-> B") {
		t.Errorf("Expected the cycle members, got %q", buf.String())
	}
}
