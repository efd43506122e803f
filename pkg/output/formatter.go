package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/ritzau/graph-explorer/pkg/cycles"
	"github.com/ritzau/graph-explorer/pkg/explorer"
	"github.com/ritzau/graph-explorer/pkg/lens"
	"github.com/ritzau/graph-explorer/pkg/summary"
)

var (
	bold   = color.New(color.Bold)
	red    = color.New(color.FgRed)
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	cyan   = color.New(color.FgCyan)
)

// PrintStats prints the snapshot header shared by every report
func PrintStats(w io.Writer, source string, stats explorer.Stats) {
	bold.Fprintln(w, "Graph Explorer - Snapshot")
	bold.Fprintln(w, "=========================")
	fmt.Fprintf(w, "Source: %s\n", source)
	fmt.Fprintf(w, "Nodes: %d\n", stats.Nodes)
	fmt.Fprintf(w, "Edges: %d\n", stats.Edges)
	if stats.DroppedEdges > 0 {
		yellow.Fprintf(w, "Dropped edges: %d (dangling endpoints)\n", stats.DroppedEdges)
	}
	if len(stats.RelationshipTypes) > 0 {
		fmt.Fprintf(w, "Relationship types: %s\n", strings.Join(stats.RelationshipTypes, ", "))
	}
	fmt.Fprintln(w)
}

// PrintSummary prints the bubble hierarchy as an indented tree
func PrintSummary(w io.Writer, view *explorer.SummaryView) {
	bold.Fprintln(w, "SUMMARY:")

	byID := make(map[string]explorer.PositionedBubble, len(view.Bubbles))
	for _, b := range view.Bubbles {
		byID[b.ID] = b
	}

	for _, b := range view.Bubbles {
		if b.Kind != summary.KindCategory {
			continue
		}
		cyan.Fprintf(w, "%s (%d)\n", b.Name, b.Size)
		for _, topicID := range b.SubtopicIDs {
			topic := byID[topicID]
			fmt.Fprintf(w, "  %s", topic.Name)
			printPosition(w, topic)
			for _, subID := range topic.SubtopicIDs {
				sub := byID[subID]
				fmt.Fprintf(w, "    %s", sub.Name)
				printPosition(w, sub)
			}
		}
	}

	related := 0
	for _, e := range view.BubbleEdges {
		if e.Kind == summary.EdgeRelated {
			related++
		}
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Bubbles: %d, related links: %d\n", len(view.Bubbles), related)

	if view.Diagnostics.Unclassified > 0 {
		yellow.Fprintf(w, "Unclassified: %d node(s)\n", view.Diagnostics.Unclassified)
	} else {
		green.Fprintln(w, "Every node is classified")
	}
	if !view.Converged {
		yellow.Fprintln(w, "Layout stopped at its tick budget")
	}
}

func printPosition(w io.Writer, b explorer.PositionedBubble) {
	fmt.Fprintf(w, " @ (%.0f, %.0f)\n", b.X, b.Y)
}

// PrintDetail prints the nodes and edges of a detail view
func PrintDetail(w io.Writer, view *lens.View) {
	bold.Fprintf(w, "DETAIL: %d node(s), %d edge(s)\n", len(view.Nodes), len(view.Edges))
	if view.Selection != "" {
		fmt.Fprintf(w, "Selected: %s\n", view.Selection)
	}

	for _, n := range view.Nodes {
		marker := " "
		if n.ID == view.Selection {
			marker = "*"
		}
		fmt.Fprintf(w, "%s %s ", marker, n.ID)
		cyan.Fprintf(w, "%q", n.Name)
		fmt.Fprintf(w, " [%s] connections=%d evidence=%d", n.Type, n.Connections, n.EvidenceCount)
		if n.Distance != nil {
			fmt.Fprintf(w, " distance=%d", *n.Distance)
		}
		fmt.Fprintln(w)
	}

	if len(view.Edges) > 0 {
		fmt.Fprintln(w)
		for _, e := range view.Edges {
			fmt.Fprintf(w, "  %s -[%s]- %s\n", e.Source, e.RelationshipType, e.Target)
		}
	}
	fmt.Fprintln(w)
}

// PrintCycles prints strongly connected groups of nodes
func PrintCycles(w io.Writer, found []cycles.Cycle) {
	if len(found) == 0 {
		green.Fprintln(w, "✓ No cycles found")
		return
	}
	red.Fprintf(w, "CYCLES: %d\n", len(found))
	for _, c := range found {
		yellow.Fprintf(w, "  %s\n", strings.Join(c.Nodes, " <-> "))
	}
}
