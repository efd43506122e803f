package summary

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ritzau/graph-explorer/pkg/index"
	"github.com/ritzau/graph-explorer/pkg/logging"
)

const (
	// MaxTopics is the number of topics selected per category
	MaxTopics = 4
	// MaxSubtopics is the number of subtopics selected per topic
	MaxSubtopics = 3
)

// Kind is the level of a bubble in the hierarchy
type Kind string

const (
	KindCategory Kind = "category"
	KindTopic    Kind = "topic"
	KindSubtopic Kind = "subtopic"
)

// Edge kinds
const (
	EdgeContains = "contains"
	EdgeRelated  = "related"
)

// Bubble is a summary-mode entity: a category, or a topic or subtopic standing
// in for one raw node.
type Bubble struct {
	ID                string   `json:"id"`
	Name              string   `json:"name"`
	Category          string   `json:"category"`
	Size              int      `json:"size"`
	Kind              Kind     `json:"kind"`
	SubtopicIDs       []string `json:"subtopicIds"`
	ConnectedTopicIDs []string `json:"connectedTopicIds"`
	SourceNodeID      string   `json:"sourceNodeId,omitempty"`
}

// Edge connects two bubbles
type Edge struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Kind   string `json:"kind"`
}

// Diagnostics reports what the summary left out
type Diagnostics struct {
	Unclassified    int      `json:"unclassified"`
	UnclassifiedIDs []string `json:"unclassifiedIds,omitempty"`
}

// Graph is the bubble hierarchy for one snapshot
type Graph struct {
	Bubbles      []Bubble          `json:"bubbles"`
	NodeToBubble map[string]string `json:"nodeToBubble"`
	Edges        []Edge            `json:"edges"`
	Diagnostics  Diagnostics       `json:"diagnostics"`
}

// Bubble returns the bubble with the given id
func (g *Graph) Bubble(id string) (Bubble, bool) {
	for _, b := range g.Bubbles {
		if b.ID == id {
			return b, true
		}
	}
	return Bubble{}, false
}

// builder accumulates bubbles while keeping their insertion order
type builder struct {
	idx          *index.Index
	bubbles      []*Bubble
	byID         map[string]*Bubble
	nodeToBubble map[string]string
	connected    map[string]map[string]struct{}
	edges        []Edge
}

func (b *builder) add(bubble *Bubble) {
	b.bubbles = append(b.bubbles, bubble)
	b.byID[bubble.ID] = bubble
	if bubble.SourceNodeID != "" {
		b.nodeToBubble[bubble.SourceNodeID] = bubble.ID
	}
}

func (b *builder) contain(parent *Bubble, child *Bubble) {
	parent.SubtopicIDs = append(parent.SubtopicIDs, child.ID)
	b.edges = append(b.edges, Edge{Source: parent.ID, Target: child.ID, Kind: EdgeContains})
}

// link connects two bubbles symmetrically, once per pair
func (b *builder) link(a, c string) {
	if _, exists := b.connected[a][c]; exists {
		return
	}
	b.connected[a][c] = struct{}{}
	b.connected[c][a] = struct{}{}
	b.edges = append(b.edges, Edge{Source: a, Target: c, Kind: EdgeRelated})
}

// Build reduces the indexed graph to a category, topic and subtopic hierarchy.
// Nodes no rule matches are left out and reported in the diagnostics. The
// result depends only on the input and its order.
func Build(idx *index.Index, classifier *Classifier) *Graph {
	b := &builder{
		idx:          idx,
		byID:         make(map[string]*Bubble),
		nodeToBubble: make(map[string]string),
		connected:    make(map[string]map[string]struct{}),
	}

	// 1. Classify every node, keeping input order within each category
	categoryOf := make(map[string]string, idx.Len())
	members := make(map[string][]string)
	var diagnostics Diagnostics
	for _, id := range idx.Order() {
		node, _ := idx.Node(id)
		label, ok := classifier.Classify(node)
		if !ok {
			diagnostics.Unclassified++
			diagnostics.UnclassifiedIDs = append(diagnostics.UnclassifiedIDs, id)
			continue
		}
		categoryOf[id] = label
		members[label] = append(members[label], id)
	}

	// 2. One bubble per non-empty category, sized by member evidence
	var categories []*Bubble
	for _, label := range classifier.Labels() {
		ids := members[label]
		if len(ids) == 0 {
			continue
		}
		size := 0
		for _, id := range ids {
			node, _ := idx.Node(id)
			size += node.EvidenceCount
		}
		id := categoryID(label)
		for n := 2; b.byID[id] != nil; n++ {
			id = fmt.Sprintf("%s-%d", categoryID(label), n)
		}
		category := &Bubble{
			ID:       id,
			Name:     label,
			Category: label,
			Size:     size,
			Kind:     KindCategory,
		}
		b.add(category)
		categories = append(categories, category)
	}

	// 3. Topics are the strongest members of each category
	var topics []*Bubble
	for _, category := range categories {
		for _, id := range b.strongest(members[category.Category], MaxTopics) {
			topic := b.nodeBubble("topic:", id, category.Category, KindTopic)
			b.add(topic)
			b.contain(category, topic)
			topics = append(topics, topic)
		}
	}

	// 4. Subtopics are the strongest classified neighbours not yet represented
	for _, topic := range topics {
		var candidates []string
		for _, neighbor := range idx.Neighbors(topic.SourceNodeID) {
			if _, classified := categoryOf[neighbor]; !classified {
				continue
			}
			if _, represented := b.nodeToBubble[neighbor]; represented {
				continue
			}
			candidates = append(candidates, neighbor)
		}
		for _, id := range b.strongest(candidates, MaxSubtopics) {
			subtopic := b.nodeBubble("subtopic:", id, topic.Category, KindSubtopic)
			b.add(subtopic)
			b.contain(topic, subtopic)
		}
	}

	// 5. Contract raw edges onto the bubbles that represent their endpoints
	for _, bubble := range b.bubbles {
		b.connected[bubble.ID] = make(map[string]struct{})
	}
	for _, edge := range idx.Edges() {
		from, ok := b.nodeToBubble[edge.SourceID]
		if !ok {
			continue
		}
		to, ok := b.nodeToBubble[edge.TargetID]
		if !ok || from == to {
			continue
		}
		b.link(from, to)
	}

	graph := &Graph{
		Bubbles:      make([]Bubble, len(b.bubbles)),
		NodeToBubble: b.nodeToBubble,
		Edges:        b.edges,
		Diagnostics:  diagnostics,
	}
	for i, bubble := range b.bubbles {
		connected := make([]string, 0, len(b.connected[bubble.ID]))
		for id := range b.connected[bubble.ID] {
			connected = append(connected, id)
		}
		sort.Strings(connected)
		bubble.ConnectedTopicIDs = connected
		if bubble.SubtopicIDs == nil {
			bubble.SubtopicIDs = []string{}
		}
		graph.Bubbles[i] = *bubble
	}
	if graph.Edges == nil {
		graph.Edges = []Edge{}
	}

	if diagnostics.Unclassified > 0 {
		logging.Warn("summary dropped unclassified nodes",
			"unclassified", diagnostics.Unclassified,
			"total", idx.Len())
	}
	logging.Debug("built summary graph",
		"categories", len(categories),
		"topics", len(topics),
		"bubbles", len(graph.Bubbles),
		"edges", len(graph.Edges))

	return graph
}

// strongest returns up to n ids by descending evidence, ties in input order
func (b *builder) strongest(ids []string, n int) []string {
	ranked := append([]string(nil), ids...)
	sort.SliceStable(ranked, func(i, j int) bool {
		a, _ := b.idx.Node(ranked[i])
		c, _ := b.idx.Node(ranked[j])
		if a.EvidenceCount != c.EvidenceCount {
			return a.EvidenceCount > c.EvidenceCount
		}
		return b.idx.Position(ranked[i]) < b.idx.Position(ranked[j])
	})
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

func (b *builder) nodeBubble(prefix, nodeID, category string, kind Kind) *Bubble {
	node, _ := b.idx.Node(nodeID)
	name := node.Name
	if name == "" {
		name = node.ID
	}
	return &Bubble{
		ID:           prefix + nodeID,
		Name:         name,
		Category:     category,
		Size:         node.EvidenceCount,
		Kind:         kind,
		SourceNodeID: nodeID,
	}
}

// categoryID turns a label into a stable id, e.g. "category:risk-compliance"
func categoryID(label string) string {
	var sb strings.Builder
	sb.WriteString("category:")
	dash := false
	for _, r := range strings.ToLower(label) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			sb.WriteRune(r)
			dash = false
			continue
		}
		if !dash && sb.Len() > len("category:") {
			sb.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(sb.String(), "-")
}
