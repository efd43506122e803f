package source

import (
	"encoding/json"
	"fmt"
	"path"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ritzau/graph-explorer/pkg/logging"
	"github.com/ritzau/graph-explorer/pkg/model"
)

// Format is the encoding of a snapshot document
type Format int

const (
	FormatJSON Format = iota
	FormatYAML
)

func (f Format) String() string {
	if f == FormatYAML {
		return "yaml"
	}
	return "json"
}

// FormatFor picks the format from a file name or object key. Anything that
// is not .yaml or .yml is read as JSON.
func FormatFor(name string) Format {
	switch strings.ToLower(path.Ext(name)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// document is the loosely typed shape both encodings decode into. Field names
// vary between producers, so nodes and edges stay as maps until normalised.
type document struct {
	Nodes    []map[string]any `json:"nodes" yaml:"nodes"`
	Edges    []map[string]any `json:"edges" yaml:"edges"`
	Links    []map[string]any `json:"links" yaml:"links"`
	Metadata map[string]any   `json:"metadata" yaml:"metadata"`
}

// Decode parses a snapshot document. Besides the canonical field names it
// accepts the snake_case names and aliases older producers emit.
func Decode(data []byte, format Format) (*model.Snapshot, error) {
	var doc document
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to decode yaml snapshot: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to decode json snapshot: %w", err)
		}
	}

	snapshot := model.NewSnapshot()
	snapshot.Metadata = doc.Metadata

	skipped := 0
	for _, raw := range doc.Nodes {
		node, ok := decodeNode(raw)
		if !ok {
			skipped++
			continue
		}
		snapshot.AddNode(node)
	}
	if skipped > 0 {
		logging.Warn("skipped nodes without id", "skipped", skipped, "nodes", len(doc.Nodes))
	}

	// node-link documents call the edge list "links". Edges with a missing
	// endpoint are kept so the index drops and counts them with the dangling ones.
	for _, raw := range append(doc.Edges, doc.Links...) {
		snapshot.AddEdge(decodeEdge(raw))
	}

	return snapshot, nil
}

func decodeNode(raw map[string]any) (model.Node, bool) {
	id := stringField(raw, "id")
	if id == "" {
		return model.Node{}, false
	}

	node := model.Node{
		ID:   id,
		Type: stringField(raw, "type", "kind"),
		Name: stringField(raw, "name", "node_name", "label"),
	}
	if node.Name == "" {
		node.Name = id
	}
	if n, ok := intField(raw, "evidenceCount", "evidence_count"); ok {
		node.EvidenceCount = nonNegative(n)
	}
	if props, ok := raw["properties"].(map[string]any); ok {
		node.Properties = props
	}
	return node, true
}

func decodeEdge(raw map[string]any) model.Edge {
	edge := model.Edge{
		SourceID:         stringField(raw, "sourceId", "source_id", "source"),
		TargetID:         stringField(raw, "targetId", "target_id", "target"),
		RelationshipType: stringField(raw, "relationshipType", "relationship_type", "type", "label"),
	}
	if v, ok := floatField(raw, "confidence"); ok {
		edge.Confidence = &v
	}
	n, ok := intField(raw, "evidenceCount", "evidence_count")
	if !ok {
		n, ok = evidence(raw["evidence"])
	}
	if ok {
		n = nonNegative(n)
		edge.EvidenceCount = &n
	}
	edge.SourceDocuments = stringsField(raw, "sourceDocuments", "source_documents")
	return edge
}

// nonNegative clamps a count below zero to zero
func nonNegative(n int) int {
	if n < 0 {
		return 0
	}
	return n
}

// evidence is either a count or the list of citations
func evidence(v any) (int, bool) {
	switch e := v.(type) {
	case nil:
		return 0, false
	case []any:
		return len(e), true
	default:
		return toInt(e)
	}
}

func stringField(raw map[string]any, keys ...string) string {
	for _, k := range keys {
		v, ok := raw[k]
		if !ok || v == nil {
			continue
		}
		switch s := v.(type) {
		case string:
			if s != "" {
				return s
			}
		case float64:
			return strconv.FormatFloat(s, 'f', -1, 64)
		case int:
			return strconv.Itoa(s)
		default:
			return fmt.Sprint(s)
		}
	}
	return ""
}

func intField(raw map[string]any, keys ...string) (int, bool) {
	for _, k := range keys {
		if n, ok := toInt(raw[k]); ok {
			return n, true
		}
	}
	return 0, false
}

func floatField(raw map[string]any, keys ...string) (float64, bool) {
	for _, k := range keys {
		switch v := raw[k].(type) {
		case float64:
			return v, true
		case int:
			return float64(v), true
		case string:
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				return f, true
			}
		}
	}
	return 0, false
}

func stringsField(raw map[string]any, keys ...string) []string {
	for _, k := range keys {
		list, ok := raw[k].([]any)
		if !ok {
			continue
		}
		out := make([]string, 0, len(list))
		for _, item := range list {
			out = append(out, fmt.Sprint(item))
		}
		return out
	}
	return nil
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	case string:
		if i, err := strconv.Atoi(n); err == nil {
			return i, true
		}
	}
	return 0, false
}
