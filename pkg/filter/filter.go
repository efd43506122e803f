package filter

import (
	"sort"
	"strings"

	"github.com/ritzau/graph-explorer/pkg/index"
	"github.com/ritzau/graph-explorer/pkg/model"
	"github.com/ritzau/graph-explorer/pkg/view"
)

const (
	// DefaultInitialCap bounds the threshold-based initial visible set
	DefaultInitialCap = 50
	// DefaultSearchCap bounds the number of search matches shown
	DefaultSearchCap = 20
)

// ComputeInitialVisible returns up to cap node ids whose connection count is at
// least minConnections, by descending connection count. Ties keep input order.
// A cap of zero or less means DefaultInitialCap.
func ComputeInitialVisible(idx *index.Index, minConnections, cap int) []string {
	if cap <= 0 {
		cap = DefaultInitialCap
	}

	candidates := make([]string, 0, idx.Len())
	for _, id := range idx.Order() {
		if idx.ConnectionCount(id) >= minConnections {
			candidates = append(candidates, id)
		}
	}

	// Order() is input order, so a stable sort keeps ties deterministic
	sort.SliceStable(candidates, func(i, j int) bool {
		return idx.ConnectionCount(candidates[i]) > idx.ConnectionCount(candidates[j])
	})

	if len(candidates) > cap {
		candidates = candidates[:cap]
	}
	return candidates
}

// FilterEdgesForView keeps the edges whose endpoints are both visible and whose
// relationship type is active.
func FilterEdgesForView(edges []model.Edge, visible, activeTypes view.Set) []model.Edge {
	result := make([]model.Edge, 0)
	for _, edge := range edges {
		if !activeTypes.Has(edge.RelationshipType) {
			continue
		}
		if visible.Has(edge.SourceID) && visible.Has(edge.TargetID) {
			result = append(result, edge)
		}
	}
	return result
}

// match ranks, lower is better
const (
	matchExact = iota
	matchPrefix
	matchSubstring
)

// Search returns up to cap node ids whose name contains term, ignoring case.
// Exact name matches rank first, then prefix matches, then other matches;
// within a rank higher connection counts win and ties keep input order.
// The result is meant to replace the visible set, not to filter it.
// A blank term matches nothing. A cap of zero or less means DefaultSearchCap.
func Search(idx *index.Index, term string, cap int) []string {
	needle := strings.ToLower(strings.TrimSpace(term))
	if needle == "" {
		return nil
	}
	if cap <= 0 {
		cap = DefaultSearchCap
	}

	type hit struct {
		id   string
		rank int
	}
	var hits []hit
	for _, id := range idx.Order() {
		node, _ := idx.Node(id)
		name := strings.ToLower(strings.TrimSpace(node.Name))
		switch {
		case name == needle:
			hits = append(hits, hit{id, matchExact})
		case strings.HasPrefix(name, needle):
			hits = append(hits, hit{id, matchPrefix})
		case strings.Contains(name, needle):
			hits = append(hits, hit{id, matchSubstring})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].rank != hits[j].rank {
			return hits[i].rank < hits[j].rank
		}
		return idx.ConnectionCount(hits[i].id) > idx.ConnectionCount(hits[j].id)
	})

	if len(hits) > cap {
		hits = hits[:cap]
	}
	result := make([]string, len(hits))
	for i, h := range hits {
		result[i] = h.id
	}
	return result
}
