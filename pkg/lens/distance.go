package lens

import (
	"errors"
	"fmt"

	"github.com/ritzau/graph-explorer/pkg/index"
	"github.com/ritzau/graph-explorer/pkg/view"
)

// ErrUnknownNode is returned when a focus id does not resolve in the index
var ErrUnknownNode = errors.New("unknown node")

// ExpandOptions bounds a single expansion
type ExpandOptions struct {
	// Depth is the maximum number of hops, clamped to [view.MinDepth, view.MaxDepth]
	Depth int
	// MaxNodes caps how many ids one expansion may discover, 0 means unlimited
	MaxNodes int
}

// distanceQueueNode represents a node in the BFS queue
type distanceQueueNode struct {
	nodeID   string
	distance int
}

// Expand reveals the neighbourhood of focusID. It walks breadth-first over
// edges whose relationship type is active, at most opts.Depth hops, and unions
// every discovered id into the visible set. focusID itself becomes visible and
// expanded. Returns the ids that were not visible before, in discovery order.
func Expand(idx *index.Index, state *view.State, focusID string, opts ExpandOptions) ([]string, error) {
	if !idx.Has(focusID) {
		return nil, fmt.Errorf("expand %q: %w", focusID, ErrUnknownNode)
	}

	depth := view.ClampDepth(opts.Depth)
	discovered := walk(idx, []string{focusID}, state.ActiveTypes, depth, opts.MaxNodes)

	var added []string
	for _, step := range discovered {
		if !state.Visible.Has(step.nodeID) {
			state.Visible.Add(step.nodeID)
			added = append(added, step.nodeID)
		}
	}
	state.Expanded.Add(focusID)

	return added, nil
}

// Collapse marks focusID as no longer expanded. The visible set is left alone:
// nodes revealed by an expansion stay visible until the view is reset.
func Collapse(state *view.State, focusID string) bool {
	if !state.Expanded.Has(focusID) {
		return false
	}
	state.Expanded.Remove(focusID)
	return true
}

// Distances calculates the shortest hop count from each reachable node to the
// nearest seed, following only edges with an active relationship type. A nil
// activeTypes follows every edge. Unknown seeds are ignored and unreachable
// nodes are absent from the result.
func Distances(idx *index.Index, seeds []string, activeTypes view.Set) map[string]int {
	distances := make(map[string]int)
	for _, step := range walk(idx, seeds, activeTypes, -1, 0) {
		distances[step.nodeID] = step.distance
	}
	return distances
}

// walk runs a BFS from the seeds and returns every reached node with its
// distance, seeds first. maxDepth < 0 means unbounded; maxNodes counts only
// non-seed discoveries and 0 means unbounded.
func walk(idx *index.Index, seeds []string, activeTypes view.Set, maxDepth, maxNodes int) []distanceQueueNode {
	seen := make(map[string]bool)
	var order []distanceQueueNode

	// Initialize BFS queue with seeds at distance 0
	queue := []distanceQueueNode{}
	for _, id := range seeds {
		if !idx.Has(id) || seen[id] {
			continue
		}
		seen[id] = true
		start := distanceQueueNode{nodeID: id, distance: 0}
		queue = append(queue, start)
		order = append(order, start)
	}

	found := 0
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		if maxDepth >= 0 && current.distance >= maxDepth {
			continue
		}

		for _, edge := range idx.Incident(current.nodeID) {
			if activeTypes != nil && !activeTypes.Has(edge.RelationshipType) {
				continue
			}
			neighbor := edge.Other(current.nodeID)
			if seen[neighbor] {
				continue
			}
			if maxNodes > 0 && found >= maxNodes {
				return order
			}
			seen[neighbor] = true
			found++
			next := distanceQueueNode{nodeID: neighbor, distance: current.distance + 1}
			queue = append(queue, next)
			order = append(order, next)
		}
	}

	return order
}
