package cycles

import (
	"gonum.org/v1/gonum/graph"
)

// tarjan finds strongly connected components of a directed graph
type tarjan struct {
	graph   graph.Directed
	counter int
	stack   []int64
	onStack map[int64]bool
	order   map[int64]int
	low     map[int64]int
	found   [][]int64
}

func newTarjan(g graph.Directed) *tarjan {
	return &tarjan{
		graph:   g,
		onStack: make(map[int64]bool),
		order:   make(map[int64]int),
		low:     make(map[int64]int),
	}
}

// components returns every component with more than one node. Nodes are
// visited in ascending ID order so the result is stable.
func (t *tarjan) components(ids []int64) [][]int64 {
	for _, id := range ids {
		if _, visited := t.order[id]; !visited {
			t.visit(id)
		}
	}
	return t.found
}

func (t *tarjan) visit(id int64) {
	t.order[id] = t.counter
	t.low[id] = t.counter
	t.counter++

	t.stack = append(t.stack, id)
	t.onStack[id] = true

	successors := graph.NodesOf(t.graph.From(id))
	for _, successor := range successors {
		next := successor.ID()
		if _, visited := t.order[next]; !visited {
			t.visit(next)
			t.low[id] = min(t.low[id], t.low[next])
		} else if t.onStack[next] {
			t.low[id] = min(t.low[id], t.order[next])
		}
	}

	// id is the root of a component: pop it off the stack
	if t.low[id] != t.order[id] {
		return
	}
	var component []int64
	for {
		top := t.stack[len(t.stack)-1]
		t.stack = t.stack[:len(t.stack)-1]
		t.onStack[top] = false
		component = append(component, top)
		if top == id {
			break
		}
	}
	if len(component) > 1 {
		t.found = append(t.found, component)
	}
}
