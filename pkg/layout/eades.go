package layout

import (
	"context"
	"math"
	"math/rand/v2"

	"github.com/ritzau/graph-explorer/pkg/graph"
	gonumlayout "gonum.org/v1/gonum/graph/layout"
)

// EadesPrimitive runs gonum's Eades spring embedder, which approximates
// repulsion with a Barnes-Hut tree and scales to larger views than
// ForcePrimitive.
type EadesPrimitive struct {
	// Rate is the gradient descent step, 0 means 0.1
	Rate float64
	// Theta is the Barnes-Hut accuracy threshold, 0 means 0.5
	Theta float64
}

// Simulate performs params.Iterations Eades updates, stopping early once no
// node moves more than params.Tolerance in an update. Eades works in unit
// distances, so params.Repulsion is scaled down by params.LinkDistance.
func (e EadesPrimitive) Simulate(ctx context.Context, nodes []string, links []Link, params Params, src rand.Source) (Result, error) {
	nodes = uniqueNodes(nodes)
	result := Result{Positions: make(map[string]Position, len(nodes))}
	if len(nodes) == 0 {
		result.Converged = true
		return result, nil
	}
	if len(nodes) == 1 {
		result.Positions[nodes[0]] = Position{X: params.Width / 2, Y: params.Height / 2}
		result.Converged = true
		return result, nil
	}

	pairs := make([][2]string, len(links))
	for i, l := range links {
		pairs[i] = [2]string{l.Source, l.Target}
	}
	g, ids := graph.Undirected(nodes, pairs)

	rate, theta := e.Rate, e.Theta
	if rate == 0 {
		rate = 0.1
	}
	if theta == 0 {
		theta = 0.5
	}
	repulsion := 1.0
	if params.LinkDistance > 0 && params.Repulsion > 0 {
		repulsion = params.Repulsion / params.LinkDistance
	}

	eades := gonumlayout.EadesR2{
		Updates:   params.Iterations,
		Repulsion: repulsion,
		Rate:      rate,
		Theta:     theta,
		Src:       src,
	}
	optimizer := gonumlayout.NewOptimizerR2(g, eades.Update)

	previous := make([]Position, ids.Len())
	tolerance := params.Tolerance / math.Max(params.LinkDistance, 1)
	for optimizer.Update() {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		result.Ticks++

		largest := 0.0
		for i := range previous {
			v := optimizer.Coord2(int64(i))
			if result.Ticks > 1 {
				largest = math.Max(largest, math.Hypot(v.X-previous[i].X, v.Y-previous[i].Y))
			}
			previous[i] = Position{X: v.X, Y: v.Y}
		}
		if result.Ticks > 1 && largest < tolerance {
			result.Converged = true
			break
		}
	}

	for i := range previous {
		v := optimizer.Coord2(int64(i))
		result.Positions[ids.Name(int64(i))] = Position{X: v.X, Y: v.Y}
	}
	return result, nil
}
