package layout

import (
	"context"
	"math"
	"math/rand/v2"
)

// ForcePrimitive is a Fruchterman-Reingold style simulation with springs on
// links, pairwise repulsion, a centring pull and collision separation.
type ForcePrimitive struct{}

// Simulate runs until the largest movement in a tick drops below
// params.Tolerance or the tick budget is spent.
func (ForcePrimitive) Simulate(ctx context.Context, nodes []string, links []Link, params Params, src rand.Source) (Result, error) {
	nodes = uniqueNodes(nodes)
	result := Result{Positions: make(map[string]Position, len(nodes))}
	if len(nodes) == 0 {
		result.Converged = true
		return result, nil
	}

	cx, cy := params.Width/2, params.Height/2

	// Single node - center it
	if len(nodes) == 1 {
		result.Positions[nodes[0]] = Position{X: cx, Y: cy}
		result.Converged = true
		return result, nil
	}

	rng := rand.New(src)
	index := make(map[string]int, len(nodes))
	xs := make([]float64, len(nodes))
	ys := make([]float64, len(nodes))
	for i, id := range nodes {
		index[id] = i
		xs[i] = rng.Float64() * params.Width
		ys[i] = rng.Float64() * params.Height
	}

	type spring struct{ a, b int }
	springs := make([]spring, 0, len(links))
	for _, l := range links {
		a, okA := index[l.Source]
		b, okB := index[l.Target]
		if okA && okB && a != b {
			springs = append(springs, spring{a, b})
		}
	}

	fx := make([]float64, len(nodes))
	fy := make([]float64, len(nodes))
	temperature := params.Width / 10
	minDist := 2 * params.CollisionRadius

	for tick := 0; tick < params.Iterations; tick++ {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}

		for i := range fx {
			fx[i], fy[i] = 0, 0
		}

		// Repulsion between all pairs, plus collision separation
		for i := 0; i < len(nodes); i++ {
			for j := i + 1; j < len(nodes); j++ {
				dx, dy := xs[i]-xs[j], ys[i]-ys[j]
				dist := math.Hypot(dx, dy)
				if dist < 0.01 {
					// coincident nodes get a deterministic nudge apart
					dx, dy, dist = 0.01, 0, 0.01
				}
				force := params.Repulsion * params.Repulsion / (dist * dist)
				if dist < minDist {
					force += (minDist - dist) / 2
				}
				ux, uy := dx/dist, dy/dist
				fx[i] += ux * force
				fy[i] += uy * force
				fx[j] -= ux * force
				fy[j] -= uy * force
			}
		}

		// Springs pull linked nodes towards their rest length
		for _, s := range springs {
			dx, dy := xs[s.b]-xs[s.a], ys[s.b]-ys[s.a]
			dist := math.Hypot(dx, dy)
			if dist < 0.01 {
				continue
			}
			force := (dist - params.LinkDistance) * params.LinkStrength
			ux, uy := dx/dist, dy/dist
			fx[s.a] += ux * force
			fy[s.a] += uy * force
			fx[s.b] -= ux * force
			fy[s.b] -= uy * force
		}

		// Apply forces limited by the temperature
		largest := 0.0
		for i := range nodes {
			fx[i] += (cx - xs[i]) * params.Centering
			fy[i] += (cy - ys[i]) * params.Centering

			force := math.Hypot(fx[i], fy[i])
			if force == 0 {
				continue
			}
			step := math.Min(force, temperature)
			xs[i] += fx[i] / force * step
			ys[i] += fy[i] / force * step
			largest = math.Max(largest, step)
		}

		result.Ticks = tick + 1
		temperature *= 0.95
		if largest < params.Tolerance {
			result.Converged = true
			break
		}
	}

	for i, id := range nodes {
		result.Positions[id] = Position{X: xs[i], Y: ys[i]}
	}
	return result, nil
}
