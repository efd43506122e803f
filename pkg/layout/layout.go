package layout

import (
	"context"
	"math"
	"math/rand/v2"
)

// Position represents a 2D coordinate
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Link is an undirected spring between two nodes
type Link struct {
	Source string
	Target string
}

// Params configures a simulation. Width, Height and Padding describe the
// canvas positions are normalised into.
type Params struct {
	Iterations      int     // tick budget
	Width           float64 // canvas width
	Height          float64 // canvas height
	Padding         float64 // distance kept from the canvas border
	LinkDistance    float64 // rest length of a link
	LinkStrength    float64 // spring constant of a link, 0..1
	Repulsion       float64 // many-body charge
	Centering       float64 // pull towards the canvas centre, 0..1
	CollisionRadius float64 // nodes closer than twice this are pushed apart
	Tolerance       float64 // largest per-tick movement counted as converged
}

// DefaultParams returns the parameters used when nothing is configured
func DefaultParams() Params {
	return Params{
		Iterations:      300,
		Width:           1000,
		Height:          800,
		Padding:         50,
		LinkDistance:    80,
		LinkStrength:    0.7,
		Repulsion:       300,
		Centering:       0.05,
		CollisionRadius: 12,
		Tolerance:       0.1,
	}
}

// Result is the outcome of one simulation
type Result struct {
	Positions map[string]Position `json:"positions"`
	Ticks     int                 `json:"ticks"`
	Converged bool                `json:"converged"`
}

// Primitive is a force-directed layout algorithm. Implementations must draw
// every random number from src, stop within params.Iterations ticks and
// return ctx.Err() once ctx is done.
type Primitive interface {
	Simulate(ctx context.Context, nodes []string, links []Link, params Params, src rand.Source) (Result, error)
}

// normalizePositions scales positions to fit within the canvas. An axis with
// no spread is centred.
func normalizePositions(positions map[string]Position, width, height, padding float64) map[string]Position {
	if len(positions) == 0 {
		return positions
	}

	// Find bounds
	minX, maxX := math.MaxFloat64, -math.MaxFloat64
	minY, maxY := math.MaxFloat64, -math.MaxFloat64
	for _, pos := range positions {
		minX = math.Min(minX, pos.X)
		maxX = math.Max(maxX, pos.X)
		minY = math.Min(minY, pos.Y)
		maxY = math.Max(maxY, pos.Y)
	}

	targetWidth := width - 2*padding
	targetHeight := height - 2*padding

	scale := func(v, lo, hi, target, size float64) float64 {
		if hi-lo < 0.01 {
			return size / 2
		}
		return padding + ((v-lo)/(hi-lo))*target
	}

	normalized := make(map[string]Position, len(positions))
	for id, pos := range positions {
		normalized[id] = Position{
			X: scale(pos.X, minX, maxX, targetWidth, width),
			Y: scale(pos.Y, minY, maxY, targetHeight, height),
		}
	}
	return normalized
}

// uniqueNodes drops repeated ids while keeping order
func uniqueNodes(nodes []string) []string {
	seen := make(map[string]bool, len(nodes))
	result := make([]string, 0, len(nodes))
	for _, id := range nodes {
		if !seen[id] {
			seen[id] = true
			result = append(result, id)
		}
	}
	return result
}
