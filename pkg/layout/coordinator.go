package layout

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/ritzau/graph-explorer/pkg/logging"
)

// Layout run outcomes, as reported to a Recorder
const (
	OutcomeConverged = "converged"
	OutcomeBudget    = "budget"
	OutcomeCancelled = "cancelled"
	OutcomeError     = "error"
)

// Recorder observes finished layout runs
type Recorder interface {
	ObserveLayout(outcome string, duration time.Duration)
}

// Coordinator runs a Primitive against the current view. It owns the seeded
// generator every run draws its initial positions from, so a coordinator
// created with the same seed replays the same sequence of layouts.
type Coordinator struct {
	primitive Primitive
	params    Params
	recorder  Recorder

	mu         sync.Mutex
	rng        *rand.Rand
	cancel     context.CancelFunc
	generation uint64
}

// NewCoordinator creates a coordinator seeded with seed
func NewCoordinator(primitive Primitive, params Params, seed uint64) *Coordinator {
	return &Coordinator{
		primitive: primitive,
		params:    params,
		rng:       rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// SetRecorder installs a recorder for run outcomes
func (c *Coordinator) SetRecorder(r Recorder) {
	c.recorder = r
}

// Params returns the simulation parameters
func (c *Coordinator) Params() Params {
	return c.params
}

func (c *Coordinator) nextSource() rand.Source {
	c.mu.Lock()
	defer c.mu.Unlock()
	return rand.NewPCG(c.rng.Uint64(), c.rng.Uint64())
}

// Layout computes positions synchronously. Positions are normalised into the
// canvas. Running out of budget is not an error: the best positions so far
// are returned with Converged false.
func (c *Coordinator) Layout(ctx context.Context, nodes []string, links []Link) (Result, error) {
	start := time.Now()
	result, err := c.primitive.Simulate(ctx, nodes, links, c.params, c.nextSource())
	duration := time.Since(start)

	outcome := OutcomeConverged
	switch {
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		outcome = OutcomeCancelled
	case err != nil:
		outcome = OutcomeError
	case !result.Converged:
		outcome = OutcomeBudget
	}
	if c.recorder != nil {
		c.recorder.ObserveLayout(outcome, duration)
	}

	if err != nil {
		if outcome == OutcomeCancelled {
			return Result{}, err
		}
		return Result{}, fmt.Errorf("layout simulation: %w", err)
	}

	logging.Debug("layout finished",
		"nodes", len(result.Positions),
		"ticks", result.Ticks,
		"converged", result.Converged,
		"durationMs", duration.Milliseconds())

	result.Positions = normalizePositions(result.Positions, c.params.Width, c.params.Height, c.params.Padding)
	return result, nil
}

// Restart cancels any run started by a previous Restart and lays out the new
// graph in the background. done is called with the result unless the run is
// superseded or ctx is cancelled first.
func (c *Coordinator) Restart(ctx context.Context, nodes []string, links []Link, done func(Result, error)) {
	runCtx, cancel := context.WithCancel(ctx)

	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
	}
	c.cancel = cancel
	c.generation++
	generation := c.generation
	c.mu.Unlock()

	nodes = append([]string(nil), nodes...)
	links = append([]Link(nil), links...)

	go func() {
		defer cancel()
		result, err := c.Layout(runCtx, nodes, links)

		c.mu.Lock()
		current := generation == c.generation
		c.mu.Unlock()

		if !current || runCtx.Err() != nil {
			logging.Trace("discarding superseded layout", "generation", generation)
			return
		}
		done(result, err)
	}()
}

// Stop cancels the in-flight run, if any
func (c *Coordinator) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.generation++
}
