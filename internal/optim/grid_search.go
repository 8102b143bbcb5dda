// Package optim fits model parameters to recorded data.
package optim

import (
	"context"
	"errors"
	"math"

	"github.com/ravi-mn/prognos/internal/prog"
	"github.com/ravi-mn/prognos/internal/sim"
)

// ErrNoCandidate reports that every grid point failed or scored NaN.
var ErrNoCandidate = errors.New("optim: no candidate produced a finite cost")

// Cost scores one candidate parameter set. Lower is better.
type Cost func(ctx context.Context, params map[string]float64) (float64, error)

type GridSearch struct {
	paramNames []string
	ranges     [][]float64
}

func NewGridSearch(params []string, ranges [][]float64) *GridSearch {
	return &GridSearch{paramNames: params, ranges: ranges}
}

// Search evaluates the full grid and returns the best parameter set with its
// cost. Candidates whose cost errors or is NaN are skipped.
func (g *GridSearch) Search(ctx context.Context, cost Cost) (map[string]float64, float64, error) {
	best := math.Inf(1)
	var bestParams map[string]float64

	g.searchRecursive(ctx, 0, make(map[string]float64), cost, &best, &bestParams)

	if bestParams == nil {
		return nil, best, ErrNoCandidate
	}
	return bestParams, best, nil
}

func (g *GridSearch) searchRecursive(
	ctx context.Context,
	depth int,
	current map[string]float64,
	cost Cost,
	best *float64,
	bestParams *map[string]float64,
) {
	if ctx.Err() != nil {
		return
	}
	if depth == len(g.paramNames) {
		val, err := cost(ctx, current)
		if err != nil || math.IsNaN(val) {
			return
		}
		if val < *best {
			*best = val
			*bestParams = make(map[string]float64)
			for k, v := range current {
				(*bestParams)[k] = v
			}
		}
		return
	}

	paramName := g.paramNames[depth]
	for _, val := range g.ranges[depth] {
		next := make(map[string]float64, len(current)+1)
		for k, v := range current {
			next[k] = v
		}
		next[paramName] = val

		g.searchRecursive(ctx, depth+1, next, cost, best, bestParams)
	}
}

// OutputMSE builds a cost that simulates a candidate model against recorded
// data and returns the mean squared error of its outputs at the recorded
// times. build constructs a model with the candidate parameters applied.
func OutputMSE(
	build func(params map[string]float64) (prog.Model, prog.Integrator, error),
	load prog.Loader,
	dt float64,
	times []float64,
	outputs []prog.Output,
) Cost {
	return func(ctx context.Context, params map[string]float64) (float64, error) {
		model, integ, err := build(params)
		if err != nil {
			return 0, err
		}

		opts := sim.DefaultOptions()
		opts.Dt = dt
		opts.Horizon = times[len(times)-1]
		opts.SaveFreq = 0
		opts.SavePts = times

		res, err := sim.New(model, integ).Simulate(ctx, load, opts)
		if err != nil {
			return 0, err
		}

		var sum float64
		var n int
		for i, target := range times {
			j := nearestIndex(res.Times, target)
			for key, want := range outputs[i] {
				d := res.Outputs[j][key] - want
				sum += d * d
				n++
			}
		}
		if n == 0 {
			return math.NaN(), nil
		}
		return sum / float64(n), nil
	}
}

func nearestIndex(times []float64, target float64) int {
	best := 0
	bestDist := math.Inf(1)
	for i, t := range times {
		if d := math.Abs(t - target); d < bestDist {
			best = i
			bestDist = d
		}
	}
	return best
}
