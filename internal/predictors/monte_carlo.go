// Package predictors turns a state estimate into a prediction of when each
// failure event will occur. Prediction propagates state uncertainty forward
// with the model, so time of event comes back as a distribution rather than
// a point.
package predictors

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"sync"

	"github.com/ravi-mn/prognos/internal/prog"
	"github.com/ravi-mn/prognos/internal/sim"
	"github.com/ravi-mn/prognos/internal/uncertainty"
)

// Prediction holds per-event time of event samples plus the saved trajectory
// of each sample. ToE samples where an event never occurred within the
// horizon are NaN.
type Prediction struct {
	ToE          *uncertainty.UnweightedSamples
	Trajectories []*sim.Result
}

// MonteCarloOptions configures a Monte Carlo prediction.
type MonteCarloOptions struct {
	NumSamples int
	Sim        sim.Options
	Seed       int64
}

// DefaultMonteCarloOptions runs 100 samples with default sim options over a
// 10000 time unit horizon.
func DefaultMonteCarloOptions() MonteCarloOptions {
	opts := sim.DefaultOptions()
	opts.Horizon = 1e4
	return MonteCarloOptions{NumSamples: 100, Sim: opts}
}

// MonteCarlo predicts time of event by sampling the state estimate and
// simulating every sample to threshold, one goroutine per sample. Each
// sample gets its own integrator and noise generator; integrators carry
// scratch state and rand generators are not safe to share across goroutines.
type MonteCarlo struct {
	model    prog.Model
	newInteg func() prog.Integrator

	procNoise *prog.Noise
}

// NewMonteCarlo builds a predictor for m. newInteg is called once per sample
// to construct that sample's integrator; nil means the simulator's default.
func NewMonteCarlo(m prog.Model, newInteg func() prog.Integrator) *MonteCarlo {
	return &MonteCarlo{model: m, newInteg: newInteg}
}

// SetProcessNoise applies process noise during sample propagation.
func (mc *MonteCarlo) SetProcessNoise(n *prog.Noise) { mc.procNoise = n }

// Predict samples initial states from the estimate and simulates each until
// every watched event has occurred or the horizon is reached. Watched events
// default to all of the model's events; narrow them with opts.Sim.Events.
func (mc *MonteCarlo) Predict(ctx context.Context, state uncertainty.Distribution, load prog.Loader, opts MonteCarloOptions) (*Prediction, error) {
	if opts.NumSamples <= 0 {
		opts.NumSamples = 100
	}
	events := opts.Sim.Events
	if len(events) == 0 {
		events = mc.model.Events()
	}

	rng := rand.New(rand.NewSource(opts.Seed))
	x0s := state.Sample(opts.NumSamples, rng)

	toeSamples := make([]map[string]float64, opts.NumSamples)
	trajectories := make([]*sim.Result, opts.NumSamples)
	errs := make([]error, opts.NumSamples)

	var wg sync.WaitGroup
	for i := 0; i < opts.NumSamples; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			noise := mc.procNoise.Fork(opts.Seed + int64(i) + 1)
			toeSamples[i], trajectories[i], errs[i] = mc.predictSample(ctx, prog.State(x0s.At(i)), load, noise, events, opts.Sim)
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	return &Prediction{
		ToE:          uncertainty.NewUnweightedSamples(toeSamples),
		Trajectories: trajectories,
	}, nil
}

// predictSample runs one sample to threshold repeatedly, peeling off events
// as they occur, until all watched events have fired or the horizon is hit.
func (mc *MonteCarlo) predictSample(ctx context.Context, x0 prog.State, load prog.Loader, noise *prog.Noise, events []string, opts sim.Options) (map[string]float64, *sim.Result, error) {
	var integ prog.Integrator
	if mc.newInteg != nil {
		integ = mc.newInteg()
	}
	s := sim.New(mc.model, integ)
	s.SetProcessNoise(noise)

	toe := make(map[string]float64, len(events))
	for _, e := range events {
		toe[e] = math.NaN()
	}

	remaining := append([]string(nil), events...)
	trajectory := &sim.Result{}
	x := x0
	t := 0.0

	for len(remaining) > 0 {
		runOpts := opts
		runOpts.Events = remaining
		runOpts.EventStrategy = sim.StopOnFirst
		runOpts.Horizon = opts.Horizon - t

		// segments restart at t=0; keep the loader on absolute time
		offset := t
		segLoad := prog.Loader(nil)
		if load != nil {
			segLoad = func(tt float64, xx prog.State) prog.Input {
				return load(tt+offset, xx)
			}
		}

		res, err := s.SimulateFrom(ctx, x, segLoad, runOpts)
		if err != nil {
			if errors.Is(err, prog.ErrHorizon) {
				appendShifted(trajectory, res, t)
				break
			}
			return nil, nil, err
		}

		appendShifted(trajectory, res, t)
		t += res.EndTime
		x = res.Last()

		// every watched event met at the stop point gets this time
		met := prog.ThresholdsMet(mc.model, x)
		next := remaining[:0]
		for _, e := range remaining {
			if met[e] {
				toe[e] = t
			} else {
				next = append(next, e)
			}
		}
		if len(next) == len(remaining) {
			// nothing fired; avoid looping forever
			break
		}
		remaining = next
	}

	trajectory.EndTime = t
	return toe, trajectory, nil
}

// appendShifted concatenates a segment onto a trajectory, offsetting the
// segment's times; the segment's first point duplicates the trajectory's
// last and is skipped.
func appendShifted(dst *sim.Result, seg *sim.Result, offset float64) {
	start := 0
	if len(dst.Times) > 0 {
		start = 1
	}
	for i := start; i < len(seg.Times); i++ {
		dst.Times = append(dst.Times, seg.Times[i]+offset)
		dst.Inputs = append(dst.Inputs, seg.Inputs[i])
		dst.States = append(dst.States, seg.States[i])
		dst.Outputs = append(dst.Outputs, seg.Outputs[i])
		dst.EventStates = append(dst.EventStates, seg.EventStates[i])
	}
	dst.Event = seg.Event
	dst.StepsTaken += seg.StepsTaken
}
