package sim

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/ravi-mn/prognos/internal/prog"
)

// Observer is notified at every saved point of a run.
type Observer interface {
	OnSave(t float64, x prog.State, es map[string]float64)
}

// Simulator drives a model forward under a future-loading callback until a
// threshold, horizon, or step limit is reached.
type Simulator struct {
	model      prog.Model
	integrator prog.Integrator
	procNoise  *prog.Noise
	measNoise  *prog.Noise
	observers  []Observer
}

func New(m prog.Model, integ prog.Integrator) *Simulator {
	return &Simulator{model: m, integrator: integ}
}

// SetProcessNoise installs noise applied to the state after each transition.
func (s *Simulator) SetProcessNoise(n *prog.Noise) { s.procNoise = n }

// SetMeasurementNoise installs noise applied to recorded outputs.
func (s *Simulator) SetMeasurementNoise(n *prog.Noise) { s.measNoise = n }

func (s *Simulator) AddObserver(o Observer) { s.observers = append(s.observers, o) }

func (s *Simulator) Model() prog.Model { return s.model }

// Simulate runs from the model's initial state to opts.Horizon, ignoring
// thresholds.
func (s *Simulator) Simulate(ctx context.Context, load prog.Loader, opts Options) (*Result, error) {
	return s.run(ctx, s.model.InitialState(), load, opts, false)
}

// SimulateToThreshold runs from the model's initial state until a watched
// threshold is met. If the horizon is reached first, the partial result is
// returned together with prog.ErrHorizon.
func (s *Simulator) SimulateToThreshold(ctx context.Context, load prog.Loader, opts Options) (*Result, error) {
	return s.run(ctx, s.model.InitialState(), load, opts, true)
}

// SimulateFrom is SimulateToThreshold starting at an explicit state, used by
// predictors working from an estimated state distribution.
func (s *Simulator) SimulateFrom(ctx context.Context, x0 prog.State, load prog.Loader, opts Options) (*Result, error) {
	return s.run(ctx, x0, load, opts, true)
}

func (s *Simulator) run(ctx context.Context, x0 prog.State, load prog.Loader, opts Options, stopAtThreshold bool) (*Result, error) {
	if load == nil {
		load = func(t float64, x prog.State) prog.Input { return prog.Input{} }
	}
	if opts.EventStrategy == "" {
		opts.EventStrategy = StopOnFirst
	}
	if err := opts.validate(s.model.Events()); err != nil {
		return nil, err
	}

	watched := opts.Events
	if len(watched) == 0 {
		watched = s.model.Events()
	}

	savePts := append([]float64(nil), opts.SavePts...)
	sort.Float64s(savePts)

	x := x0.Clone()
	t := 0.0
	dt := opts.Dt
	result := &Result{}

	firstSave := true
	record := func(u prog.Input, x prog.State) {
		var z prog.Output
		if firstSave && opts.FirstOutput != nil {
			z = make(prog.Output, len(opts.FirstOutput))
			for k, v := range opts.FirstOutput {
				z[k] = v
			}
		} else {
			z = s.model.Output(x)
			s.measNoise.Apply(map[string]float64(z))
		}
		firstSave = false
		es := s.model.EventState(x)
		result.record(t, u, x, z, es)
		for _, obs := range s.observers {
			obs.OnSave(t, x, es)
		}
		if opts.Print {
			fmt.Printf("t=%.3f x=%v z=%v es=%v\n", t, x, z, es)
		}
	}

	u := load(t, x)
	record(u, x)

	nextSave := math.Inf(1)
	if opts.SaveFreq > 0 {
		nextSave = opts.SaveFreq
	}

	for step := 0; step < opts.MaxSteps && t < opts.Horizon; step++ {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		u = load(t, x)

		// trim the step so save points and the horizon land exactly
		h := dt
		if opts.SaveFreq > 0 && t+h > nextSave {
			h = nextSave - t
		}
		for len(savePts) > 0 && savePts[0] <= t {
			savePts = savePts[1:]
		}
		if len(savePts) > 0 && t+h > savePts[0] {
			h = savePts[0] - t
		}
		if t+h > opts.Horizon {
			h = opts.Horizon - t
		}

		var next prog.State
		var err error
		if opts.Adaptive {
			next, dt, err = s.adaptiveStep(x, u, t, h, dt, opts)
		} else {
			next, err = prog.Advance(s.model, s.integrator, x, u, t, h)
		}
		if err != nil {
			return result, &prog.StepError{Step: step, Time: t, Wrapped: err}
		}

		s.procNoise.Apply(map[string]float64(next))
		prog.ApplyLimits(s.model, next)

		if !next.IsValid() {
			return result, &prog.StepError{Step: step, Time: t, Wrapped: prog.ErrInvalidState}
		}

		x = next
		t += h
		result.StepsTaken++

		saved := false
		if opts.SaveFreq == 0 || t >= nextSave-1e-12 {
			record(u, x)
			saved = true
			for t >= nextSave-1e-12 {
				nextSave += opts.SaveFreq
			}
		} else if len(savePts) > 0 && t >= savePts[0]-1e-12 {
			record(u, x)
			saved = true
		}

		if stopAtThreshold {
			if event, done := s.stopEvent(x, watched, opts.EventStrategy); done {
				if !saved {
					record(u, x)
				}
				result.Event = event
				result.EndTime = t
				return result, nil
			}
		}
	}

	// horizon or step limit: always keep the final point
	if result.Times[len(result.Times)-1] < t {
		record(u, x)
	}
	result.EndTime = t
	if stopAtThreshold {
		return result, prog.ErrHorizon
	}
	return result, nil
}

func (s *Simulator) stopEvent(x prog.State, watched []string, strategy string) (string, bool) {
	met := prog.ThresholdsMet(s.model, x)
	if strategy == StopOnAll {
		last := ""
		for _, e := range watched {
			if !met[e] {
				return "", false
			}
			last = e
		}
		return last, last != ""
	}
	for _, e := range watched {
		if met[e] {
			return e, true
		}
	}
	return "", false
}

func (s *Simulator) adaptiveStep(x prog.State, u prog.Input, t, h, dt float64, opts Options) (prog.State, float64, error) {
	dyn, ok := s.model.(prog.Continuous)
	if !ok {
		next, err := prog.Advance(s.model, s.integrator, x, u, t, h)
		return next, dt, err
	}
	if adaptive, ok := s.integrator.(prog.AdaptiveIntegrator); ok {
		next, dtNew, err := adaptive.StepAdaptive(dyn, x, u, t, h, opts.Tolerance)
		if err != nil {
			return nil, dt, err
		}
		if dtNew < 1e-12 {
			return nil, dt, prog.ErrStepTooSmall
		}
		prog.ApplyLimits(s.model, next)
		return next, math.Min(dtNew, opts.Dt), nil
	}
	next, err := prog.Advance(s.model, s.integrator, x, u, t, h)
	return next, dt, err
}
