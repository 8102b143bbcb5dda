package experiment

import (
	"context"
	"errors"
	"fmt"

	"github.com/ravi-mn/prognos/internal/config"
	"github.com/ravi-mn/prognos/internal/prog"
	"github.com/ravi-mn/prognos/internal/sim"
)

// Experiment is one configured run: a model, an integrator, and a load
// profile, ready to simulate to threshold.
type Experiment struct {
	cfg       *config.Config
	model     prog.Model
	simulator *sim.Simulator
	loader    prog.Loader
}

// New resolves a config against the registry and builds the run.
func New(r *Registry, cfg *config.Config) (*Experiment, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	model, err := r.GetModel(cfg.Model)
	if err != nil {
		return nil, err
	}
	integ, err := r.GetIntegrator(cfg.Integrator)
	if err != nil {
		return nil, err
	}
	if err := checkLoaderKeys(model, cfg.Loader); err != nil {
		return nil, err
	}
	loader, err := r.GetLoader(cfg.Loader)
	if err != nil {
		return nil, err
	}

	s := sim.New(model, integ)
	if len(cfg.Noise.Process) > 0 {
		n, err := prog.NewNoise(cfg.Noise.Process, prog.DistNormal, cfg.Loader.Seed)
		if err != nil {
			return nil, err
		}
		s.SetProcessNoise(n)
	}
	if len(cfg.Noise.Measurement) > 0 {
		n, err := prog.NewNoise(cfg.Noise.Measurement, prog.DistNormal, cfg.Loader.Seed)
		if err != nil {
			return nil, err
		}
		s.SetMeasurementNoise(n)
	}

	return &Experiment{cfg: cfg, model: model, simulator: s, loader: loader}, nil
}

// checkLoaderKeys rejects load profiles driving inputs the model does not
// have; a misnamed key would otherwise read silently as zero.
func checkLoaderKeys(m prog.Model, cfg config.LoaderConfig) error {
	inputs := make(map[string]bool, len(m.Inputs()))
	for _, k := range m.Inputs() {
		inputs[k] = true
	}
	for k := range cfg.Values {
		if !inputs[k] {
			return fmt.Errorf("experiment: %q is not an input of %s", k, m.Name())
		}
	}
	for k := range cfg.Series {
		if !inputs[k] {
			return fmt.Errorf("experiment: %q is not an input of %s", k, m.Name())
		}
	}
	return nil
}

// Run simulates to threshold. Reaching the horizon is a normal outcome here,
// not an error: the partial result is returned with an empty Event.
func (e *Experiment) Run(ctx context.Context) (*sim.Result, error) {
	opts := e.options()

	x0 := e.model.InitialState()
	for k, v := range e.cfg.State {
		if _, ok := x0[k]; !ok {
			return nil, fmt.Errorf("experiment: %q is not a state of %s", k, e.model.Name())
		}
		x0[k] = v
	}

	res, err := e.simulator.SimulateFrom(ctx, x0, e.loader, opts)
	if errors.Is(err, prog.ErrHorizon) {
		return res, nil
	}
	return res, err
}

// Simulator exposes the underlying simulator for attaching observers.
func (e *Experiment) Simulator() *sim.Simulator { return e.simulator }

// Model returns the resolved model instance.
func (e *Experiment) Model() prog.Model { return e.model }

func (e *Experiment) options() sim.Options {
	opts := sim.DefaultOptions()
	opts.Dt = e.cfg.Dt
	opts.Horizon = e.cfg.Horizon
	opts.SaveFreq = e.cfg.SaveFreq
	opts.Events = e.cfg.Events
	return opts
}
