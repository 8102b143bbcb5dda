// Package experiment assembles runnable simulations from configuration. The
// registry maps names used in config files and on the command line to the
// concrete models, integrators, and loaders they describe.
package experiment

import (
	"fmt"
	"sort"

	"github.com/ravi-mn/prognos/internal/config"
	"github.com/ravi-mn/prognos/internal/integrators"
	"github.com/ravi-mn/prognos/internal/loading"
	"github.com/ravi-mn/prognos/internal/models"
	"github.com/ravi-mn/prognos/internal/prog"
)

type Registry struct {
	models      map[string]func() prog.Model
	integrators map[string]func() prog.Integrator
}

func NewRegistry() *Registry {
	r := &Registry{
		models:      make(map[string]func() prog.Model),
		integrators: make(map[string]func() prog.Integrator),
	}

	r.models["thrown_object"] = func() prog.Model { return models.NewThrownObject() }
	r.models["battery_simplified"] = func() prog.Model { return models.NewBatterySimplified() }
	r.models["battery_electrochem"] = func() prog.Model { return models.NewBatteryElectroChemEOD() }
	r.models["battery_electrochem_eol"] = func() prog.Model { return models.NewBatteryElectroChemEOL() }
	r.models["battery_electrochem_eod_eol"] = func() prog.Model { return models.NewBatteryElectroChemEODEOL() }
	r.models["tank"] = func() prog.Model { return models.NewTank() }
	r.models["pump"] = func() prog.Model { return models.NewCentrifugalPump() }
	r.models["powertrain"] = func() prog.Model { return models.NewPowertrain() }

	r.integrators["euler"] = func() prog.Integrator { return integrators.NewEuler() }
	r.integrators["rk4"] = func() prog.Integrator { return integrators.NewRK4() }
	r.integrators["rk45"] = func() prog.Integrator { return integrators.NewRK45() }

	return r
}

func (r *Registry) GetModel(name string) (prog.Model, error) {
	fn, ok := r.models[name]
	if !ok {
		return nil, fmt.Errorf("unknown model: %s", name)
	}
	return fn(), nil
}

func (r *Registry) GetIntegrator(name string) (prog.Integrator, error) {
	if name == "" {
		name = "rk4"
	}
	fn, ok := r.integrators[name]
	if !ok {
		return nil, fmt.Errorf("unknown integrator: %s", name)
	}
	return fn(), nil
}

// GetLoader builds a future-loading callback from its config. The noise_std
// field wraps the profile in gaussian load noise.
func (r *Registry) GetLoader(cfg config.LoaderConfig) (prog.Loader, error) {
	var base prog.Loader
	switch cfg.Type {
	case "", "const":
		values := prog.Input{}
		for k, v := range cfg.Values {
			values[k] = v
		}
		base = loading.NewConst(values).Load
	case "piecewise":
		pw, err := loading.NewPiecewise(cfg.Times, cfg.Series)
		if err != nil {
			return nil, err
		}
		base = pw.Load
	default:
		return nil, fmt.Errorf("unknown loader type: %s", cfg.Type)
	}

	if cfg.NoiseStd > 0 {
		base = loading.NewGaussianNoiseWrapper(base, cfg.NoiseStd, cfg.Seed).Load
	}
	return base, nil
}

func (r *Registry) ListModels() []string {
	names := make([]string, 0, len(r.models))
	for name := range r.models {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) ListIntegrators() []string {
	names := make([]string, 0, len(r.integrators))
	for name := range r.integrators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
