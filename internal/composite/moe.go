package composite

import (
	"fmt"
	"math"

	"github.com/ravi-mn/prognos/internal/prog"
)

// MixtureOfExperts runs several models of the same system in parallel and
// keeps a running score per model. When measured outputs arrive as inputs,
// each model's score moves up or down by how well its prediction matched;
// output, event state, and threshold queries delegate to the current best.
type MixtureOfExperts struct {
	name       string
	components []Component

	inputKeys  []string
	outputKeys []string
	eventKeys  []string

	// maximum score movement per update
	maxStep float64
}

// NewMixtureOfExperts builds a mixture from at least two models of the same
// system. The composite's inputs are the union of model inputs plus the
// model outputs; feed measured outputs through those input keys (NaN when
// no measurement is available) to drive scoring.
func NewMixtureOfExperts(name string, components []Component) (*MixtureOfExperts, error) {
	if len(components) < 2 {
		return nil, fmt.Errorf("composite: mixture of experts needs at least 2 models, got %d", len(components))
	}
	byName := make(map[string]bool, len(components))
	for _, c := range components {
		if c.Name == "" {
			return nil, fmt.Errorf("composite: component name required")
		}
		if byName[c.Name] {
			return nil, fmt.Errorf("composite: duplicate component name %q", c.Name)
		}
		byName[c.Name] = true
	}

	moe := &MixtureOfExperts{
		name:       name,
		components: components,
		maxStep:    0.1,
	}
	moe.inputKeys = union(components, func(m prog.Model) []string { return m.Inputs() })
	moe.outputKeys = union(components, func(m prog.Model) []string { return m.Outputs() })
	moe.eventKeys = union(components, func(m prog.Model) []string { return m.Events() })
	return moe, nil
}

func union(components []Component, get func(prog.Model) []string) []string {
	seen := make(map[string]bool)
	var keys []string
	for _, c := range components {
		for _, k := range get(c.Model) {
			if !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
	}
	return keys
}

func (m *MixtureOfExperts) Name() string { return m.name }

// Inputs returns the model inputs plus the output keys, through which
// measurements are fed for scoring.
func (m *MixtureOfExperts) Inputs() []string {
	return append(append([]string(nil), m.inputKeys...), m.outputKeys...)
}

func (m *MixtureOfExperts) States() []string {
	var keys []string
	for _, comp := range m.components {
		for _, k := range comp.Model.States() {
			keys = append(keys, comp.Name+"."+k)
		}
		keys = append(keys, comp.Name+"._score")
	}
	return keys
}

func (m *MixtureOfExperts) Outputs() []string { return append([]string(nil), m.outputKeys...) }
func (m *MixtureOfExperts) Events() []string  { return append([]string(nil), m.eventKeys...) }

func (m *MixtureOfExperts) InitialState() prog.State {
	x := make(prog.State)
	for _, comp := range m.components {
		for k, v := range comp.Model.InitialState() {
			x[comp.Name+"."+k] = v
		}
		x[comp.Name+"._score"] = 0.5
	}
	return x
}

func (m *MixtureOfExperts) NextState(x prog.State, u prog.Input, dt float64) prog.State {
	next := x.Clone()

	// advance every expert with the shared inputs
	for _, comp := range m.components {
		ui := make(prog.Input, len(comp.Model.Inputs()))
		for _, k := range comp.Model.Inputs() {
			ui[k] = u[k]
		}
		xi, err := prog.Advance(comp.Model, comp.Integrator, slice(comp.Name, comp.Model, next), ui, 0, dt)
		if err != nil {
			return prog.State{comp.Name + ".invalid": invalidMarker()}
		}
		for k, v := range xi {
			next[comp.Name+"."+k] = v
		}
	}

	// score update needs a full set of measured outputs
	for _, k := range m.outputKeys {
		v, ok := u[k]
		if !ok || math.IsNaN(v) {
			return next
		}
	}

	mses := make([]float64, len(m.components))
	for i, comp := range m.components {
		xi := slice(comp.Name, comp.Model, next)
		pred := comp.Model.Output(xi)
		sum := 0.0
		for _, k := range comp.Model.Outputs() {
			d := u[k] - pred[k]
			sum += d * d
		}
		mses[i] = sum / float64(len(comp.Model.Outputs()))
	}

	minMSE, maxMSE := mses[0], mses[0]
	for _, v := range mses[1:] {
		minMSE = math.Min(minMSE, v)
		maxMSE = math.Max(maxMSE, v)
	}
	if maxMSE == minMSE {
		return next
	}

	// best model moves up by maxStep, worst down by maxStep
	deltas := make([]float64, len(mses))
	for i, mse := range mses {
		deltas[i] = (minMSE-mse)/(maxMSE-minMSE)*2*m.maxStep + m.maxStep
	}
	for i, comp := range m.components {
		key := comp.Name + "._score"
		next[key] += deltas[i]
		if next[key] < 0 {
			next[key] = 0
		}
		if next[key] > 1 {
			// rescale everyone so one persistently bad expert cannot pin
			// the others at saturation
			next[key] -= deltas[i]
			for j, other := range m.components {
				next[other.Name+"._score"] *= 0.8
				deltas[j] *= 0.8
			}
			next[key] += deltas[i]
		}
	}
	return next
}

// best returns the component with the highest score.
func (m *MixtureOfExperts) best(x prog.State) Component {
	bestVal := math.Inf(-1)
	var bestComp Component
	for _, comp := range m.components {
		if s := x[comp.Name+"._score"]; s > bestVal {
			bestVal = s
			bestComp = comp
		}
	}
	return bestComp
}

func (m *MixtureOfExperts) Output(x prog.State) prog.Output {
	comp := m.best(x)
	return comp.Model.Output(slice(comp.Name, comp.Model, x))
}

func (m *MixtureOfExperts) EventState(x prog.State) map[string]float64 {
	comp := m.best(x)
	return comp.Model.EventState(slice(comp.Name, comp.Model, x))
}

func (m *MixtureOfExperts) ThresholdMet(x prog.State) map[string]bool {
	comp := m.best(x)
	return prog.ThresholdsMet(comp.Model, slice(comp.Name, comp.Model, x))
}
