package prog

import "math"

// State holds model state values keyed by state name.
type State map[string]float64

func (s State) Clone() State {
	c := make(State, len(s))
	for k, v := range s {
		c[k] = v
	}
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Input holds loading values keyed by input name.
type Input map[string]float64

func (u Input) Clone() Input {
	c := make(Input, len(u))
	for k, v := range u {
		c[k] = v
	}
	return c
}

// Output holds measured values keyed by output name.
type Output map[string]float64

func (z Output) Clone() Output {
	c := make(Output, len(z))
	for k, v := range z {
		c[k] = v
	}
	return c
}

// Loader produces the input vector applied at time t. The current state may
// be nil when the caller does not track one (e.g. plotting a load profile).
type Loader func(t float64, x State) Input

// Model is a prognostics model: a system with named inputs, states, outputs,
// and failure events. Event states are normalized [0, 1] progress indicators
// where 0 means the event has occurred.
//
// A model must also implement at least one of [Transitioner] or [Continuous]
// to define its state transition.
type Model interface {
	Name() string
	Inputs() []string
	States() []string
	Outputs() []string
	Events() []string

	InitialState() State
	Output(x State) Output
	EventState(x State) map[string]float64
}

// Transitioner is a model defining its own discrete-time state transition.
type Transitioner interface {
	NextState(x State, u Input, dt float64) State
}

// Continuous is a model defined by first-order ODEs, advanced by an
// [Integrator].
type Continuous interface {
	Derivative(x State, u Input, t float64) State
}

// Thresholder overrides the default event-state-zero threshold test.
type Thresholder interface {
	ThresholdMet(x State) map[string]bool
}

// StateLimiter declares per-state [min, max] bounds applied after each
// transition.
type StateLimiter interface {
	StateLimits() map[string][2]float64
}

// Integrator advances a continuous model one step.
type Integrator interface {
	Step(dyn Continuous, x State, u Input, t, dt float64) State
}

// AdaptiveIntegrator additionally supports error-controlled stepping,
// returning the advanced state and a suggested next step size.
type AdaptiveIntegrator interface {
	Integrator
	StepAdaptive(dyn Continuous, x State, u Input, t, dt, tol float64) (State, float64, error)
}

// ThresholdsMet evaluates the model's thresholds at x. Models implementing
// [Thresholder] are asked directly; otherwise a threshold is met when the
// event state has reached zero.
func ThresholdsMet(m Model, x State) map[string]bool {
	if th, ok := m.(Thresholder); ok {
		return th.ThresholdMet(x)
	}
	es := m.EventState(x)
	met := make(map[string]bool, len(es))
	for k, v := range es {
		met[k] = v <= 0
	}
	return met
}

// ApplyLimits clamps x in place to the model's declared state limits, if any.
func ApplyLimits(m Model, x State) {
	lim, ok := m.(StateLimiter)
	if !ok {
		return
	}
	for k, b := range lim.StateLimits() {
		if v, ok := x[k]; ok {
			x[k] = math.Min(math.Max(v, b[0]), b[1])
		}
	}
}
