package sim

import "github.com/ravi-mn/prognos/internal/prog"

// Result holds the recorded time series of a run. The slices are parallel:
// Inputs[i] was applied at Times[i], producing States[i], Outputs[i], and
// EventStates[i].
type Result struct {
	Times       []float64
	Inputs      []prog.Input
	States      []prog.State
	Outputs     []prog.Output
	EventStates []map[string]float64

	// Event is the name of the threshold that terminated the run, or ""
	// when the run ended at the horizon or step limit.
	Event string
	// EndTime is the simulated time at termination.
	EndTime float64
	// StepsTaken counts state transitions, which can exceed len(Times)
	// when SaveFreq spans multiple steps.
	StepsTaken int
}

// Len reports the number of saved points.
func (r *Result) Len() int { return len(r.Times) }

// Last returns the final saved state.
func (r *Result) Last() prog.State {
	if len(r.States) == 0 {
		return nil
	}
	return r.States[len(r.States)-1]
}

// EventSeries extracts one event's state over time.
func (r *Result) EventSeries(event string) []float64 {
	out := make([]float64, len(r.EventStates))
	for i, es := range r.EventStates {
		out[i] = es[event]
	}
	return out
}

// OutputSeries extracts one output key over time.
func (r *Result) OutputSeries(key string) []float64 {
	out := make([]float64, len(r.Outputs))
	for i, z := range r.Outputs {
		out[i] = z[key]
	}
	return out
}

// StateSeries extracts one state key over time.
func (r *Result) StateSeries(key string) []float64 {
	out := make([]float64, len(r.States))
	for i, x := range r.States {
		out[i] = x[key]
	}
	return out
}

func (r *Result) record(t float64, u prog.Input, x prog.State, z prog.Output, es map[string]float64) {
	r.Times = append(r.Times, t)
	r.Inputs = append(r.Inputs, u.Clone())
	r.States = append(r.States, x.Clone())
	r.Outputs = append(r.Outputs, z)
	r.EventStates = append(r.EventStates, es)
}
