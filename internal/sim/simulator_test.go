package sim

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/ravi-mn/prognos/internal/prog"
)

// drain is a minimal discrete-time model: a reservoir emptied by the
// commanded flow, with events at half-empty and empty.
type drain struct {
	capacity float64
}

func (d *drain) Name() string      { return "drain" }
func (d *drain) Inputs() []string  { return []string{"flow"} }
func (d *drain) States() []string  { return []string{"q"} }
func (d *drain) Outputs() []string { return []string{"q"} }
func (d *drain) Events() []string  { return []string{"half", "empty"} }

func (d *drain) InitialState() prog.State {
	return prog.State{"q": d.capacity}
}

func (d *drain) NextState(x prog.State, u prog.Input, dt float64) prog.State {
	x["q"] -= u["flow"] * dt
	return x
}

func (d *drain) Output(x prog.State) prog.Output {
	return prog.Output{"q": x["q"]}
}

func (d *drain) EventState(x prog.State) map[string]float64 {
	return map[string]float64{
		"half":  math.Max(0, (x["q"]-d.capacity/2)/(d.capacity/2)),
		"empty": math.Max(0, x["q"]/d.capacity),
	}
}

func (d *drain) StateLimits() map[string][2]float64 {
	return map[string][2]float64{"q": {0, math.Inf(1)}}
}

func constFlow(v float64) prog.Loader {
	return func(t float64, x prog.State) prog.Input {
		return prog.Input{"flow": v}
	}
}

func TestSimulateToThreshold_FirstEvent(t *testing.T) {
	s := New(&drain{capacity: 10}, nil)

	opts := DefaultOptions()
	opts.Dt = 0.5
	opts.SaveFreq = 1.0

	result, err := s.SimulateToThreshold(context.Background(), constFlow(1.0), opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Event != "half" {
		t.Errorf("expected half event first, got %q", result.Event)
	}

	// drains 1 unit/s from 10; half at q=5 -> t=5
	if math.Abs(result.EndTime-5.0) > 0.5 {
		t.Errorf("expected end time near 5.0, got %f", result.EndTime)
	}
}

func TestSimulateToThreshold_WatchedSubset(t *testing.T) {
	s := New(&drain{capacity: 10}, nil)

	opts := DefaultOptions()
	opts.Dt = 0.5
	opts.SaveFreq = 1.0
	opts.Events = []string{"empty"}

	result, err := s.SimulateToThreshold(context.Background(), constFlow(1.0), opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Event != "empty" {
		t.Errorf("expected empty event, got %q", result.Event)
	}
	if math.Abs(result.EndTime-10.0) > 0.5 {
		t.Errorf("expected end time near 10.0, got %f", result.EndTime)
	}
}

func TestSimulateToThreshold_StopOnAll(t *testing.T) {
	s := New(&drain{capacity: 10}, nil)

	opts := DefaultOptions()
	opts.Dt = 0.5
	opts.EventStrategy = StopOnAll

	result, err := s.SimulateToThreshold(context.Background(), constFlow(1.0), opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// all events met only once fully drained
	if math.Abs(result.EndTime-10.0) > 0.5 {
		t.Errorf("expected end time near 10.0, got %f", result.EndTime)
	}
}

func TestSimulateToThreshold_Horizon(t *testing.T) {
	s := New(&drain{capacity: 10}, nil)

	opts := DefaultOptions()
	opts.Dt = 0.5
	opts.Horizon = 2.0

	result, err := s.SimulateToThreshold(context.Background(), constFlow(1.0), opts)
	if !errors.Is(err, prog.ErrHorizon) {
		t.Fatalf("expected ErrHorizon, got %v", err)
	}

	if result.Event != "" {
		t.Errorf("expected no terminating event, got %q", result.Event)
	}
	if math.Abs(result.EndTime-2.0) > 1e-9 {
		t.Errorf("expected end at horizon 2.0, got %f", result.EndTime)
	}
}

func TestSimulate_SaveFreq(t *testing.T) {
	s := New(&drain{capacity: 100}, nil)

	opts := DefaultOptions()
	opts.Dt = 0.25
	opts.SaveFreq = 1.0
	opts.Horizon = 10.0

	result, err := s.Simulate(context.Background(), constFlow(1.0), opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// initial point plus one per second
	if result.Len() != 11 {
		t.Errorf("expected 11 saved points, got %d", result.Len())
	}
	if result.StepsTaken < 40 {
		t.Errorf("expected at least 40 steps, got %d", result.StepsTaken)
	}
}

func TestSimulate_SavePts(t *testing.T) {
	s := New(&drain{capacity: 100}, nil)

	opts := DefaultOptions()
	opts.Dt = 1.0
	opts.SaveFreq = 100.0
	opts.SavePts = []float64{2.5, 7.25}
	opts.Horizon = 10.0

	result, err := s.Simulate(context.Background(), constFlow(1.0), opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	found := map[float64]bool{}
	for _, tm := range result.Times {
		found[tm] = true
	}
	if !found[2.5] || !found[7.25] {
		t.Errorf("save points missing from recorded times: %v", result.Times)
	}
}

func TestSimulate_ParallelSeries(t *testing.T) {
	s := New(&drain{capacity: 10}, nil)

	opts := DefaultOptions()
	opts.Dt = 0.5
	opts.SaveFreq = 1.0

	result, err := s.SimulateToThreshold(context.Background(), constFlow(1.0), opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	n := result.Len()
	if len(result.Inputs) != n || len(result.States) != n ||
		len(result.Outputs) != n || len(result.EventStates) != n {
		t.Errorf("series lengths disagree: times=%d inputs=%d states=%d outputs=%d eventstates=%d",
			n, len(result.Inputs), len(result.States), len(result.Outputs), len(result.EventStates))
	}

	for i := range result.States {
		if result.Outputs[i]["q"] != result.States[i]["q"] {
			t.Errorf("output/state mismatch at %d", i)
		}
	}
}

func TestSimulate_FirstOutput(t *testing.T) {
	s := New(&drain{capacity: 10}, nil)

	opts := DefaultOptions()
	opts.Dt = 0.5
	opts.SaveFreq = 1.0
	opts.Horizon = 3.0
	opts.FirstOutput = prog.Output{"q": 9.7}

	result, err := s.Simulate(context.Background(), constFlow(1.0), opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := result.Outputs[0]["q"]; got != 9.7 {
		t.Errorf("expected the given first output, got %f", got)
	}
	// later points go back to the model's output equation
	if got := result.Outputs[1]["q"]; math.Abs(got-9.0) > 1e-9 {
		t.Errorf("expected computed output 9.0 at t=1, got %f", got)
	}
	// the override is a measurement, not a state: the state is untouched
	if got := result.States[0]["q"]; got != 10.0 {
		t.Errorf("expected initial state 10, got %f", got)
	}
}

func TestSimulate_ContextCancel(t *testing.T) {
	s := New(&drain{capacity: 1e9}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	opts := DefaultOptions()
	opts.Dt = 0.001

	_, err := s.SimulateToThreshold(ctx, constFlow(1.0), opts)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestSimulate_ProcessNoiseDeterministic(t *testing.T) {
	run := func() *Result {
		s := New(&drain{capacity: 10}, nil)
		noise, _ := prog.UniformNoise(0.1, []string{"q"}, prog.DistNormal, 42)
		s.SetProcessNoise(noise)

		opts := DefaultOptions()
		opts.Dt = 0.5
		opts.SaveFreq = 1.0

		r, err := s.SimulateToThreshold(context.Background(), constFlow(1.0), opts)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		return r
	}

	a := run()
	b := run()

	if a.EndTime != b.EndTime {
		t.Errorf("seeded runs diverged: %f vs %f", a.EndTime, b.EndTime)
	}
	for i := range a.States {
		if a.States[i]["q"] != b.States[i]["q"] {
			t.Fatalf("seeded runs diverged at point %d", i)
		}
	}
}

func TestOptions_Validate(t *testing.T) {
	s := New(&drain{capacity: 10}, nil)

	opts := DefaultOptions()
	opts.Dt = -1

	if _, err := s.SimulateToThreshold(context.Background(), constFlow(1), opts); err == nil {
		t.Error("expected error for negative dt")
	}

	opts = DefaultOptions()
	opts.Events = []string{"no_such_event"}
	if _, err := s.SimulateToThreshold(context.Background(), constFlow(1), opts); err == nil {
		t.Error("expected error for unknown event")
	}
}
