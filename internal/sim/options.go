package sim

import (
	"fmt"

	"github.com/ravi-mn/prognos/internal/prog"
)

// Event stop strategies.
const (
	StopOnFirst = "first"
	StopOnAll   = "all"
)

// Options configures a simulation run.
type Options struct {
	// Dt is the fixed integration step (s).
	Dt float64
	// SaveFreq is the interval between recorded points (s). Zero records
	// every step.
	SaveFreq float64
	// SavePts are additional times (s) to record, independent of SaveFreq.
	SavePts []float64
	// Horizon is the maximum simulated time (s).
	Horizon float64
	// Events restricts which thresholds stop the run. Empty watches all of
	// the model's events.
	Events []string
	// EventStrategy is StopOnFirst (default) or StopOnAll.
	EventStrategy string
	// MaxSteps bounds the number of transitions regardless of horizon.
	MaxSteps int
	// Adaptive enables error-controlled stepping when the integrator
	// supports it.
	Adaptive bool
	// Tolerance is the local error tolerance for adaptive stepping.
	Tolerance float64
	// FirstOutput is recorded at the initial time in place of the model's
	// computed output, for runs anchored to an actual first measurement.
	// Measurement noise is not applied to it.
	FirstOutput prog.Output
	// Print writes a line per saved point to stdout.
	Print bool
}

func DefaultOptions() Options {
	return Options{
		Dt:            1.0,
		SaveFreq:      10.0,
		Horizon:       1e99,
		EventStrategy: StopOnFirst,
		MaxSteps:      1_000_000,
		Tolerance:     1e-6,
	}
}

func (o Options) validate(events []string) error {
	if o.Dt <= 0 {
		return fmt.Errorf("sim: dt must be positive, got %f", o.Dt)
	}
	if o.SaveFreq < 0 {
		return fmt.Errorf("sim: save frequency must be non-negative, got %f", o.SaveFreq)
	}
	if o.Horizon <= 0 {
		return fmt.Errorf("sim: horizon must be positive, got %f", o.Horizon)
	}
	if o.MaxSteps <= 0 {
		return fmt.Errorf("sim: max steps must be positive, got %d", o.MaxSteps)
	}
	switch o.EventStrategy {
	case "", StopOnFirst, StopOnAll:
	default:
		return fmt.Errorf("sim: unknown event strategy %q", o.EventStrategy)
	}
	if o.Adaptive && o.Tolerance <= 0 {
		return fmt.Errorf("sim: tolerance must be positive for adaptive stepping")
	}
	known := make(map[string]bool, len(events))
	for _, e := range events {
		known[e] = true
	}
	for _, e := range o.Events {
		if !known[e] {
			return fmt.Errorf("sim: %q is not an event of the model", e)
		}
	}
	return nil
}
