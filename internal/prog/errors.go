package prog

import (
	"errors"
	"fmt"
)

// Domain errors for simulation and prediction.
var (
	// ErrInvalidState indicates a state vector with NaN or Inf values.
	ErrInvalidState = errors.New("prog: invalid state (NaN or Inf detected)")

	// ErrNoTransition indicates a model implementing neither Transitioner nor Continuous.
	ErrNoTransition = errors.New("prog: model defines no state transition")

	// ErrUnknownEvent indicates an event key not declared by the model.
	ErrUnknownEvent = errors.New("prog: unknown event")

	// ErrHorizon indicates the horizon was reached before any watched threshold.
	ErrHorizon = errors.New("prog: horizon reached before threshold")

	// ErrStepTooSmall indicates the adaptive timestep fell below its minimum.
	ErrStepTooSmall = errors.New("prog: adaptive timestep below minimum")

	// ErrNotLinear indicates a model without the linear form required by the caller.
	ErrNotLinear = errors.New("prog: model is not linear")

	// ErrNoIntegrator indicates a continuous model advanced without an integrator.
	ErrNoIntegrator = errors.New("prog: continuous model requires an integrator")
)

// StepError wraps an error with the step at which it occurred.
type StepError struct {
	Step    int
	Time    float64
	Wrapped error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d (t=%.4f): %v", e.Step, e.Time, e.Wrapped)
}

func (e *StepError) Unwrap() error {
	return e.Wrapped
}
