// Package estimators provides state estimation from noisy measurements:
// a Kalman filter for linear models, an unscented Kalman filter, and a
// particle filter. Each estimator tracks model state as an uncertainty
// distribution refined by successive measurements.
package estimators

import (
	"github.com/ravi-mn/prognos/internal/prog"
	"github.com/ravi-mn/prognos/internal/uncertainty"
)

// Estimator updates a belief about model state from measurements.
type Estimator interface {
	// Estimate incorporates the measurement z taken at time t under input u.
	Estimate(t float64, u prog.Input, z prog.Output) error

	// State returns the current state estimate.
	State() uncertainty.Distribution
}
