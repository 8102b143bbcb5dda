package integrators

import (
	"math"
	"testing"

	"github.com/ravi-mn/prognos/internal/prog"
)

func energy(x prog.State) float64 {
	return 0.5 * (x["p"]*x["p"] + x["v"]*x["v"])
}

func TestRK45_Step(t *testing.T) {
	integrator := NewRK45()
	dyn := &oscillator{}

	x := prog.State{"p": 1.0, "v": 0.0}
	dt := 0.01

	for i := 0; i < 1000; i++ {
		x = integrator.Step(dyn, x, nil, float64(i)*dt, dt)
	}

	if !x.IsValid() {
		t.Error("RK45 produced invalid state")
	}
}

func TestRK45_EnergyConservation(t *testing.T) {
	integrator := NewRK45()
	dyn := &oscillator{}

	x := prog.State{"p": 1.0, "v": 0.0}
	initialEnergy := energy(x)
	dt := 0.01

	for i := 0; i < 10000; i++ {
		x = integrator.Step(dyn, x, nil, float64(i)*dt, dt)
	}

	drift := math.Abs(energy(x)-initialEnergy) / initialEnergy
	if drift > 1e-6 {
		t.Errorf("RK45 energy drift too high: %e", drift)
	}
}

func TestRK45_AdaptiveStep(t *testing.T) {
	integrator := NewRK45()
	dyn := &oscillator{}

	x, newDt, err := integrator.StepAdaptive(dyn, prog.State{"p": 1.0, "v": 0.0}, nil, 0, 0.1, 1e-8)

	if err != nil {
		t.Errorf("StepAdaptive returned error: %v", err)
	}

	if !x.IsValid() {
		t.Error("StepAdaptive produced invalid state")
	}

	if newDt <= 0 {
		t.Errorf("StepAdaptive returned invalid dt: %f", newDt)
	}
}
