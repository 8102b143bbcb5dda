package integrators

import (
	"math"
	"testing"

	"github.com/ravi-mn/prognos/internal/prog"
)

type oscillator struct{}

func (o *oscillator) Derivative(x prog.State, u prog.Input, t float64) prog.State {
	return prog.State{"p": x["v"], "v": -x["p"]}
}

func TestRK4Accuracy(t *testing.T) {
	dyn := &oscillator{}
	integ := NewRK4()

	x := prog.State{"p": 1.0, "v": 0.0}
	dt := 0.01
	steps := 100

	for i := 0; i < steps; i++ {
		x = integ.Step(dyn, x, nil, float64(i)*dt, dt)
	}

	expectedP := math.Cos(float64(steps) * dt)
	expectedV := -math.Sin(float64(steps) * dt)

	if math.Abs(x["p"]-expectedP) > 1e-4 {
		t.Errorf("position error too large: got %.6f, expected %.6f", x["p"], expectedP)
	}

	if math.Abs(x["v"]-expectedV) > 1e-4 {
		t.Errorf("velocity error too large: got %.6f, expected %.6f", x["v"], expectedV)
	}
}

// decay shrinks q exponentially and records any state keys handed to its
// derivative beyond its own.
type decay struct{ foreign []string }

func (d *decay) Derivative(x prog.State, u prog.Input, t float64) prog.State {
	for key := range x {
		if key != "q" {
			d.foreign = append(d.foreign, key)
		}
	}
	return prog.State{"q": -x["q"]}
}

func TestRK4ReuseAcrossModels(t *testing.T) {
	integ := NewRK4()

	// prime the stage buffer with a model using different state keys
	x := prog.State{"p": 1.0, "v": 0.0}
	integ.Step(&oscillator{}, x, nil, 0, 0.01)

	d := &decay{}
	q := prog.State{"q": 1.0}
	dt := 0.01
	for i := 0; i < 100; i++ {
		q = integ.Step(d, q, nil, float64(i)*dt, dt)
	}

	if len(d.foreign) > 0 {
		t.Fatalf("stale state keys reached the derivative: %v", d.foreign)
	}
	if math.Abs(q["q"]-math.Exp(-1.0)) > 1e-6 {
		t.Errorf("decay result off: got %.6f, expected %.6f", q["q"], math.Exp(-1.0))
	}
}

func TestEulerConverges(t *testing.T) {
	dyn := &oscillator{}
	integ := NewEuler()

	run := func(dt float64) float64 {
		x := prog.State{"p": 1.0, "v": 0.0}
		steps := int(1.0 / dt)
		for i := 0; i < steps; i++ {
			x = integ.Step(dyn, x, nil, float64(i)*dt, dt)
		}
		return math.Abs(x["p"] - math.Cos(1.0))
	}

	coarse := run(0.01)
	fine := run(0.001)

	if fine >= coarse {
		t.Errorf("euler error did not shrink with dt: %.6f -> %.6f", coarse, fine)
	}
}
