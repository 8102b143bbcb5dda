package models

import (
	"math"
	"testing"

	"github.com/ravi-mn/prognos/internal/prog"
)

func TestThrownObjectInitialState(t *testing.T) {
	m := NewThrownObject()
	x := m.InitialState()

	if x["x"] != m.ThrowerHeight {
		t.Errorf("expected initial position %f, got %f", m.ThrowerHeight, x["x"])
	}
	if x["v"] != m.ThrowingSpeed {
		t.Errorf("expected initial velocity %f, got %f", m.ThrowingSpeed, x["v"])
	}
}

func TestThrownObjectDerivative(t *testing.T) {
	m := NewThrownObject()
	dx := m.Derivative(prog.State{"x": 10, "v": 5}, nil, 0)

	if dx["x"] != 5 {
		t.Errorf("expected dx/dt = v = 5, got %f", dx["x"])
	}
	if dx["v"] != m.Gravity {
		t.Errorf("expected dv/dt = g = %f, got %f", m.Gravity, dx["v"])
	}
}

func TestThrownObjectEventStates(t *testing.T) {
	m := NewThrownObject()

	es := m.EventState(m.InitialState())
	if math.Abs(es["falling"]-1.0) > 1e-12 {
		t.Errorf("expected falling event state 1 at launch, got %f", es["falling"])
	}
	if es["impact"] <= 0.9 {
		t.Errorf("expected impact event state near 1 at launch, got %f", es["impact"])
	}

	// descending at ground level, both events met
	es = m.EventState(prog.State{"x": 0, "v": -30})
	if es["falling"] != 0 {
		t.Errorf("expected falling event state 0 when descending, got %f", es["falling"])
	}
	if es["impact"] != 0 {
		t.Errorf("expected impact event state 0 at ground, got %f", es["impact"])
	}
	if math.IsNaN(es["impact"]) {
		t.Error("impact event state must not be NaN at the ground")
	}
}

func TestThrownObjectImpactDecaysDuringFall(t *testing.T) {
	m := NewThrownObject()

	// just past the apex
	high := m.EventState(prog.State{"x": 80, "v": -1})["impact"]
	mid := m.EventState(prog.State{"x": 40, "v": -28})["impact"]
	low := m.EventState(prog.State{"x": 5, "v": -38})["impact"]

	if high < 0.99 || high > 1 {
		t.Errorf("expected impact near 1 at the apex, got %f", high)
	}
	if !(high > mid && mid > low && low > 0) {
		t.Errorf("impact should decay monotonically during the fall: %f, %f, %f", high, mid, low)
	}
}

func TestThrownObjectThresholds(t *testing.T) {
	m := NewThrownObject()

	met := m.ThresholdMet(m.InitialState())
	if met["falling"] || met["impact"] {
		t.Error("no threshold should be met at launch")
	}

	met = m.ThresholdMet(prog.State{"x": 50, "v": -1})
	if !met["falling"] {
		t.Error("falling threshold should be met once velocity is negative")
	}
	if met["impact"] {
		t.Error("impact threshold should not be met above ground")
	}
}

func TestThrownObjectLinearMatrices(t *testing.T) {
	m := NewThrownObject()

	a := m.AMatrix()
	if a.At(0, 1) != 1 || a.At(0, 0) != 0 || a.At(1, 0) != 0 || a.At(1, 1) != 0 {
		t.Error("unexpected A matrix")
	}
	e := m.EVector()
	if e.AtVec(1) != m.Gravity {
		t.Errorf("expected E[1] = g, got %f", e.AtVec(1))
	}
	c := m.CMatrix()
	if c.At(0, 0) != 1 || c.At(0, 1) != 0 {
		t.Error("unexpected C matrix")
	}
}
