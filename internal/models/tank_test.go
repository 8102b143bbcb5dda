package models

import (
	"math"
	"testing"

	"github.com/ravi-mn/prognos/internal/prog"
)

func TestTankFills(t *testing.T) {
	m := NewTank()
	x := m.InitialState()

	u := prog.Input{"q_in": 0.01, "valve_command": ValveClosed}
	for i := 0; i < 10; i++ {
		x = m.NextState(x, u, 1.0)
	}

	if math.Abs(x["h"]-0.1) > 1e-9 {
		t.Errorf("expected height 0.1 after filling, got %f", x["h"])
	}
}

func TestTankDrainsWhenOpen(t *testing.T) {
	m := NewTank()
	x := prog.State{"valve": ValveClosed, "h": 0.5}

	x = m.NextState(x, prog.Input{"q_in": 0, "valve_command": ValveOpen}, 1.0)

	if m.Valve.Index(x["valve"]) != ValveOpen {
		t.Fatal("valve should follow the command")
	}
	if x["h"] >= 0.5 {
		t.Errorf("open valve should drain the tank, got h=%f", x["h"])
	}

	// closing again stops the drain
	x = m.NextState(x, prog.Input{"q_in": 0, "valve_command": ValveClosed}, 1.0)
	if m.Valve.Index(x["valve"]) != ValveClosed {
		t.Fatal("valve should follow the close command")
	}
	h := x["h"]
	x = m.NextState(x, prog.Input{"q_in": 0, "valve_command": ValveClosed}, 1.0)
	if x["h"] != h {
		t.Errorf("closed valve should hold the level, got %f -> %f", h, x["h"])
	}
}

func TestTankHeightCap(t *testing.T) {
	m := NewTank()
	x := prog.State{"valve": ValveClosed, "h": 0.99}

	x = m.NextState(x, prog.Input{"q_in": 1.0, "valve_command": ValveClosed}, 1.0)

	if x["h"] > m.Height {
		t.Errorf("height should cap at tank height, got %f", x["h"])
	}
}

func TestTankEventStates(t *testing.T) {
	m := NewTank()

	es := m.EventState(prog.State{"valve": ValveClosed, "h": 0})
	if es["empty"] != 0 || es["full"] != 1 {
		t.Errorf("unexpected event states for empty tank: %v", es)
	}

	es = m.EventState(prog.State{"valve": ValveClosed, "h": m.Height})
	if es["full"] != 0 || es["empty"] != 1 {
		t.Errorf("unexpected event states for full tank: %v", es)
	}
}

func TestPumpDegrades(t *testing.T) {
	m := NewCentrifugalPump()
	x := m.InitialState()
	u := prog.Input{"w": 370.0}

	dx := m.Derivative(x, u, 0)
	if dx["A"] >= 0 {
		t.Error("impeller area should shrink under load")
	}
	if dx["rThrust"] <= 0 || dx["rRadial"] <= 0 {
		t.Error("bearing friction should grow with speed")
	}
	if dx["rThrust"] <= dx["rRadial"] {
		t.Error("the thrust bearing carries the axial load and should wear faster")
	}

	es := m.EventState(x)
	for _, e := range m.Events() {
		if es[e] != 1.0 {
			t.Errorf("expected %s event state 1 for a new pump, got %f", e, es[e])
		}
	}
}

func TestPumpOverheatEventState(t *testing.T) {
	m := NewCentrifugalPump()
	x := m.InitialState()
	x["Tt"] = m.BearingTempLimit

	es := m.EventState(x)
	if es["ThrustBearingOverheat"] != 0 {
		t.Errorf("expected thrust overheat event state 0 at the limit, got %f", es["ThrustBearingOverheat"])
	}
	if es["RadialBearingOverheat"] != 1.0 {
		t.Errorf("radial bearing at ambient should stay at 1, got %f", es["RadialBearingOverheat"])
	}

	x["Tr"] = (m.BearingTempLimit + m.AmbientTemp) / 2
	es = m.EventState(x)
	if math.Abs(es["RadialBearingOverheat"]-0.5) > 1e-12 {
		t.Errorf("expected radial overheat event state 0.5 midway, got %f", es["RadialBearingOverheat"])
	}
}

func TestPowertrainSpinUp(t *testing.T) {
	m := NewPowertrain()
	x := m.InitialState()
	u := prog.Input{"duty": 1.0, "v": 11.1}

	dx := m.Derivative(x, u, 0)
	if dx["i"] <= 0 {
		t.Error("current should rise when voltage is applied at rest")
	}

	// spun up with current flowing, torque drives the shaft
	x["i"] = 5.0
	dx = m.Derivative(x, u, 0)
	if dx["w"] <= 0 {
		t.Error("shaft should accelerate with positive current")
	}
	if dx["T"] <= 0 {
		t.Error("winding should heat under load")
	}
}

func TestPowertrainOverheat(t *testing.T) {
	m := NewPowertrain()

	es := m.EventState(m.InitialState())
	if math.Abs(es["Overheat"]-1.0) > 1e-12 {
		t.Errorf("expected Overheat event state 1 at ambient, got %f", es["Overheat"])
	}

	es = m.EventState(prog.State{"i": 0, "w": 0, "T": m.TempLimit})
	if es["Overheat"] != 0 {
		t.Errorf("expected Overheat event state 0 at the limit, got %f", es["Overheat"])
	}
}
