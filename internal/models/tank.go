package models

import (
	"math"

	"github.com/ravi-mn/prognos/internal/prog"
)

// Valve positions for the tank drain.
const (
	ValveOpen = iota
	ValveClosed
)

// Tank models liquid in a tank filling from a commanded inflow and draining
// through a valve whose position is a discrete state. Defaults describe a
// 1 m cube holding water.
type Tank struct {
	CrosssectionArea float64
	Height           float64
	Rho              float64
	Gravity          float64
	ValveRadius      float64
	ValveLength      float64
	Viscosity        float64

	Valve *prog.DiscreteState
}

func NewTank() *Tank {
	return &Tank{
		CrosssectionArea: 1,
		Height:           1,
		Rho:              1000,
		Gravity:          -9.81,
		ValveRadius:      3e-3,
		ValveLength:      0.001,
		Viscosity:        1e-3,
		Valve:            prog.MustDiscreteState(2, []string{"open", "closed"}, prog.TransitionNone, 0),
	}
}

func (m *Tank) Name() string      { return "tank" }
func (m *Tank) Inputs() []string  { return []string{"q_in", "valve_command"} }
func (m *Tank) States() []string  { return []string{"valve", "h"} }
func (m *Tank) Outputs() []string { return []string{"h"} }
func (m *Tank) Events() []string  { return []string{"full", "empty"} }

func (m *Tank) InitialState() prog.State {
	return prog.State{"valve": ValveClosed, "h": 0}
}

func (m *Tank) NextState(x prog.State, u prog.Input, dt float64) prog.State {
	// the valve follows the command; Transition is for noise disruptions
	valve := float64(m.Valve.Index(u["valve_command"]))

	qOut := 0.0
	if m.Valve.Index(valve) == ValveOpen {
		// Hagen-Poiseuille flow through the valve
		p := m.Rho * m.Gravity * x["h"]
		qOut = p * math.Pi * math.Pow(m.ValveRadius, 4) / (8 * m.Viscosity * m.ValveLength)
	}

	h := x["h"] + (u["q_in"]+qOut)*dt/m.CrosssectionArea
	return prog.State{"valve": valve, "h": math.Min(h, m.Height)}
}

func (m *Tank) Output(x prog.State) prog.Output {
	return prog.Output{"h": x["h"]}
}

func (m *Tank) EventState(x prog.State) map[string]float64 {
	return map[string]float64{
		"full":  (m.Height - x["h"]) / m.Height,
		"empty": x["h"] / m.Height,
	}
}

func (m *Tank) StateLimits() map[string][2]float64 {
	return map[string][2]float64{"h": {0, math.Inf(1)}}
}
