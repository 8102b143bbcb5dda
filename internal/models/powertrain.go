package models

import (
	"math"

	"github.com/ravi-mn/prognos/internal/prog"
)

// Powertrain models a brushed DC motor behind an ESC: armature current,
// shaft speed, and winding temperature. The Overheat event fires when the
// winding reaches its insulation limit.
type Powertrain struct {
	Resistance  float64 // armature resistance, ohm
	Inductance  float64 // armature inductance, H
	Kt          float64 // torque constant, N*m/A
	Ke          float64 // back-EMF constant, V*s/rad
	Inertia     float64 // rotor inertia, kg*m^2
	Damping     float64 // viscous friction, N*m*s/rad
	ThermalMass float64 // winding thermal mass, J/K
	CoolingRate float64 // W/K
	AmbientTemp float64 // K
	TempLimit   float64 // winding insulation limit, K
}

func NewPowertrain() *Powertrain {
	return &Powertrain{
		Resistance:  0.616,
		Inductance:  6.38e-4,
		Kt:          2.18e-2,
		Ke:          2.18e-2,
		Inertia:     2.7e-5,
		Damping:     2.4e-6,
		ThermalMass: 45.0,
		CoolingRate: 0.22,
		AmbientTemp: 293.15,
		TempLimit:   428.15,
	}
}

func (m *Powertrain) Name() string      { return "powertrain" }
func (m *Powertrain) Inputs() []string  { return []string{"duty", "v"} }
func (m *Powertrain) States() []string  { return []string{"i", "w", "T"} }
func (m *Powertrain) Outputs() []string { return []string{"w"} }
func (m *Powertrain) Events() []string  { return []string{"Overheat"} }

func (m *Powertrain) InitialState() prog.State {
	return prog.State{"i": 0, "w": 0, "T": m.AmbientTemp}
}

func (m *Powertrain) Derivative(x prog.State, u prog.Input, t float64) prog.State {
	vApplied := clamp(u["duty"], 0, 1) * u["v"]

	iDot := (vApplied - m.Resistance*x["i"] - m.Ke*x["w"]) / m.Inductance
	wDot := (m.Kt*x["i"] - m.Damping*x["w"]) / m.Inertia
	tDot := (m.Resistance*x["i"]*x["i"] - m.CoolingRate*(x["T"]-m.AmbientTemp)) / m.ThermalMass

	return prog.State{"i": iDot, "w": wDot, "T": tDot}
}

func (m *Powertrain) Output(x prog.State) prog.Output {
	return prog.Output{"w": x["w"]}
}

func (m *Powertrain) EventState(x prog.State) map[string]float64 {
	es := (m.TempLimit - x["T"]) / (m.TempLimit - m.AmbientTemp)
	return map[string]float64{"Overheat": clamp(es, 0, 1)}
}

func (m *Powertrain) StateLimits() map[string][2]float64 {
	return map[string][2]float64{"T": {0, math.Inf(1)}}
}
