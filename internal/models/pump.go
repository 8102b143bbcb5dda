package models

import (
	"math"

	"github.com/ravi-mn/prognos/internal/prog"
)

// CentrifugalPump models a pump degrading through impeller wear and bearing
// friction. Flow falls off as the impeller wears; friction in the thrust and
// radial bearings grows with use and heats each bearing toward its limit.
// Three events: ImpellerWearFailure, ThrustBearingOverheat, and
// RadialBearingOverheat.
type CentrifugalPump struct {
	ImpellerArea0   float64 // effective impeller area when new, m^2
	ImpellerAreaMin float64 // area below which delivery is unacceptable
	WearCoefficient float64 // area loss per unit flow-speed product
	FlowCoefficient float64 // flow per area-speed product

	ThrustFriction0      float64
	RadialFriction0      float64
	ThrustFrictionGrowth float64 // friction growth per unit speed
	RadialFrictionGrowth float64

	BearingMass      float64 // thermal mass of a bearing assembly, J/K
	HeatCoefficient  float64 // friction heating, W per friction-speed^2
	CoolingRate      float64 // heat loss to ambient, W/K
	AmbientTemp      float64 // K
	BearingTempLimit float64 // K
}

func NewCentrifugalPump() *CentrifugalPump {
	return &CentrifugalPump{
		ImpellerArea0:   12.7e-3,
		ImpellerAreaMin: 9.5e-3,
		WearCoefficient: 1e-12,
		FlowCoefficient: 0.06,

		// the thrust bearing carries the axial load and wears faster
		ThrustFriction0:      8e-3,
		RadialFriction0:      6e-3,
		ThrustFrictionGrowth: 1.4e-10,
		RadialFrictionGrowth: 1.0e-10,

		BearingMass:      7240,
		HeatCoefficient:  1.1e-4,
		CoolingRate:      1.7,
		AmbientTemp:      290,
		BearingTempLimit: 370,
	}
}

func (m *CentrifugalPump) Name() string     { return "centrifugal_pump" }
func (m *CentrifugalPump) Inputs() []string { return []string{"w"} }
func (m *CentrifugalPump) States() []string {
	return []string{"A", "rThrust", "rRadial", "Tt", "Tr", "Q"}
}
func (m *CentrifugalPump) Outputs() []string { return []string{"Q", "Tt", "Tr"} }
func (m *CentrifugalPump) Events() []string {
	return []string{"ImpellerWearFailure", "ThrustBearingOverheat", "RadialBearingOverheat"}
}

func (m *CentrifugalPump) InitialState() prog.State {
	return prog.State{
		"A":       m.ImpellerArea0,
		"rThrust": m.ThrustFriction0,
		"rRadial": m.RadialFriction0,
		"Tt":      m.AmbientTemp,
		"Tr":      m.AmbientTemp,
		"Q":       0,
	}
}

func (m *CentrifugalPump) Derivative(x prog.State, u prog.Input, t float64) prog.State {
	w := u["w"]
	flow := m.FlowCoefficient * x["A"] * w

	// wear scales with delivered flow, friction with shaft speed
	aDot := -m.WearCoefficient * flow * w
	rtDot := m.ThrustFrictionGrowth * math.Abs(w)
	rrDot := m.RadialFrictionGrowth * math.Abs(w)

	ttDot := m.bearingTempRate(x["rThrust"], x["Tt"], w)
	trDot := m.bearingTempRate(x["rRadial"], x["Tr"], w)

	// first-order flow response to the wear-reduced setpoint
	qDot := (flow - x["Q"]) / 10.0

	return prog.State{
		"A":       aDot,
		"rThrust": rtDot,
		"rRadial": rrDot,
		"Tt":      ttDot,
		"Tr":      trDot,
		"Q":       qDot,
	}
}

func (m *CentrifugalPump) bearingTempRate(r, temp, w float64) float64 {
	heating := m.HeatCoefficient * r * w * w
	cooling := m.CoolingRate * (temp - m.AmbientTemp)
	return (heating - cooling) / m.BearingMass
}

func (m *CentrifugalPump) Output(x prog.State) prog.Output {
	return prog.Output{"Q": x["Q"], "Tt": x["Tt"], "Tr": x["Tr"]}
}

func (m *CentrifugalPump) EventState(x prog.State) map[string]float64 {
	wear := (x["A"] - m.ImpellerAreaMin) / (m.ImpellerArea0 - m.ImpellerAreaMin)
	span := m.BearingTempLimit - m.AmbientTemp
	thrust := (m.BearingTempLimit - x["Tt"]) / span
	radial := (m.BearingTempLimit - x["Tr"]) / span
	return map[string]float64{
		"ImpellerWearFailure":   clamp(wear, 0, 1),
		"ThrustBearingOverheat": clamp(thrust, 0, 1),
		"RadialBearingOverheat": clamp(radial, 0, 1),
	}
}

func (m *CentrifugalPump) StateLimits() map[string][2]float64 {
	inf := math.Inf(1)
	return map[string][2]float64{
		"A":       {0, inf},
		"rThrust": {0, inf},
		"rRadial": {0, inf},
		"Tt":      {0, inf},
		"Tr":      {0, inf},
		"Q":       {0, inf},
	}
}
