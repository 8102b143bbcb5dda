package models

import (
	"math"

	"github.com/ravi-mn/prognos/internal/prog"
)

// BatterySimplified is a lumped battery discharge model driven by power draw.
// Two events: EOD (state of charge exhausted) and LowVoltage (terminal
// voltage below VEOD). Defaults are for a Tattu LiPo pack.
type BatterySimplified struct {
	ECrit  float64 // total energy capacity, J
	VL     float64 // nominal (full charge) voltage, V
	Lambda float64
	Gamma  float64
	Mu     float64
	Beta   float64
	RInt   float64 // internal resistance, ohm
	VEOD   float64 // end of discharge voltage threshold, V
}

func NewBatterySimplified() *BatterySimplified {
	return &BatterySimplified{
		ECrit:  202426.858,
		VL:     11.148,
		Lambda: 0.046,
		Gamma:  3.355,
		Mu:     2.759,
		Beta:   8.482,
		RInt:   0.027,
		VEOD:   9.0,
	}
}

func (m *BatterySimplified) Name() string      { return "battery_simplified" }
func (m *BatterySimplified) Inputs() []string  { return []string{"P"} }
func (m *BatterySimplified) States() []string  { return []string{"SOC", "v"} }
func (m *BatterySimplified) Outputs() []string { return []string{"v"} }
func (m *BatterySimplified) Events() []string  { return []string{"EOD", "LowVoltage"} }

func (m *BatterySimplified) InitialState() prog.State {
	return prog.State{"SOC": 1.0, "v": m.VL}
}

func (m *BatterySimplified) NextState(x prog.State, u prog.Input, dt float64) prog.State {
	soc := x["SOC"] - u["P"]*dt/m.ECrit

	vOC := m.VL - math.Pow(m.Lambda, m.Gamma*soc) - m.Mu*math.Exp(-m.Beta*math.Sqrt(soc))
	i := (vOC - math.Sqrt(vOC*vOC-4*m.RInt*u["P"])) / (2 * m.RInt)

	return prog.State{"SOC": soc, "v": vOC - i*m.RInt}
}

func (m *BatterySimplified) Output(x prog.State) prog.Output {
	return prog.Output{"v": x["v"]}
}

func (m *BatterySimplified) EventState(x prog.State) map[string]float64 {
	return map[string]float64{
		"EOD":        x["SOC"],
		"LowVoltage": (x["v"] - m.VEOD) / (m.VL - m.VEOD),
	}
}

func (m *BatterySimplified) StateLimits() map[string][2]float64 {
	return map[string][2]float64{
		"SOC": {0, 1},
		"v":   {0, math.Inf(1)},
	}
}
