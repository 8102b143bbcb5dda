// Package models contains the built-in prognostics models. Each model is a
// struct with exported parameter fields and a New* constructor providing
// sensible defaults.
package models

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/ravi-mn/prognos/internal/prog"
)

// ThrownObject models an object thrown straight up without air resistance.
// Two events: falling (velocity turns negative) and impact (position reaches
// the ground). It is linear, so it also works with the Kalman filter.
type ThrownObject struct {
	ThrowerHeight float64
	ThrowingSpeed float64
	Gravity       float64
}

func NewThrownObject() *ThrownObject {
	return &ThrownObject{
		ThrowerHeight: 1.83,
		ThrowingSpeed: 40.0,
		Gravity:       -9.81,
	}
}

func (m *ThrownObject) Name() string      { return "thrown_object" }
func (m *ThrownObject) Inputs() []string  { return nil }
func (m *ThrownObject) States() []string  { return []string{"x", "v"} }
func (m *ThrownObject) Outputs() []string { return []string{"x"} }
func (m *ThrownObject) Events() []string  { return []string{"falling", "impact"} }

func (m *ThrownObject) InitialState() prog.State {
	return prog.State{"x": m.ThrowerHeight, "v": m.ThrowingSpeed}
}

func (m *ThrownObject) Derivative(x prog.State, u prog.Input, t float64) prog.State {
	return prog.State{"x": x["v"], "v": m.Gravity}
}

func (m *ThrownObject) Output(x prog.State) prog.Output {
	return prog.Output{"x": x["x"]}
}

func (m *ThrownObject) EventState(x prog.State) map[string]float64 {
	// impact is 1 until the fall begins, then the height left to fall
	// relative to the apex; x + v^2/(2g) stays at the apex height during
	// free fall, so the ratio runs 1 at the apex down to 0 at the ground
	impact := 1.0
	if x["v"] < 0 {
		apex := x["x"] + x["v"]*x["v"]/(-2*m.Gravity)
		impact = 0
		if apex > 0 {
			impact = math.Max(x["x"]/apex, 0)
		}
	}
	return map[string]float64{
		"falling": math.Max(x["v"]/m.ThrowingSpeed, 0),
		"impact":  impact,
	}
}

func (m *ThrownObject) ThresholdMet(x prog.State) map[string]bool {
	return map[string]bool{
		"falling": x["v"] < 0,
		"impact":  x["x"] <= 0,
	}
}

func (m *ThrownObject) AMatrix() *mat.Dense  { return mat.NewDense(2, 2, []float64{0, 1, 0, 0}) }
func (m *ThrownObject) BMatrix() *mat.Dense  { return mat.NewDense(2, 1, []float64{0, 0}) }
func (m *ThrownObject) EVector() *mat.VecDense {
	return mat.NewVecDense(2, []float64{0, m.Gravity})
}
func (m *ThrownObject) CMatrix() *mat.Dense  { return mat.NewDense(1, 2, []float64{1, 0}) }
func (m *ThrownObject) DVector() *mat.VecDense { return mat.NewVecDense(1, []float64{0}) }
