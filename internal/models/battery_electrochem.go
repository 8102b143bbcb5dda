package models

import (
	"math"

	"github.com/ravi-mn/prognos/internal/prog"
)

// Constants of nature.
const (
	gasR    = 8.3144621 // universal gas constant, J/K/mol
	faraday = 96487.0   // Faraday's constant, C/mol
	thermMC = 37.04     // kg/m2/(K-s^2)
	thermTau = 100.0
)

// electrodePotential evaluates the Redlich-Kister expansion for an electrode
// at mole fraction xs and temperature tb.
func electrodePotential(u0 float64, a []float64, xs, tb float64) float64 {
	x2m1 := 2*xs - 1
	sum := 0.0
	for k, ak := range a {
		if ak == 0 {
			continue
		}
		kf := float64(k)
		term := math.Pow(x2m1, kf+1)
		if k > 0 {
			term -= 2 * kf * xs * (1 - xs) * math.Pow(x2m1, kf-1)
		}
		sum += ak * term / faraday
	}
	return u0 + gasR*tb/faraday*math.Log((1-xs)/xs) + sum
}

// BatteryElectroChemEOD is an electrochemistry battery discharge model for
// Li-ion 18650 cells, predicting the end of discharge event from current draw.
type BatteryElectroChemEOD struct {
	QMobile      float64
	XnMax, XnMin float64
	XpMax, XpMin float64
	Ro           float64

	Alpha  float64
	Sn, Sp float64
	Kn, Kp float64

	Vol          float64
	VolSFraction float64

	TDiffusion    float64
	To, Tsn, Tsp  float64

	U0p float64
	Ap  []float64
	U0n float64
	An  []float64

	Tb0      float64 // initial temperature, K
	VEOD     float64
	VDropoff float64
}

func NewBatteryElectroChemEOD() *BatteryElectroChemEOD {
	return &BatteryElectroChemEOD{
		QMobile: 7600,
		XnMax:   0.6, XnMin: 0.0,
		XpMax: 1.0, XpMin: 0.4,
		Ro:    0.117215,
		Alpha: 0.5,
		Sn:    0.000437545, Sp: 0.00030962,
		Kn: 2120.96, Kp: 248898,
		Vol:          2e-5,
		VolSFraction: 0.1,
		TDiffusion:   7e6,
		To:           6.08671, Tsn: 1001.38, Tsp: 46.4311,
		U0p: 4.03,
		Ap: []float64{
			-31593.7, 0.106747, 24606.4, -78561.9, 13317.9, 307387,
			84916.1, -1.07469e6, 2285.04, 990894, 283920, -161513, -469218,
		},
		U0n:      0.01,
		An:       []float64{86.19, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0},
		Tb0:      292.1,
		VEOD:     3.0,
		VDropoff: 0.1,
	}
}

// Derived charge and volume parameters.
func (m *BatteryElectroChemEOD) qMax() float64  { return m.QMobile / (m.XnMax - m.XnMin) }
func (m *BatteryElectroChemEOD) qSMax() float64 { return m.qMax() * m.VolSFraction }
func (m *BatteryElectroChemEOD) qnMax() float64 { return m.qMax() * m.XnMax }
func (m *BatteryElectroChemEOD) volS() float64  { return m.VolSFraction * m.Vol }
func (m *BatteryElectroChemEOD) volB() float64  { return m.Vol * (1 - m.VolSFraction) }

func (m *BatteryElectroChemEOD) Name() string     { return "battery_electrochem_eod" }
func (m *BatteryElectroChemEOD) Inputs() []string { return []string{"i"} }
func (m *BatteryElectroChemEOD) States() []string {
	return []string{"tb", "Vo", "Vsn", "Vsp", "qnB", "qnS", "qpB", "qpS"}
}
func (m *BatteryElectroChemEOD) Outputs() []string { return []string{"t", "v"} }
func (m *BatteryElectroChemEOD) Events() []string  { return []string{"EOD"} }

func (m *BatteryElectroChemEOD) InitialState() prog.State {
	qMax := m.qMax()
	return prog.State{
		"tb":  m.Tb0,
		"Vo":  0,
		"Vsn": 0,
		"Vsp": 0,
		"qnB": qMax * m.XnMax * (1 - m.VolSFraction),
		"qnS": qMax * m.XnMax * m.VolSFraction,
		"qpB": qMax * m.XpMin * (1 - m.VolSFraction),
		"qpS": qMax * m.XpMin * m.VolSFraction,
	}
}

func (m *BatteryElectroChemEOD) Derivative(x prog.State, u prog.Input, t float64) prog.State {
	return electroChemRates(x, u["i"], electroChemParams{
		volB: m.volB(), volS: m.volS(), qSMax: m.qSMax(),
		tDiffusion: m.TDiffusion,
		sn: m.Sn, sp: m.Sp, kn: m.Kn, kp: m.Kp, alpha: m.Alpha,
		ro: m.Ro, to: m.To, tsn: m.Tsn, tsp: m.Tsp, tb0: m.Tb0,
	})
}

func (m *BatteryElectroChemEOD) Output(x prog.State) prog.Output {
	t, v := m.tempVoltage(x, m.qSMax())
	return prog.Output{"t": t, "v": v}
}

func (m *BatteryElectroChemEOD) tempVoltage(x prog.State, qSMax float64) (float64, float64) {
	ven := electrodePotential(m.U0n, m.An, x["qnS"]/qSMax, x["tb"])
	vep := electrodePotential(m.U0p, m.Ap, x["qpS"]/qSMax, x["tb"])
	return x["tb"] - 273.15, vep - ven - x["Vo"] - x["Vsn"] - x["Vsp"]
}

// EventState blends a charge-based estimate with a voltage-based one. Charge
// tracks SOC well for most of the discharge; near VEOD the voltage drop is
// the driving factor.
func (m *BatteryElectroChemEOD) EventState(x prog.State) map[string]float64 {
	return map[string]float64{"EOD": m.eodState(x, m.qnMax(), m.qSMax())}
}

func (m *BatteryElectroChemEOD) eodState(x prog.State, qnMax, qSMax float64) float64 {
	_, v := m.tempVoltage(x, qSMax)
	chargeEOD := (x["qnS"] + x["qnB"]) / qnMax
	voltageEOD := (v - m.VEOD) / m.VDropoff
	return clamp(math.Min(chargeEOD, voltageEOD), 0, 1)
}

func (m *BatteryElectroChemEOD) ThresholdMet(x prog.State) map[string]bool {
	_, v := m.tempVoltage(x, m.qSMax())
	return map[string]bool{"EOD": v < m.VEOD}
}

func (m *BatteryElectroChemEOD) StateLimits() map[string][2]float64 {
	inf := math.Inf(1)
	return map[string][2]float64{
		"tb":  {0, inf},
		"qnB": {0, inf},
		"qnS": {0, inf},
		"qpB": {0, inf},
		"qpS": {0, inf},
	}
}

// electroChemParams carries the values the rate equations need, so the EOD
// model and the combined EOD+EOL model (where some become states) share them.
type electroChemParams struct {
	volB, volS, qSMax float64
	tDiffusion        float64
	sn, sp, kn, kp    float64
	alpha             float64
	ro, to, tsn, tsp  float64
	tb0               float64
}

func electroChemRates(x prog.State, i float64, p electroChemParams) prog.State {
	// Negative surface
	cnBulk := x["qnB"] / p.volB
	cnSurface := x["qnS"] / p.volS
	xnS := x["qnS"] / p.qSMax

	qdotDiffusionBSn := (cnBulk - cnSurface) / p.tDiffusion
	qnBdot := -qdotDiffusionBSn
	qnSdot := qdotDiffusionBSn - i

	jn := i / p.sn
	jn0 := p.kn * math.Pow((1-xnS)*xnS, p.alpha)

	vPart := gasR / faraday * x["tb"] / p.alpha

	vsnNominal := vPart * math.Asinh(jn/(jn0+jn0))
	vsndot := (vsnNominal - x["Vsn"]) / p.tsn

	// Positive surface
	cpBulk := x["qpB"] / p.volB
	cpSurface := x["qpS"] / p.volS
	xpS := x["qpS"] / p.qSMax

	qdotDiffusionBSp := (cpBulk - cpSurface) / p.tDiffusion
	qpBdot := -qdotDiffusionBSp
	qpSdot := i + qdotDiffusionBSp

	jp := i / p.sp
	jp0 := p.kp * math.Pow((1-xpS)*xpS, p.alpha)

	vspNominal := vPart * math.Asinh(jp/(jp0+jp0))
	vspdot := (vspNominal - x["Vsp"]) / p.tsp

	// Ohmic drop
	voNominal := i * p.ro
	vodot := (voNominal - x["Vo"]) / p.to

	// Newman thermal model
	voltageEta := x["Vo"] + x["Vsn"] + x["Vsp"]
	tbdot := voltageEta*i/thermMC + (p.tb0-x["tb"])/thermTau

	return prog.State{
		"tb":  tbdot,
		"Vo":  vodot,
		"Vsn": vsndot,
		"Vsp": vspdot,
		"qnB": qnBdot,
		"qnS": qnSdot,
		"qpB": qpBdot,
		"qpS": qpSdot,
	}
}

// BatteryElectroChemEOL models battery aging: capacity, internal resistance,
// and diffusion degrade with throughput until capacity falls below a
// manufacturer threshold.
type BatteryElectroChemEOL struct {
	QMax0         float64
	Ro0           float64
	D0            float64
	Wq, Wr, Wd    float64
	QMaxThreshold float64
}

func NewBatteryElectroChemEOL() *BatteryElectroChemEOL {
	return &BatteryElectroChemEOL{
		QMax0: 7600,
		Ro0:   0.117215,
		D0:    7e6,
		Wq:    -1e-2,
		Wr:    1e-6,
		Wd:    1e-2,
		QMaxThreshold: 5320,
	}
}

func (m *BatteryElectroChemEOL) Name() string      { return "battery_electrochem_eol" }
func (m *BatteryElectroChemEOL) Inputs() []string  { return []string{"i"} }
func (m *BatteryElectroChemEOL) States() []string  { return []string{"qMax", "Ro", "D"} }
func (m *BatteryElectroChemEOL) Outputs() []string { return nil }
func (m *BatteryElectroChemEOL) Events() []string  { return []string{"InsufficientCapacity"} }

func (m *BatteryElectroChemEOL) InitialState() prog.State {
	return prog.State{"qMax": m.QMax0, "Ro": m.Ro0, "D": m.D0}
}

func (m *BatteryElectroChemEOL) Derivative(x prog.State, u prog.Input, t float64) prog.State {
	ai := math.Abs(u["i"])
	return prog.State{"qMax": m.Wq * ai, "Ro": m.Wr * ai, "D": m.Wd * ai}
}

func (m *BatteryElectroChemEOL) Output(x prog.State) prog.Output {
	return prog.Output{}
}

func (m *BatteryElectroChemEOL) EventState(x prog.State) map[string]float64 {
	es := (x["qMax"] - m.QMaxThreshold) / (m.QMax0 - m.QMaxThreshold)
	return map[string]float64{"InsufficientCapacity": clamp(es, 0, 1)}
}

func (m *BatteryElectroChemEOL) ThresholdMet(x prog.State) map[string]bool {
	return map[string]bool{"InsufficientCapacity": x["qMax"] < m.QMaxThreshold}
}

func (m *BatteryElectroChemEOL) StateLimits() map[string][2]float64 {
	return map[string][2]float64{"qMax": {0, math.Inf(1)}}
}

// BatteryElectroChemEODEOL combines discharge and aging: capacity, diffusion,
// and resistance become states that degrade with throughput, so repeated
// discharge cycles shorten each subsequent one.
type BatteryElectroChemEODEOL struct {
	BatteryElectroChemEOD
	Wq, Wr, Wd    float64
	QMaxThreshold float64
}

func NewBatteryElectroChemEODEOL() *BatteryElectroChemEODEOL {
	return &BatteryElectroChemEODEOL{
		BatteryElectroChemEOD: *NewBatteryElectroChemEOD(),
		Wq:                    -1e-2,
		Wr:                    1e-6,
		Wd:                    1e-2,
		QMaxThreshold:         5320,
	}
}

func (m *BatteryElectroChemEODEOL) Name() string { return "battery_electrochem" }
func (m *BatteryElectroChemEODEOL) States() []string {
	return []string{"tb", "Vo", "Vsn", "Vsp", "qnB", "qnS", "qpB", "qpS", "qMobile", "tDiffusion", "Ro"}
}
func (m *BatteryElectroChemEODEOL) Events() []string {
	return []string{"EOD", "InsufficientCapacity"}
}

func (m *BatteryElectroChemEODEOL) InitialState() prog.State {
	x := m.BatteryElectroChemEOD.InitialState()
	x["qMobile"] = m.QMobile
	x["tDiffusion"] = m.TDiffusion
	x["Ro"] = m.Ro
	return x
}

// liveQ recomputes charge normalization from the degrading capacity state.
func (m *BatteryElectroChemEODEOL) liveQ(x prog.State) (qMax, qSMax, qnMax float64) {
	qMax = x["qMobile"] / (m.XnMax - m.XnMin)
	return qMax, qMax * m.VolSFraction, qMax * m.XnMax
}

func (m *BatteryElectroChemEODEOL) Derivative(x prog.State, u prog.Input, t float64) prog.State {
	_, qSMax, _ := m.liveQ(x)
	dx := electroChemRates(x, u["i"], electroChemParams{
		volB: m.volB(), volS: m.volS(), qSMax: qSMax,
		tDiffusion: x["tDiffusion"],
		sn: m.Sn, sp: m.Sp, kn: m.Kn, kp: m.Kp, alpha: m.Alpha,
		ro: x["Ro"], to: m.To, tsn: m.Tsn, tsp: m.Tsp, tb0: m.Tb0,
	})
	ai := math.Abs(u["i"])
	dx["qMobile"] = m.Wq * ai
	dx["tDiffusion"] = m.Wd * ai
	dx["Ro"] = m.Wr * ai
	return dx
}

func (m *BatteryElectroChemEODEOL) Output(x prog.State) prog.Output {
	_, qSMax, _ := m.liveQ(x)
	t, v := m.tempVoltage(x, qSMax)
	return prog.Output{"t": t, "v": v}
}

func (m *BatteryElectroChemEODEOL) EventState(x prog.State) map[string]float64 {
	_, qSMax, qnMax := m.liveQ(x)
	es := (x["qMobile"] - m.QMaxThreshold) / (m.QMobile - m.QMaxThreshold)
	return map[string]float64{
		"EOD":                  m.eodState(x, qnMax, qSMax),
		"InsufficientCapacity": clamp(es, 0, 1),
	}
}

func (m *BatteryElectroChemEODEOL) ThresholdMet(x prog.State) map[string]bool {
	_, qSMax, _ := m.liveQ(x)
	_, v := m.tempVoltage(x, qSMax)
	return map[string]bool{
		"EOD":                  v < m.VEOD,
		"InsufficientCapacity": x["qMobile"] < m.QMaxThreshold,
	}
}

func (m *BatteryElectroChemEODEOL) StateLimits() map[string][2]float64 {
	lim := m.BatteryElectroChemEOD.StateLimits()
	lim["qMobile"] = [2]float64{0, math.Inf(1)}
	return lim
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}
