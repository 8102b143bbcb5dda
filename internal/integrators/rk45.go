package integrators

import (
	"math"

	"github.com/ravi-mn/prognos/internal/prog"
)

// Dormand-Prince coefficients (RK45)
var (
	a2 = 1.0 / 5.0
	a3 = 3.0 / 10.0
	a4 = 4.0 / 5.0
	a5 = 8.0 / 9.0

	b21 = 1.0 / 5.0
	b31 = 3.0 / 40.0
	b32 = 9.0 / 40.0
	b41 = 44.0 / 45.0
	b42 = -56.0 / 15.0
	b43 = 32.0 / 9.0
	b51 = 19372.0 / 6561.0
	b52 = -25360.0 / 2187.0
	b53 = 64448.0 / 6561.0
	b54 = -212.0 / 729.0
	b61 = 9017.0 / 3168.0
	b62 = -355.0 / 33.0
	b63 = 46732.0 / 5247.0
	b64 = 49.0 / 176.0
	b65 = -5103.0 / 18656.0

	c1 = 35.0 / 384.0
	c3 = 500.0 / 1113.0
	c4 = 125.0 / 192.0
	c5 = -2187.0 / 6784.0
	c6 = 11.0 / 84.0

	dc1 = c1 - 5179.0/57600.0
	dc3 = c3 - 7571.0/16695.0
	dc4 = c4 - 393.0/640.0
	dc5 = c5 - -92097.0/339200.0
	dc6 = c6 - 187.0/2100.0
	dc7 = -1.0 / 40.0
)

type RK45 struct {
	safety   float64
	minScale float64
	maxScale float64
}

func NewRK45() *RK45 {
	return &RK45{
		safety:   0.9,
		minScale: 0.2,
		maxScale: 10.0,
	}
}

func (r *RK45) Step(dyn prog.Continuous, x prog.State, u prog.Input, t, dt float64) prog.State {
	newX, _, _ := r.StepAdaptive(dyn, x, u, t, dt, 1e-6)
	return newX
}

func (r *RK45) StepAdaptive(dyn prog.Continuous, x prog.State, u prog.Input, t, dt, tol float64) (prog.State, float64, error) {
	stage := func() prog.State { return make(prog.State, len(x)) }

	k1 := dyn.Derivative(x, u, t)

	x2 := stage()
	for key, v := range x {
		x2[key] = v + dt*b21*k1[key]
	}
	k2 := dyn.Derivative(x2, u, t+a2*dt)

	x3 := stage()
	for key, v := range x {
		x3[key] = v + dt*(b31*k1[key]+b32*k2[key])
	}
	k3 := dyn.Derivative(x3, u, t+a3*dt)

	x4 := stage()
	for key, v := range x {
		x4[key] = v + dt*(b41*k1[key]+b42*k2[key]+b43*k3[key])
	}
	k4 := dyn.Derivative(x4, u, t+a4*dt)

	x5 := stage()
	for key, v := range x {
		x5[key] = v + dt*(b51*k1[key]+b52*k2[key]+b53*k3[key]+b54*k4[key])
	}
	k5 := dyn.Derivative(x5, u, t+a5*dt)

	x6 := stage()
	for key, v := range x {
		x6[key] = v + dt*(b61*k1[key]+b62*k2[key]+b63*k3[key]+b64*k4[key]+b65*k5[key])
	}
	k6 := dyn.Derivative(x6, u, t+dt)

	xNew := stage()
	for key, v := range x {
		xNew[key] = v + dt*(c1*k1[key]+c3*k3[key]+c4*k4[key]+c5*k5[key]+c6*k6[key])
	}

	k7 := dyn.Derivative(xNew, u, t+dt)

	errMax := 0.0
	for key, v := range x {
		errEst := dt * (dc1*k1[key] + dc3*k3[key] + dc4*k4[key] + dc5*k5[key] + dc6*k6[key] + dc7*k7[key])
		scale := math.Abs(v) + math.Abs(dt*k1[key]) + 1e-10
		errMax = math.Max(errMax, math.Abs(errEst)/scale)
	}

	errRatio := errMax / tol

	var dtNew float64
	if errRatio > 1 {
		scale := math.Max(r.minScale, r.safety*math.Pow(errRatio, -0.25))
		dtNew = dt * scale
	} else {
		if errRatio > 0 {
			scale := math.Min(r.maxScale, r.safety*math.Pow(errRatio, -0.2))
			dtNew = dt * scale
		} else {
			dtNew = dt * r.maxScale
		}
	}

	return xNew, dtNew, nil
}
