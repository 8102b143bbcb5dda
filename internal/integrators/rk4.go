package integrators

import "github.com/ravi-mn/prognos/internal/prog"

type RK4 struct {
	scratch prog.State
}

func NewRK4() *RK4 {
	return &RK4{}
}

// ensureScratch reallocates the stage buffer when the state's key set
// changes, so one instance can step models with different states without
// stale keys leaking into Derivative calls.
func (r *RK4) ensureScratch(x prog.State) {
	if r.scratch == nil || len(r.scratch) != len(x) {
		r.scratch = make(prog.State, len(x))
		return
	}
	for key := range x {
		if _, ok := r.scratch[key]; !ok {
			r.scratch = make(prog.State, len(x))
			return
		}
	}
}

func (r *RK4) Step(dyn prog.Continuous, x prog.State, u prog.Input, t, dt float64) prog.State {
	r.ensureScratch(x)

	k1 := dyn.Derivative(x, u, t)

	for key, v := range x {
		r.scratch[key] = v + dt*0.5*k1[key]
	}
	k2 := dyn.Derivative(r.scratch, u, t+dt*0.5)

	for key, v := range x {
		r.scratch[key] = v + dt*0.5*k2[key]
	}
	k3 := dyn.Derivative(r.scratch, u, t+dt*0.5)

	for key, v := range x {
		r.scratch[key] = v + dt*k3[key]
	}
	k4 := dyn.Derivative(r.scratch, u, t+dt)

	result := make(prog.State, len(x))
	dt6 := dt / 6.0
	for key, v := range x {
		result[key] = v + dt6*(k1[key]+2*k2[key]+2*k3[key]+k4[key])
	}

	return result
}
