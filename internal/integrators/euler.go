package integrators

import "github.com/ravi-mn/prognos/internal/prog"

type Euler struct{}

func NewEuler() *Euler {
	return &Euler{}
}

func (e *Euler) Step(dyn prog.Continuous, x prog.State, u prog.Input, t, dt float64) prog.State {
	dx := dyn.Derivative(x, u, t)
	result := make(prog.State, len(x))
	for k, v := range x {
		result[k] = v + dt*dx[k]
	}
	return result
}
