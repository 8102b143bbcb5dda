package prog

// Advance moves a model one step forward. Discrete-time models transition
// directly; continuous models are integrated with integ. State limits are
// applied to the result.
func Advance(m Model, integ Integrator, x State, u Input, t, dt float64) (State, error) {
	var next State
	switch dyn := m.(type) {
	case Transitioner:
		next = dyn.NextState(x.Clone(), u, dt)
	case Continuous:
		if integ == nil {
			return nil, ErrNoIntegrator
		}
		next = integ.Step(dyn, x, u, t, dt)
	default:
		return nil, ErrNoTransition
	}
	ApplyLimits(m, next)
	return next, nil
}
