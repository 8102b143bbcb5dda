// Package loading provides future-loading profiles: callables producing a
// model's input vector as a function of time and, optionally, current state.
// Profiles expose a Load method assignable to prog.Loader.
package loading

import (
	"fmt"
	"math"
	"sort"

	"github.com/ravi-mn/prognos/internal/prog"
)

// Const always returns the same input vector.
type Const struct {
	values prog.Input
}

func NewConst(values prog.Input) *Const {
	return &Const{values: values.Clone()}
}

func (c *Const) Load(t float64, x prog.State) prog.Input {
	return c.values.Clone()
}

// Piecewise returns, for each input key, the value whose time bracket
// contains t. Each value list must have the same length as times, or one
// more; in the latter case the extra value is the default applied after the
// last time has passed.
type Piecewise struct {
	times  []float64
	values map[string][]float64
}

func NewPiecewise(times []float64, values map[string][]float64) (*Piecewise, error) {
	if !sort.Float64sAreSorted(times) {
		return nil, fmt.Errorf("loading: piecewise times must be ascending")
	}
	n := -1
	for key, vals := range values {
		if n == -1 {
			n = len(vals)
		} else if len(vals) != n {
			return nil, fmt.Errorf("loading: all values must have the same number of elements, %q has %d", key, len(vals))
		}
	}
	if n != len(times) && n != len(times)+1 {
		return nil, fmt.Errorf("loading: values must have the same or one more element than times")
	}

	p := &Piecewise{
		times:  append([]float64(nil), times...),
		values: make(map[string][]float64, len(values)),
	}
	for key, vals := range values {
		p.values[key] = append([]float64(nil), vals...)
	}
	if n == len(times)+1 {
		// last value is the default after the final time
		p.times = append(p.times, math.Inf(1))
	}
	return p, nil
}

func (p *Piecewise) Load(t float64, x prog.State) prog.Input {
	u := make(prog.Input, len(p.values))
	for key, vals := range p.values {
		u[key] = vals[len(vals)-1]
		for i, edge := range p.times {
			if edge > t {
				u[key] = vals[i]
				break
			}
		}
	}
	return u
}
