// Package surrogate builds cheap approximate models from simulations of an
// expensive one. The DMD surrogate learns a linear one-step operator over
// stacked state, output, and event state snapshots, then replays it orders
// of magnitude faster than the source model.
package surrogate

import (
	"context"
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/ravi-mn/prognos/internal/prog"
	"github.com/ravi-mn/prognos/internal/sim"
)

// TrainOptions configures surrogate training.
type TrainOptions struct {
	// Dt is the fixed training (and replay) time step.
	Dt float64
	// Horizon bounds each training simulation.
	Horizon float64
	// TruncationTolerance drops singular values below tol * largest when
	// inverting the snapshot matrix. Zero means 1e-10.
	TruncationTolerance float64
}

// DMD is a dynamic mode decomposition surrogate. It is a discrete-time
// model whose state stacks the source model's states, outputs (prefixed
// "z_"), and event states (prefixed "es_"); one matrix multiply advances
// all of them by Dt.
type DMD struct {
	name       string
	stateKeys  []string // stacked surrogate state keys
	inputKeys  []string
	outputKeys []string // source output keys
	eventKeys  []string

	w  *mat.Dense // one-step operator, len(stateKeys) x (len(stateKeys)+len(inputKeys))
	x0 prog.State
	dt float64
}

// Train builds a DMD surrogate of a model by simulating it to threshold
// under each provided loading profile and fitting the one-step operator to
// the collected snapshots.
func Train(ctx context.Context, m prog.Model, integ prog.Integrator, loads []prog.Loader, opts TrainOptions) (*DMD, error) {
	if len(loads) == 0 {
		return nil, fmt.Errorf("surrogate: at least one training load profile required")
	}
	if opts.Dt <= 0 {
		return nil, fmt.Errorf("surrogate: training requires a positive dt")
	}
	if opts.Horizon <= 0 {
		opts.Horizon = 1e4
	}

	simOpts := sim.DefaultOptions()
	simOpts.Dt = opts.Dt
	simOpts.SaveFreq = 0 // keep every step
	simOpts.Horizon = opts.Horizon

	results := make([]*sim.Result, 0, len(loads))
	s := sim.New(m, integ)
	for _, load := range loads {
		res, err := s.SimulateToThreshold(ctx, load, simOpts)
		if err != nil && res == nil {
			return nil, fmt.Errorf("surrogate: training simulation failed: %w", err)
		}
		results = append(results, res)
	}
	return Fit(m, results, opts)
}

// Fit builds the surrogate from already-simulated trajectories. Each
// trajectory must be sampled at the fixed opts.Dt.
func Fit(m prog.Model, results []*sim.Result, opts TrainOptions) (*DMD, error) {
	stateKeys := stackedKeys(m)
	inputKeys := m.Inputs()
	k := len(stateKeys)
	ku := len(inputKeys)

	snapshots := 0
	for _, r := range results {
		if r.Len() > 1 {
			snapshots += r.Len() - 1
		}
	}
	if snapshots < k+ku {
		return nil, fmt.Errorf("surrogate: %d snapshot pairs too few for %d unknowns", snapshots, k+ku)
	}

	// X stacks [x; u] columns, Y the successor states
	xData := mat.NewDense(k+ku, snapshots, nil)
	yData := mat.NewDense(k, snapshots, nil)
	col := 0
	for _, r := range results {
		for i := 0; i+1 < r.Len(); i++ {
			cur := stackPoint(m, stateKeys, r, i)
			next := stackPoint(m, stateKeys, r, i+1)
			for j := 0; j < k; j++ {
				xData.Set(j, col, cur[j])
				yData.Set(j, col, next[j])
			}
			for j, key := range inputKeys {
				xData.Set(k+j, col, r.Inputs[i][key])
			}
			col++
		}
	}

	w, err := leastSquaresOperator(yData, xData, opts.TruncationTolerance)
	if err != nil {
		return nil, err
	}

	// initial stacked state from the first trajectory's first point
	first := results[0]
	if first.Len() == 0 {
		return nil, fmt.Errorf("surrogate: empty training trajectory")
	}
	stacked := stackPoint(m, stateKeys, first, 0)
	x0 := make(prog.State, k)
	for i, key := range stateKeys {
		x0[key] = stacked[i]
	}

	return &DMD{
		name:       m.Name() + "_dmd",
		stateKeys:  stateKeys,
		inputKeys:  inputKeys,
		outputKeys: m.Outputs(),
		eventKeys:  m.Events(),
		w:          w,
		x0:         x0,
		dt:         opts.Dt,
	}, nil
}

// stackedKeys lists the surrogate state keys: source states, then outputs
// as "z_<key>", then event states as "es_<key>".
func stackedKeys(m prog.Model) []string {
	keys := append([]string(nil), m.States()...)
	for _, k := range m.Outputs() {
		keys = append(keys, "z_"+k)
	}
	for _, k := range m.Events() {
		keys = append(keys, "es_"+k)
	}
	return keys
}

func stackPoint(m prog.Model, stateKeys []string, r *sim.Result, i int) []float64 {
	out := make([]float64, 0, len(stateKeys))
	for _, k := range m.States() {
		out = append(out, r.States[i][k])
	}
	for _, k := range m.Outputs() {
		out = append(out, r.Outputs[i][k])
	}
	for _, k := range m.Events() {
		out = append(out, r.EventStates[i][k])
	}
	return out
}

// leastSquaresOperator solves W = Y * pinv(X) with a truncated SVD
// pseudoinverse.
func leastSquaresOperator(y, x *mat.Dense, tol float64) (*mat.Dense, error) {
	if tol <= 0 {
		tol = 1e-10
	}
	var svd mat.SVD
	if ok := svd.Factorize(x, mat.SVDThin); !ok {
		return nil, fmt.Errorf("surrogate: snapshot matrix SVD failed")
	}
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)
	vals := svd.Values(nil)

	cutoff := tol * vals[0]
	sInv := mat.NewDense(len(vals), len(vals), nil)
	for i, sv := range vals {
		if sv > cutoff {
			sInv.Set(i, i, 1/sv)
		}
	}

	// pinv(X) = V * S^-1 * U^T
	var pinv mat.Dense
	pinv.Product(&v, sInv, u.T())

	var w mat.Dense
	w.Mul(y, &pinv)
	return &w, nil
}

// Dt returns the fixed step the surrogate was trained at.
func (d *DMD) Dt() float64 { return d.dt }

func (d *DMD) Name() string      { return d.name }
func (d *DMD) Inputs() []string  { return append([]string(nil), d.inputKeys...) }
func (d *DMD) States() []string  { return append([]string(nil), d.stateKeys...) }
func (d *DMD) Outputs() []string { return append([]string(nil), d.outputKeys...) }
func (d *DMD) Events() []string  { return append([]string(nil), d.eventKeys...) }

func (d *DMD) InitialState() prog.State { return d.x0.Clone() }

// NextState advances the stacked state by one trained step. dt is ignored;
// the surrogate always advances by Dt.
func (d *DMD) NextState(x prog.State, u prog.Input, dt float64) prog.State {
	k := len(d.stateKeys)
	vec := mat.NewVecDense(k+len(d.inputKeys), nil)
	for i, key := range d.stateKeys {
		vec.SetVec(i, x[key])
	}
	for i, key := range d.inputKeys {
		vec.SetVec(k+i, u[key])
	}

	var next mat.VecDense
	next.MulVec(d.w, vec)

	out := make(prog.State, k)
	for i, key := range d.stateKeys {
		out[key] = next.AtVec(i)
	}
	return out
}

func (d *DMD) Output(x prog.State) prog.Output {
	z := make(prog.Output, len(d.outputKeys))
	for _, key := range d.outputKeys {
		z[key] = x["z_"+key]
	}
	return z
}

func (d *DMD) EventState(x prog.State) map[string]float64 {
	es := make(map[string]float64, len(d.eventKeys))
	for _, key := range d.eventKeys {
		es[key] = x["es_"+key]
	}
	return es
}
