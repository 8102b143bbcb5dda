package estimators

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/ravi-mn/prognos/internal/prog"
	"github.com/ravi-mn/prognos/internal/uncertainty"
)

// KalmanFilter estimates state for models in linear form. The continuous
// dynamics are discretized per step as F = I + A*dt.
type KalmanFilter struct {
	model prog.Linear

	stateKeys  []string
	outputKeys []string

	x *mat.VecDense
	p *mat.Dense
	q *mat.Dense
	r *mat.Dense

	lastT float64
	dt    float64
}

// NewKalmanFilter builds a filter for a linear model starting from x0.
// Q and R default to 1e-3 on the diagonal; override with SetQ/SetR.
func NewKalmanFilter(m prog.Model, x0 prog.State) (*KalmanFilter, error) {
	lin, ok := m.(prog.Linear)
	if !ok {
		return nil, fmt.Errorf("estimators: %s: %w", m.Name(), prog.ErrNotLinear)
	}

	stateKeys := m.States()
	outputKeys := m.Outputs()
	n := len(stateKeys)

	kf := &KalmanFilter{
		model:      lin,
		stateKeys:  stateKeys,
		outputKeys: outputKeys,
		x:          prog.StateVec(stateKeys, x0),
		p:          diag(n, 1e-4),
		q:          diag(n, 1e-3),
		r:          diag(len(outputKeys), 1e-3),
	}
	return kf, nil
}

func diag(n int, v float64) *mat.Dense {
	d := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		d.Set(i, i, v)
	}
	return d
}

// SetQ replaces the process noise covariance.
func (kf *KalmanFilter) SetQ(q *mat.Dense) { kf.q = q }

// SetR replaces the measurement noise covariance.
func (kf *KalmanFilter) SetR(r *mat.Dense) { kf.r = r }

func (kf *KalmanFilter) Estimate(t float64, u prog.Input, z prog.Output) error {
	dt := t - kf.lastT
	if dt <= 0 {
		return fmt.Errorf("estimators: measurement at t=%v does not advance time from t=%v", t, kf.lastT)
	}
	kf.lastT = t

	n := len(kf.stateKeys)
	a := kf.model.AMatrix()

	// discretize: F = I + A*dt
	f := mat.NewDense(n, n, nil)
	f.Scale(dt, a)
	for i := 0; i < n; i++ {
		f.Set(i, i, f.At(i, i)+1)
	}

	// predict
	var xPred mat.VecDense
	xPred.MulVec(f, kf.x)
	if b := kf.model.BMatrix(); b != nil && len(kf.model.Inputs()) > 0 {
		uVec := mat.NewVecDense(len(kf.model.Inputs()), nil)
		for i, k := range kf.model.Inputs() {
			uVec.SetVec(i, u[k])
		}
		var bu mat.VecDense
		bu.MulVec(b, uVec)
		xPred.AddScaledVec(&xPred, dt, &bu)
	}
	if e := kf.model.EVector(); e != nil {
		xPred.AddScaledVec(&xPred, dt, e)
	}

	var pPred mat.Dense
	pPred.Product(f, kf.p, f.T())
	var qdt mat.Dense
	qdt.Scale(dt, kf.q)
	pPred.Add(&pPred, &qdt)

	// update
	c := kf.model.CMatrix()
	zVec := mat.NewVecDense(len(kf.outputKeys), nil)
	for i, k := range kf.outputKeys {
		zVec.SetVec(i, z[k])
	}

	var zPred mat.VecDense
	zPred.MulVec(c, &xPred)
	if d := kf.model.DVector(); d != nil {
		zPred.AddVec(&zPred, d)
	}

	var innov mat.VecDense
	innov.SubVec(zVec, &zPred)

	var s mat.Dense
	s.Product(c, &pPred, c.T())
	s.Add(&s, kf.r)

	var sInv mat.Dense
	if err := sInv.Inverse(&s); err != nil {
		return fmt.Errorf("estimators: innovation covariance is singular: %w", err)
	}

	var gain mat.Dense
	gain.Product(&pPred, c.T(), &sInv)

	var corr mat.VecDense
	corr.MulVec(&gain, &innov)
	xPred.AddVec(&xPred, &corr)

	var kc mat.Dense
	kc.Mul(&gain, c)
	ikc := diag(n, 1)
	ikc.Sub(ikc, &kc)
	var pNew mat.Dense
	pNew.Mul(ikc, &pPred)

	kf.x = &xPred
	kf.p = &pNew
	return nil
}

func (kf *KalmanFilter) State() uncertainty.Distribution {
	return gaussianState(kf.stateKeys, kf.x, kf.p)
}

// gaussianState wraps a mean vector and covariance matrix, symmetrizing the
// covariance to absorb floating point drift.
func gaussianState(keys []string, x *mat.VecDense, p *mat.Dense) uncertainty.Distribution {
	n := len(keys)
	mean := make(map[string]float64, n)
	for i, k := range keys {
		mean[k] = x.AtVec(i)
	}
	sym := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			sym.SetSym(i, j, (p.At(i, j)+p.At(j, i))/2)
		}
	}
	d, err := uncertainty.NewMultivariateNormal(keys, mean, sym)
	if err != nil {
		// covariance collapsed; report the mean with no spread
		return uncertainty.NewScalar(mean)
	}
	return d
}
