package estimators

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/ravi-mn/prognos/internal/prog"
	"github.com/ravi-mn/prognos/internal/uncertainty"
)

// UnscentedKalmanFilter estimates state for any model by propagating Merwe
// scaled sigma points through the model's transition and output equations.
type UnscentedKalmanFilter struct {
	model prog.Model
	integ prog.Integrator

	stateKeys  []string
	outputKeys []string

	x *mat.VecDense
	p *mat.Dense
	q *mat.Dense
	r *mat.Dense

	alpha, beta, kappa float64

	lastT float64
}

// NewUnscentedKalmanFilter builds a UKF starting from x0. The integrator is
// used to advance continuous models between measurements; pass nil for
// models with their own transition equation.
func NewUnscentedKalmanFilter(m prog.Model, integ prog.Integrator, x0 prog.State) *UnscentedKalmanFilter {
	stateKeys := m.States()
	n := len(stateKeys)
	return &UnscentedKalmanFilter{
		model:      m,
		integ:      integ,
		stateKeys:  stateKeys,
		outputKeys: m.Outputs(),
		x:          prog.StateVec(stateKeys, x0),
		p:          diag(n, 1e-4),
		q:          diag(n, 1e-3),
		r:          diag(len(m.Outputs()), 1e-3),
		alpha:      1,
		beta:       0,
		kappa:      3 - float64(n),
	}
}

func (ukf *UnscentedKalmanFilter) SetQ(q *mat.Dense) { ukf.q = q }
func (ukf *UnscentedKalmanFilter) SetR(r *mat.Dense) { ukf.r = r }

// sigmaPoints generates 2n+1 Merwe scaled sigma points and their mean and
// covariance weights.
func (ukf *UnscentedKalmanFilter) sigmaPoints() ([]*mat.VecDense, []float64, []float64, error) {
	n := len(ukf.stateKeys)
	lambda := ukf.alpha*ukf.alpha*(float64(n)+ukf.kappa) - float64(n)

	scaled := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			scaled.SetSym(i, j, (float64(n)+lambda)*(ukf.p.At(i, j)+ukf.p.At(j, i))/2)
		}
	}
	var chol mat.Cholesky
	if ok := chol.Factorize(scaled); !ok {
		return nil, nil, nil, fmt.Errorf("estimators: state covariance is not positive definite")
	}
	var lower mat.TriDense
	chol.LTo(&lower)

	points := make([]*mat.VecDense, 2*n+1)
	points[0] = mat.VecDenseCopyOf(ukf.x)
	for i := 0; i < n; i++ {
		col := mat.NewVecDense(n, nil)
		for j := 0; j < n; j++ {
			col.SetVec(j, lower.At(j, i))
		}
		plus := mat.NewVecDense(n, nil)
		plus.AddVec(ukf.x, col)
		minus := mat.NewVecDense(n, nil)
		minus.SubVec(ukf.x, col)
		points[1+i] = plus
		points[1+n+i] = minus
	}

	wm := make([]float64, 2*n+1)
	wc := make([]float64, 2*n+1)
	wm[0] = lambda / (float64(n) + lambda)
	wc[0] = wm[0] + 1 - ukf.alpha*ukf.alpha + ukf.beta
	for i := 1; i < len(wm); i++ {
		wm[i] = 1 / (2 * (float64(n) + lambda))
		wc[i] = wm[i]
	}
	return points, wm, wc, nil
}

func (ukf *UnscentedKalmanFilter) Estimate(t float64, u prog.Input, z prog.Output) error {
	dt := t - ukf.lastT
	if dt <= 0 {
		return fmt.Errorf("estimators: measurement at t=%v does not advance time from t=%v", t, ukf.lastT)
	}

	points, wm, wc, err := ukf.sigmaPoints()
	if err != nil {
		return err
	}
	n := len(ukf.stateKeys)
	nz := len(ukf.outputKeys)

	// propagate sigma points through the state transition
	propagated := make([]*mat.VecDense, len(points))
	for i, pt := range points {
		xs := prog.VecState(ukf.stateKeys, pt)
		next, err := prog.Advance(ukf.model, ukf.integ, xs, u, ukf.lastT, dt)
		if err != nil {
			return err
		}
		propagated[i] = prog.StateVec(ukf.stateKeys, next)
	}
	ukf.lastT = t

	xPred := weightedMean(propagated, wm, n)
	pPred := weightedCov(propagated, propagated, xPred, xPred, wc)
	var qdt mat.Dense
	qdt.Scale(dt, ukf.q)
	pPred.Add(pPred, &qdt)

	// transform propagated points to measurement space
	measured := make([]*mat.VecDense, len(propagated))
	for i, pt := range propagated {
		zs := ukf.model.Output(prog.VecState(ukf.stateKeys, pt))
		zv := mat.NewVecDense(nz, nil)
		for j, k := range ukf.outputKeys {
			zv.SetVec(j, zs[k])
		}
		measured[i] = zv
	}

	zPred := weightedMean(measured, wm, nz)
	s := weightedCov(measured, measured, zPred, zPred, wc)
	s.Add(s, ukf.r)

	crossCov := weightedCov(propagated, measured, xPred, zPred, wc)

	var sInv mat.Dense
	if err := sInv.Inverse(s); err != nil {
		return fmt.Errorf("estimators: innovation covariance is singular: %w", err)
	}
	var gain mat.Dense
	gain.Mul(crossCov, &sInv)

	zVec := mat.NewVecDense(nz, nil)
	for i, k := range ukf.outputKeys {
		zVec.SetVec(i, z[k])
	}
	var innov mat.VecDense
	innov.SubVec(zVec, zPred)

	var corr mat.VecDense
	corr.MulVec(&gain, &innov)
	xPred.AddVec(xPred, &corr)

	var ksk mat.Dense
	ksk.Product(&gain, s, gain.T())
	pPred.Sub(pPred, &ksk)

	ukf.x = xPred
	ukf.p = pPred
	return nil
}

func (ukf *UnscentedKalmanFilter) State() uncertainty.Distribution {
	return gaussianState(ukf.stateKeys, ukf.x, ukf.p)
}

func weightedMean(points []*mat.VecDense, w []float64, dim int) *mat.VecDense {
	mean := mat.NewVecDense(dim, nil)
	for i, pt := range points {
		mean.AddScaledVec(mean, w[i], pt)
	}
	return mean
}

func weightedCov(a, b []*mat.VecDense, meanA, meanB *mat.VecDense, w []float64) *mat.Dense {
	ra := meanA.Len()
	rb := meanB.Len()
	cov := mat.NewDense(ra, rb, nil)
	var da, db, outer mat.Dense
	for i := range a {
		da.Sub(a[i], meanA)
		db.Sub(b[i], meanB)
		outer.Mul(&da, db.T())
		outer.Scale(w[i], &outer)
		cov.Add(cov, &outer)
	}
	return cov
}
