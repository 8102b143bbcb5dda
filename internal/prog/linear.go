package prog

import "gonum.org/v1/gonum/mat"

// Linear is a continuous model in the form
//
//	dx/dt = A x + B u + E
//	z     = C x + D
//
// with rows and columns ordered by States(), Inputs(), and Outputs().
// B may be nil for input-less models; D may be nil when zero. The Kalman
// filter requires this form.
type Linear interface {
	Model
	AMatrix() *mat.Dense
	BMatrix() *mat.Dense
	EVector() *mat.VecDense
	CMatrix() *mat.Dense
	DVector() *mat.VecDense
}

// StateVec flattens x into a column vector ordered by keys.
func StateVec(keys []string, x State) *mat.VecDense {
	v := mat.NewVecDense(len(keys), nil)
	for i, k := range keys {
		v.SetVec(i, x[k])
	}
	return v
}

// VecState rebuilds a State from a column vector ordered by keys.
func VecState(keys []string, v mat.Vector) State {
	x := make(State, len(keys))
	for i, k := range keys {
		x[k] = v.AtVec(i)
	}
	return x
}
