package uncertainty

import (
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// MultivariateNormal is a gaussian distribution over named quantities.
type MultivariateNormal struct {
	keys []string
	mean *mat.VecDense
	cov  *mat.SymDense
	chol *mat.Cholesky
}

func NewMultivariateNormal(keys []string, mean map[string]float64, cov *mat.SymDense) (*MultivariateNormal, error) {
	n := len(keys)
	if r := cov.SymmetricDim(); r != n {
		return nil, fmt.Errorf("uncertainty: covariance is %dx%d but there are %d keys", r, r, n)
	}
	mu := mat.NewVecDense(n, nil)
	for i, k := range keys {
		mu.SetVec(i, mean[k])
	}
	var chol mat.Cholesky
	if ok := chol.Factorize(cov); !ok {
		return nil, fmt.Errorf("uncertainty: covariance is not positive definite")
	}
	return &MultivariateNormal{
		keys: append([]string(nil), keys...),
		mean: mu,
		cov:  cov,
		chol: &chol,
	}, nil
}

func (m *MultivariateNormal) Keys() []string { return append([]string(nil), m.keys...) }

func (m *MultivariateNormal) Mean() map[string]float64 {
	out := make(map[string]float64, len(m.keys))
	for i, k := range m.keys {
		out[k] = m.mean.AtVec(i)
	}
	return out
}

func (m *MultivariateNormal) Cov() *mat.SymDense {
	c := mat.NewSymDense(m.cov.SymmetricDim(), nil)
	c.CopySym(m.cov)
	return c
}

// Sample draws n samples using the Cholesky factor of the covariance.
func (m *MultivariateNormal) Sample(n int, rng *rand.Rand) *UnweightedSamples {
	dim := len(m.keys)
	var lower mat.TriDense
	m.chol.LTo(&lower)

	samples := make([]map[string]float64, n)
	z := mat.NewVecDense(dim, nil)
	for i := range samples {
		for j := 0; j < dim; j++ {
			z.SetVec(j, rng.NormFloat64())
		}
		var x mat.VecDense
		x.MulVec(&lower, z)
		x.AddVec(&x, m.mean)

		s := make(map[string]float64, dim)
		for j, k := range m.keys {
			s[k] = x.AtVec(j)
		}
		samples[i] = s
	}
	return NewUnweightedSamples(samples)
}
