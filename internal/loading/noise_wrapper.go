package loading

import (
	"math/rand"

	"github.com/ravi-mn/prognos/internal/prog"
)

// GaussianNoiseWrapper perturbs another loading profile with zero-mean
// gaussian noise. Std sets the baseline standard deviation and StdSlope
// lets uncertainty grow linearly with time, which suits predictions where
// load far in the future is less certain than load now.
type GaussianNoiseWrapper struct {
	inner    prog.Loader
	std      float64
	stdSlope float64
	t0       float64
	rng      *rand.Rand
}

func NewGaussianNoiseWrapper(inner prog.Loader, std float64, seed int64) *GaussianNoiseWrapper {
	return &GaussianNoiseWrapper{
		inner: inner,
		std:   std,
		rng:   rand.New(rand.NewSource(seed)),
	}
}

// WithSlope makes the standard deviation grow by slope per unit time
// past t0.
func (g *GaussianNoiseWrapper) WithSlope(slope, t0 float64) *GaussianNoiseWrapper {
	g.stdSlope = slope
	g.t0 = t0
	return g
}

func (g *GaussianNoiseWrapper) Load(t float64, x prog.State) prog.Input {
	u := g.inner(t, x)
	std := g.std
	if g.stdSlope != 0 && t > g.t0 {
		std += g.stdSlope * (t - g.t0)
	}
	for key, v := range u {
		u[key] = v + g.rng.NormFloat64()*std
	}
	return u
}
