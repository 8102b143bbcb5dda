package estimators

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/ravi-mn/prognos/internal/prog"
	"github.com/ravi-mn/prognos/internal/uncertainty"
)

// ParticleFilter estimates state with a set of particles propagated through
// the model with process noise and resampled against measurements. It makes
// no linearity or gaussian assumptions.
type ParticleFilter struct {
	model prog.Model
	integ prog.Integrator

	particles    []prog.State
	processNoise *prog.Noise
	measStd      map[string]float64

	rng   *rand.Rand
	lastT float64
}

// ParticleFilterOptions configures a particle filter.
type ParticleFilterOptions struct {
	NumParticles int
	// SpreadStd perturbs x0 to build the initial particle cloud.
	SpreadStd map[string]float64
	// ProcessStd is the per-state noise applied each propagation.
	ProcessStd map[string]float64
	// MeasurementStd is the per-output noise assumed in the likelihood.
	MeasurementStd map[string]float64
	Seed           int64
}

func NewParticleFilter(m prog.Model, integ prog.Integrator, x0 prog.State, opts ParticleFilterOptions) (*ParticleFilter, error) {
	if opts.NumParticles <= 0 {
		opts.NumParticles = 100
	}
	if len(opts.MeasurementStd) == 0 {
		return nil, fmt.Errorf("estimators: particle filter needs a measurement noise model")
	}

	rng := rand.New(rand.NewSource(opts.Seed))

	particles := make([]prog.State, opts.NumParticles)
	for i := range particles {
		p := x0.Clone()
		for k, std := range opts.SpreadStd {
			p[k] += rng.NormFloat64() * std
		}
		prog.ApplyLimits(m, p)
		particles[i] = p
	}

	noise, err := prog.NewNoise(opts.ProcessStd, prog.DistNormal, opts.Seed+1)
	if err != nil {
		return nil, err
	}

	return &ParticleFilter{
		model:        m,
		integ:        integ,
		particles:    particles,
		processNoise: noise,
		measStd:      opts.MeasurementStd,
		rng:          rng,
	}, nil
}

func (pf *ParticleFilter) Estimate(t float64, u prog.Input, z prog.Output) error {
	dt := t - pf.lastT
	if dt <= 0 {
		return fmt.Errorf("estimators: measurement at t=%v does not advance time from t=%v", t, pf.lastT)
	}

	// propagate particles with process noise
	logWeights := make([]float64, len(pf.particles))
	for i, p := range pf.particles {
		next, err := prog.Advance(pf.model, pf.integ, p, u, pf.lastT, dt)
		if err != nil {
			return err
		}
		pf.processNoise.Apply(next)
		prog.ApplyLimits(pf.model, next)
		pf.particles[i] = next

		// gaussian log likelihood of the measurement
		zPred := pf.model.Output(next)
		ll := 0.0
		for k, std := range pf.measStd {
			r := (z[k] - zPred[k]) / std
			ll -= 0.5 * r * r
		}
		logWeights[i] = ll
	}
	pf.lastT = t

	// shift by the max log weight before exponentiating so the largest
	// weights do not all round to zero
	maxLW := math.Inf(-1)
	for _, lw := range logWeights {
		if lw > maxLW {
			maxLW = lw
		}
	}
	weights := make([]float64, len(logWeights))
	total := 0.0
	for i, lw := range logWeights {
		weights[i] = math.Exp(lw - maxLW)
		total += weights[i]
	}
	for i := range weights {
		weights[i] /= total
	}

	pf.particles = pf.resample(weights)
	return nil
}

// resample draws a new particle set by systematic resampling.
func (pf *ParticleFilter) resample(weights []float64) []prog.State {
	n := len(pf.particles)
	out := make([]prog.State, n)

	step := 1.0 / float64(n)
	u := pf.rng.Float64() * step
	cum := weights[0]
	j := 0
	for i := 0; i < n; i++ {
		for u > cum && j < n-1 {
			j++
			cum += weights[j]
		}
		out[i] = pf.particles[j].Clone()
		u += step
	}
	return out
}

func (pf *ParticleFilter) State() uncertainty.Distribution {
	samples := make([]map[string]float64, len(pf.particles))
	for i, p := range pf.particles {
		samples[i] = map[string]float64(p.Clone())
	}
	return uncertainty.NewUnweightedSamples(samples)
}
