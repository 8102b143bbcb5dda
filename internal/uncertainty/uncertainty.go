// Package uncertainty provides representations for uncertain quantities:
// exact scalars, sample sets, and multivariate normal distributions. State
// estimators and predictors exchange state and time-of-event estimates
// through these types.
package uncertainty

import (
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// Distribution is an uncertain multivariate quantity keyed by name.
type Distribution interface {
	Keys() []string
	Mean() map[string]float64
	Cov() *mat.SymDense
	Sample(n int, rng *rand.Rand) *UnweightedSamples
}

// Scalar is a point value with no uncertainty.
type Scalar struct {
	values map[string]float64
}

func NewScalar(values map[string]float64) *Scalar {
	c := make(map[string]float64, len(values))
	for k, v := range values {
		c[k] = v
	}
	return &Scalar{values: c}
}

func (s *Scalar) Keys() []string {
	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (s *Scalar) Mean() map[string]float64 {
	c := make(map[string]float64, len(s.values))
	for k, v := range s.values {
		c[k] = v
	}
	return c
}

func (s *Scalar) Cov() *mat.SymDense {
	return mat.NewSymDense(len(s.values), nil)
}

func (s *Scalar) Sample(n int, rng *rand.Rand) *UnweightedSamples {
	samples := make([]map[string]float64, n)
	for i := range samples {
		samples[i] = s.Mean()
	}
	return NewUnweightedSamples(samples)
}

// UnweightedSamples represents uncertainty as a set of equally weighted
// samples. NaN values mark samples where the quantity is undefined, e.g. an
// event that never occurred within the prediction horizon.
type UnweightedSamples struct {
	samples []map[string]float64
}

func NewUnweightedSamples(samples []map[string]float64) *UnweightedSamples {
	return &UnweightedSamples{samples: samples}
}

func (u *UnweightedSamples) Len() int { return len(u.samples) }

// At returns the ith sample.
func (u *UnweightedSamples) At(i int) map[string]float64 { return u.samples[i] }

func (u *UnweightedSamples) Keys() []string {
	if len(u.samples) == 0 {
		return nil
	}
	keys := make([]string, 0, len(u.samples[0]))
	for k := range u.samples[0] {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Key returns all sample values for one key, NaN entries included.
func (u *UnweightedSamples) Key(key string) []float64 {
	vals := make([]float64, len(u.samples))
	for i, s := range u.samples {
		vals[i] = s[key]
	}
	return vals
}

// Mean averages the defined (non-NaN) values per key. A key with no defined
// values has mean NaN.
func (u *UnweightedSamples) Mean() map[string]float64 {
	mean := make(map[string]float64)
	for _, key := range u.Keys() {
		sum, n := 0.0, 0
		for _, s := range u.samples {
			if v := s[key]; !math.IsNaN(v) {
				sum += v
				n++
			}
		}
		if n == 0 {
			mean[key] = math.NaN()
		} else {
			mean[key] = sum / float64(n)
		}
	}
	return mean
}

// Median returns the per-key median of defined values.
func (u *UnweightedSamples) Median() map[string]float64 {
	med := make(map[string]float64)
	for _, key := range u.Keys() {
		med[key] = u.Percentile(key, 50)
	}
	return med
}

// Percentile returns the pth percentile (linear interpolation) of the
// defined values for key. NaN if no values are defined.
func (u *UnweightedSamples) Percentile(key string, p float64) float64 {
	vals := make([]float64, 0, len(u.samples))
	for _, s := range u.samples {
		if v := s[key]; !math.IsNaN(v) {
			vals = append(vals, v)
		}
	}
	if len(vals) == 0 {
		return math.NaN()
	}
	sort.Float64s(vals)
	if len(vals) == 1 {
		return vals[0]
	}
	rank := p / 100 * float64(len(vals)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return vals[lo]
	}
	frac := rank - float64(lo)
	return vals[lo]*(1-frac) + vals[hi]*frac
}

func (u *UnweightedSamples) Cov() *mat.SymDense {
	keys := u.Keys()
	mean := u.Mean()
	cov := mat.NewSymDense(len(keys), nil)
	if len(u.samples) < 2 {
		return cov
	}
	for i, ki := range keys {
		for j := i; j < len(keys); j++ {
			kj := keys[j]
			sum, n := 0.0, 0
			for _, s := range u.samples {
				vi, vj := s[ki], s[kj]
				if math.IsNaN(vi) || math.IsNaN(vj) {
					continue
				}
				sum += (vi - mean[ki]) * (vj - mean[kj])
				n++
			}
			if n > 1 {
				cov.SetSym(i, j, sum/float64(n-1))
			}
		}
	}
	return cov
}

// Sample draws n samples with replacement.
func (u *UnweightedSamples) Sample(n int, rng *rand.Rand) *UnweightedSamples {
	out := make([]map[string]float64, n)
	for i := range out {
		src := u.samples[rng.Intn(len(u.samples))]
		c := make(map[string]float64, len(src))
		for k, v := range src {
			c[k] = v
		}
		out[i] = c
	}
	return NewUnweightedSamples(out)
}

// PercentageInBounds returns, per key, the fraction of samples inside
// [lo, hi]. NaN samples count as out of bounds.
func (u *UnweightedSamples) PercentageInBounds(lo, hi float64) map[string]float64 {
	out := make(map[string]float64)
	if len(u.samples) == 0 {
		return out
	}
	for _, key := range u.Keys() {
		in := 0
		for _, s := range u.samples {
			if v := s[key]; !math.IsNaN(v) && v >= lo && v <= hi {
				in++
			}
		}
		out[key] = float64(in) / float64(len(u.samples))
	}
	return out
}
