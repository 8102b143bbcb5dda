package prog

import (
	"fmt"
	"math"
	"math/rand"
)

// Noise distributions.
const (
	DistNormal     = "normal"
	DistUniform    = "uniform"
	DistTriangular = "triangular"
)

// Noise perturbs keyed vectors with zero-mean noise of a configured standard
// deviation per key. Used for process noise (applied after each state
// transition) and measurement noise (applied to outputs).
type Noise struct {
	std  map[string]float64
	dist string
	rng  *rand.Rand
}

// NewNoise builds a noise generator. std maps keys to standard deviations;
// keys with zero std are left untouched. dist is one of DistNormal,
// DistUniform, or DistTriangular.
func NewNoise(std map[string]float64, dist string, seed int64) (*Noise, error) {
	if dist == "" {
		dist = DistNormal
	}
	switch dist {
	case DistNormal, DistUniform, DistTriangular:
	default:
		return nil, fmt.Errorf("prog: unknown noise distribution %q", dist)
	}
	for k, v := range std {
		if v < 0 {
			return nil, fmt.Errorf("prog: negative noise std for %q", k)
		}
	}
	return &Noise{std: std, dist: dist, rng: rand.New(rand.NewSource(seed))}, nil
}

// UniformNoise builds a generator applying the same std to every key in keys.
func UniformNoise(std float64, keys []string, dist string, seed int64) (*Noise, error) {
	m := make(map[string]float64, len(keys))
	for _, k := range keys {
		m[k] = std
	}
	return NewNoise(m, dist, seed)
}

// Fork returns a generator with the same per-key stds and distribution but
// its own source, seeded independently. math/rand generators are not safe
// for concurrent use, so parallel workers fork rather than share. Forking a
// nil generator yields nil.
func (n *Noise) Fork(seed int64) *Noise {
	if n == nil {
		return nil
	}
	return &Noise{std: n.std, dist: n.dist, rng: rand.New(rand.NewSource(seed))}
}

// Apply perturbs v in place. Nil receivers are no-ops so a Simulator can hold
// an unset noise source.
func (n *Noise) Apply(v map[string]float64) {
	if n == nil {
		return
	}
	for k, std := range n.std {
		if std == 0 {
			continue
		}
		if _, ok := v[k]; !ok {
			continue
		}
		v[k] += n.sample(std)
	}
}

func (n *Noise) sample(std float64) float64 {
	switch n.dist {
	case DistUniform:
		// matched variance: uniform on [-a, a] has std a/sqrt(3)
		a := std * math.Sqrt(3)
		return n.rng.Float64()*2*a - a
	case DistTriangular:
		// symmetric triangular on [-a, a] has std a/sqrt(6)
		a := std * math.Sqrt(6)
		return (n.rng.Float64() - n.rng.Float64()) * a
	default:
		return n.rng.NormFloat64() * std
	}
}
