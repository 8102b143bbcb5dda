package prog

import (
	"fmt"
	"math"
	"math/rand"
)

// TransitionFunc maps a discrete state and a disruption (e.g. accumulated
// noise) to a new state index in [0, n).
type TransitionFunc func(cur, n int, disruption float64, rng *rand.Rand) int

// TransitionNone ignores disruptions; transitions happen only in the model's
// own state transition equation.
func TransitionNone(cur, n int, disruption float64, rng *rand.Rand) int {
	return cur
}

// TransitionSequential moves |disruption| >= 0.5 rounds up or down one state
// at a time, clamped to the valid range.
func TransitionSequential(cur, n int, disruption float64, rng *rand.Rand) int {
	next := cur + int(math.Round(disruption))
	if next < 0 {
		next = 0
	}
	if next > n-1 {
		next = n - 1
	}
	return next
}

// TransitionRandom jumps to a uniformly random state when |disruption| >= 0.5.
func TransitionRandom(cur, n int, disruption float64, rng *rand.Rand) int {
	if math.Abs(disruption) >= 0.5 {
		return rng.Intn(n)
	}
	return cur
}

// DiscreteState defines an enumerated state dimension. Values are stored in a
// State as float64 indexes; Transition maps a perturbed value back to a valid
// index.
type DiscreteState struct {
	names      []string
	transition TransitionFunc
	rng        *rand.Rand
}

// NewDiscreteState creates a discrete state with n named values. names may be
// nil, in which case "state 0".."state n-1" are used.
func NewDiscreteState(n int, names []string, transition TransitionFunc, seed int64) (*DiscreteState, error) {
	if n < 1 {
		return nil, fmt.Errorf("prog: discrete state needs at least one value, got %d", n)
	}
	if names == nil {
		names = make([]string, n)
		for i := range names {
			names[i] = fmt.Sprintf("state %d", i)
		}
	}
	if len(names) != n {
		return nil, fmt.Errorf("prog: %d names provided for %d states", len(names), n)
	}
	if transition == nil {
		transition = TransitionRandom
	}
	return &DiscreteState{
		names:      names,
		transition: transition,
		rng:        rand.New(rand.NewSource(seed)),
	}, nil
}

// MustDiscreteState is like NewDiscreteState but panics on invalid arguments.
// For statically known definitions.
func MustDiscreteState(n int, names []string, transition TransitionFunc, seed int64) *DiscreteState {
	d, err := NewDiscreteState(n, names, transition, seed)
	if err != nil {
		panic(err)
	}
	return d
}

func (d *DiscreteState) Len() int { return len(d.names) }

// NameOf returns the name for a stored value, snapping to the nearest index.
func (d *DiscreteState) NameOf(value float64) string {
	return d.names[d.Index(value)]
}

// Index snaps a stored value to a valid state index.
func (d *DiscreteState) Index(value float64) int {
	i := int(math.Round(value))
	if i < 0 {
		i = 0
	}
	if i > len(d.names)-1 {
		i = len(d.names) - 1
	}
	return i
}

// Transition resolves a perturbed stored value against the previous state
// index. The disruption is the difference between the perturbed value and the
// previous index.
func (d *DiscreteState) Transition(prev int, value float64) float64 {
	disruption := value - float64(prev)
	return float64(d.transition(prev, len(d.names), disruption, d.rng))
}
