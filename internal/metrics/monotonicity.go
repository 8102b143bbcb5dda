package metrics

import (
	"math"

	"github.com/ravi-mn/prognos/internal/prog"
)

// Monotonicity scores how consistently a series moves in one direction,
// from 0 (no trend) to 1 (strictly monotonic). A good prognostic parameter
// degrades monotonically.
func Monotonicity(series []float64) float64 {
	if len(series) < 2 {
		return 0
	}
	sum := 0.0
	for i := 0; i < len(series)-1; i++ {
		d := series[i+1] - series[i]
		switch {
		case d > 0:
			sum++
		case d < 0:
			sum--
		}
	}
	return math.Abs(sum / float64(len(series)-1))
}

// MonotonicityObserver scores event state monotonicity while a simulation
// runs, without retaining the series.
type MonotonicityObserver struct {
	prev    map[string]float64
	sums    map[string]float64
	samples int
}

func NewMonotonicityObserver() *MonotonicityObserver {
	return &MonotonicityObserver{
		prev: make(map[string]float64),
		sums: make(map[string]float64),
	}
}

func (m *MonotonicityObserver) OnSave(t float64, x prog.State, es map[string]float64) {
	if m.samples > 0 {
		for k, v := range es {
			d := v - m.prev[k]
			switch {
			case d > 0:
				m.sums[k]++
			case d < 0:
				m.sums[k]--
			}
		}
	}
	for k, v := range es {
		m.prev[k] = v
	}
	m.samples++
}

// Values returns per-event monotonicity over the observed points.
func (m *MonotonicityObserver) Values() map[string]float64 {
	out := make(map[string]float64, len(m.sums))
	if m.samples < 2 {
		return out
	}
	for k, s := range m.sums {
		out[k] = math.Abs(s / float64(m.samples-1))
	}
	return out
}

func (m *MonotonicityObserver) Reset() {
	m.prev = make(map[string]float64)
	m.sums = make(map[string]float64)
	m.samples = 0
}
