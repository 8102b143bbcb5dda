package loading

import "github.com/ravi-mn/prognos/internal/prog"

// MovingAverage predicts future load as the mean of the last window
// measured inputs. Feed measurements with Add as they arrive; Load then
// returns the running average regardless of t.
type MovingAverage struct {
	keys    []string
	window  int
	history map[string][]float64
	pos     int
	count   int
}

const DefaultWindow = 10

func NewMovingAverage(keys []string, window int) *MovingAverage {
	if window <= 0 {
		window = DefaultWindow
	}
	m := &MovingAverage{
		keys:    append([]string(nil), keys...),
		window:  window,
		history: make(map[string][]float64, len(keys)),
	}
	for _, key := range keys {
		m.history[key] = make([]float64, window)
	}
	return m
}

// Add records a measured input, evicting the oldest once the window is full.
func (m *MovingAverage) Add(u prog.Input) {
	for _, key := range m.keys {
		m.history[key][m.pos] = u[key]
	}
	m.pos = (m.pos + 1) % m.window
	if m.count < m.window {
		m.count++
	}
}

func (m *MovingAverage) Load(t float64, x prog.State) prog.Input {
	u := make(prog.Input, len(m.keys))
	if m.count == 0 {
		for _, key := range m.keys {
			u[key] = 0
		}
		return u
	}
	for _, key := range m.keys {
		sum := 0.0
		for i := 0; i < m.count; i++ {
			sum += m.history[key][i]
		}
		u[key] = sum / float64(m.count)
	}
	return u
}
