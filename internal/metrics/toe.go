// Package metrics evaluates predictions and simulated trajectories:
// time-of-event summaries, probability of success, and prognosability
// measures like monotonicity.
package metrics

import (
	"math"

	"github.com/ravi-mn/prognos/internal/uncertainty"
)

// ToESummary condenses a time-of-event distribution for one event.
type ToESummary struct {
	Mean       float64
	Median     float64
	P25, P75   float64
	P05, P95   float64
	NumReached int
	NumSamples int
}

// SummarizeToE summarizes each event's time-of-event samples. NaN samples
// (event not reached within the horizon) are excluded from the statistics
// but reflected in NumReached.
func SummarizeToE(toe *uncertainty.UnweightedSamples) map[string]ToESummary {
	out := make(map[string]ToESummary)
	for _, key := range toe.Keys() {
		reached := 0
		for _, v := range toe.Key(key) {
			if !math.IsNaN(v) {
				reached++
			}
		}
		out[key] = ToESummary{
			Mean:       toe.Mean()[key],
			Median:     toe.Percentile(key, 50),
			P25:        toe.Percentile(key, 25),
			P75:        toe.Percentile(key, 75),
			P05:        toe.Percentile(key, 5),
			P95:        toe.Percentile(key, 95),
			NumReached: reached,
			NumSamples: toe.Len(),
		}
	}
	return out
}

// ProbSuccess returns, per event, the probability that the event does not
// occur by the given time. Samples where the event never occurred count as
// successes.
func ProbSuccess(toe *uncertainty.UnweightedSamples, time float64) map[string]float64 {
	out := make(map[string]float64)
	if toe.Len() == 0 {
		return out
	}
	for _, key := range toe.Keys() {
		ok := 0
		for _, v := range toe.Key(key) {
			if math.IsNaN(v) || v > time {
				ok++
			}
		}
		out[key] = float64(ok) / float64(toe.Len())
	}
	return out
}
