package metrics

import (
	"math"
	"testing"

	"github.com/ravi-mn/prognos/internal/prog"
	"github.com/ravi-mn/prognos/internal/uncertainty"
)

func TestProbSuccess(t *testing.T) {
	toe := uncertainty.NewUnweightedSamples([]map[string]float64{
		{"EOD": 100}, {"EOD": 150}, {"EOD": 200}, {"EOD": 250},
	})

	if p := ProbSuccess(toe, 120)["EOD"]; p != 0.75 {
		t.Errorf("expected 0.75, got %f", p)
	}
	if p := ProbSuccess(toe, 300)["EOD"]; p != 0 {
		t.Errorf("expected 0, got %f", p)
	}
	if p := ProbSuccess(toe, 50)["EOD"]; p != 1 {
		t.Errorf("expected 1, got %f", p)
	}
}

func TestProbSuccessUnreachedCountsAsSuccess(t *testing.T) {
	toe := uncertainty.NewUnweightedSamples([]map[string]float64{
		{"EOD": 100}, {"EOD": math.NaN()},
	})
	if p := ProbSuccess(toe, 150)["EOD"]; p != 0.5 {
		t.Errorf("expected 0.5, got %f", p)
	}
}

func TestSummarizeToE(t *testing.T) {
	toe := uncertainty.NewUnweightedSamples([]map[string]float64{
		{"EOD": 10}, {"EOD": 20}, {"EOD": 30}, {"EOD": math.NaN()},
	})
	s := SummarizeToE(toe)["EOD"]

	if s.Mean != 20 {
		t.Errorf("expected mean 20, got %f", s.Mean)
	}
	if s.Median != 20 {
		t.Errorf("expected median 20, got %f", s.Median)
	}
	if s.NumReached != 3 || s.NumSamples != 4 {
		t.Errorf("expected 3/4 reached, got %d/%d", s.NumReached, s.NumSamples)
	}
}

func TestMonotonicity(t *testing.T) {
	if v := Monotonicity([]float64{1, 0.8, 0.6, 0.4}); v != 1 {
		t.Errorf("expected 1 for strictly decreasing, got %f", v)
	}
	if v := Monotonicity([]float64{1, 0.5, 1, 0.5, 1}); v != 0 {
		t.Errorf("expected 0 for oscillating, got %f", v)
	}
	if v := Monotonicity([]float64{0, 1, 2, 1}); math.Abs(v-1.0/3.0) > 1e-12 {
		t.Errorf("expected 1/3, got %f", v)
	}
}

func TestMonotonicityObserver(t *testing.T) {
	obs := NewMonotonicityObserver()
	series := []float64{1.0, 0.75, 0.5, 0.25, 0}
	for i, v := range series {
		obs.OnSave(float64(i), prog.State{}, map[string]float64{"EOD": v})
	}

	if v := obs.Values()["EOD"]; v != 1 {
		t.Errorf("expected monotonicity 1, got %f", v)
	}

	obs.Reset()
	if len(obs.Values()) != 0 {
		t.Error("expected no values after reset")
	}
}
