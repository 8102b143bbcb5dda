package viz

import (
	"strings"
	"testing"

	"github.com/ravi-mn/prognos/internal/sim"
)

func TestPlotTooFewPoints(t *testing.T) {
	if out := Plot([]float64{1.0}, "x", 4); !strings.Contains(out, "not enough") {
		t.Errorf("expected a placeholder, got %q", out)
	}
}

func TestPlotEventStates(t *testing.T) {
	res := &sim.Result{
		EventStates: []map[string]float64{
			{"EOD": 1.0, "EOL": 0.9},
			{"EOD": 0.8, "EOL": 0.85},
			{"EOD": 0.6, "EOL": 0.8},
		},
	}
	out := PlotEventStates(res, []string{"EOD", "EOL"}, 4)
	if !strings.Contains(out, "EOD") || !strings.Contains(out, "EOL") {
		t.Errorf("expected both captions in output:\n%s", out)
	}
}
