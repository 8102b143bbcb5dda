package optim

import (
	"context"
	"math"
	"testing"

	"github.com/ravi-mn/prognos/internal/integrators"
	"github.com/ravi-mn/prognos/internal/models"
	"github.com/ravi-mn/prognos/internal/prog"
	"github.com/ravi-mn/prognos/internal/sim"
)

func TestSearchFindsMinimum(t *testing.T) {
	// quadratic bowl with minimum at a=2, b=-1
	cost := func(_ context.Context, p map[string]float64) (float64, error) {
		da := p["a"] - 2
		db := p["b"] + 1
		return da*da + db*db, nil
	}

	g := NewGridSearch(
		[]string{"a", "b"},
		[][]float64{{0, 1, 2, 3}, {-2, -1, 0}},
	)
	best, val, err := g.Search(context.Background(), cost)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if best["a"] != 2 || best["b"] != -1 {
		t.Errorf("wrong minimum: %v", best)
	}
	if val != 0 {
		t.Errorf("expected zero cost, got %v", val)
	}
}

func TestSearchAllCandidatesFail(t *testing.T) {
	cost := func(_ context.Context, _ map[string]float64) (float64, error) {
		return math.NaN(), nil
	}
	g := NewGridSearch([]string{"a"}, [][]float64{{1, 2}})
	if _, _, err := g.Search(context.Background(), cost); err != ErrNoCandidate {
		t.Errorf("expected ErrNoCandidate, got %v", err)
	}
}

func TestOutputMSERecoversThrowingSpeed(t *testing.T) {
	// record a throw at 40 m/s, then fit the speed from position data
	truth := models.NewThrownObject()
	opts := sim.DefaultOptions()
	opts.Dt = 0.01
	opts.Horizon = 3.0
	opts.SaveFreq = 0.5
	res, err := sim.New(truth, integrators.NewRK4()).Simulate(context.Background(), nil, opts)
	if err != nil {
		t.Fatalf("simulate truth: %v", err)
	}

	build := func(p map[string]float64) (prog.Model, prog.Integrator, error) {
		m := models.NewThrownObject()
		m.ThrowingSpeed = p["throwing_speed"]
		return m, integrators.NewRK4(), nil
	}
	cost := OutputMSE(build, nil, 0.01, res.Times, res.Outputs)

	g := NewGridSearch([]string{"throwing_speed"}, [][]float64{{20, 30, 40, 50}})
	best, val, err := g.Search(context.Background(), cost)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if best["throwing_speed"] != 40 {
		t.Errorf("expected speed 40, got %v", best["throwing_speed"])
	}
	if val > 1e-9 {
		t.Errorf("expected near-zero error at the true speed, got %v", val)
	}
}
