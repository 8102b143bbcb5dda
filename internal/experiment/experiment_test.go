package experiment

import (
	"context"
	"testing"

	"github.com/ravi-mn/prognos/internal/config"
)

func TestRegistryResolvesAllPresets(t *testing.T) {
	r := NewRegistry()
	for model, presets := range config.Presets {
		for name, cfg := range presets {
			if _, err := New(r, cfg); err != nil {
				t.Errorf("preset %s/%s: %v", model, name, err)
			}
		}
	}
}

func TestRejectsLoaderKeyNotAnInput(t *testing.T) {
	r := NewRegistry()
	cfg := config.GetPreset("pump", "steady")
	if cfg == nil {
		t.Fatal("missing preset")
	}

	bad := *cfg
	bad.Loader.Values = map[string]float64{"w_cmd": 370.0}
	if _, err := New(r, &bad); err == nil {
		t.Error("expected an error for a load key the model has no input for")
	}
	if _, err := New(r, cfg); err != nil {
		t.Errorf("steady preset should resolve: %v", err)
	}
}

func TestRegistryRejectsUnknownNames(t *testing.T) {
	r := NewRegistry()
	if _, err := r.GetModel("warp_core"); err == nil {
		t.Error("expected an error for an unknown model")
	}
	if _, err := r.GetIntegrator("leapfrog"); err == nil {
		t.Error("expected an error for an unknown integrator")
	}
	if _, err := r.GetLoader(config.LoaderConfig{Type: "random_walk"}); err == nil {
		t.Error("expected an error for an unknown loader type")
	}
}

func TestRunThrownObjectToImpact(t *testing.T) {
	r := NewRegistry()
	cfg := config.GetPreset("thrown_object", "default")
	if cfg == nil {
		t.Fatal("missing preset")
	}

	exp, err := New(r, cfg)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	res, err := exp.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if res.Event != "impact" {
		t.Errorf("expected impact, got %q", res.Event)
	}
	// v0=40, y0=1.83: impact just after the 8.2 s ballistic flight
	if res.EndTime < 8.0 || res.EndTime > 8.5 {
		t.Errorf("impact time out of range: %v", res.EndTime)
	}
}

func TestRunHorizonIsNotAnError(t *testing.T) {
	r := NewRegistry()
	cfg := config.GetPreset("thrown_object", "default")
	cfg2 := *cfg
	cfg2.Horizon = 1.0

	exp, err := New(r, &cfg2)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	res, err := exp.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Event != "" {
		t.Errorf("expected no event, got %q", res.Event)
	}
	if res.EndTime != 1.0 {
		t.Errorf("expected end at horizon, got %v", res.EndTime)
	}
}

func TestStateOverride(t *testing.T) {
	r := NewRegistry()
	cfg := config.GetPreset("thrown_object", "default")
	cfg2 := *cfg
	cfg2.State = map[string]float64{"v": 10.0}

	exp, err := New(r, &cfg2)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	res, err := exp.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	// slower throw lands much sooner
	if res.EndTime > 4.0 {
		t.Errorf("expected an early impact, got %v", res.EndTime)
	}

	cfg3 := *cfg
	cfg3.State = map[string]float64{"altitude": 1.0}
	exp, err = New(r, &cfg3)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, err := exp.Run(context.Background()); err == nil {
		t.Error("expected an error for an unknown state key")
	}
}
