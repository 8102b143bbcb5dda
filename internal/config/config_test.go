package config

import (
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Model != "thrown_object" {
		t.Errorf("expected model thrown_object, got %s", cfg.Model)
	}
	if cfg.Dt <= 0 {
		t.Error("dt should be positive")
	}
	if cfg.Horizon <= 0 {
		t.Error("horizon should be positive")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing model", func(c *Config) { c.Model = "" }},
		{"zero dt", func(c *Config) { c.Dt = 0 }},
		{"negative horizon", func(c *Config) { c.Horizon = -1 }},
		{"negative save freq", func(c *Config) { c.SaveFreq = -0.5 }},
		{"unknown loader", func(c *Config) { c.Loader.Type = "random_walk" }},
		{"empty piecewise", func(c *Config) { c.Loader = LoaderConfig{Type: "piecewise"} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected a validation error")
			}
		})
	}
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	cfg := GetPreset("battery_simplified", "duty_cycle")
	if cfg == nil {
		t.Fatal("expected preset, got nil")
	}

	if err := Save(path, cfg); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if loaded.Model != "battery_simplified" {
		t.Errorf("model round trip: got %s", loaded.Model)
	}
	if loaded.Loader.Type != "piecewise" {
		t.Errorf("loader type round trip: got %s", loaded.Loader.Type)
	}
	if got := loaded.Loader.Series["P"]; len(got) != 4 || got[3] != 6 {
		t.Errorf("series round trip: got %v", got)
	}
}

func TestGetPreset_NotFound(t *testing.T) {
	if cfg := GetPreset("battery_simplified", "nonexistent"); cfg != nil {
		t.Error("expected nil for nonexistent preset")
	}
	if cfg := GetPreset("nonexistent", "discharge"); cfg != nil {
		t.Error("expected nil for nonexistent model")
	}
}

func TestListPresets(t *testing.T) {
	if presets := ListPresets("tank"); len(presets) == 0 {
		t.Error("expected presets for tank")
	}
	if presets := ListPresets("nonexistent"); presets != nil {
		t.Error("expected nil for nonexistent model")
	}
}
