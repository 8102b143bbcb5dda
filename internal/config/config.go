package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	DefaultDt       = 0.1
	DefaultHorizon  = 1e4
	DefaultSaveFreq = 1.0
)

// Config describes one simulation run: which model to advance, how to
// integrate it, and what load profile drives it.
type Config struct {
	Model      string   `yaml:"model"`
	Integrator string   `yaml:"integrator"`
	Dt         float64  `yaml:"dt"`
	Horizon    float64  `yaml:"horizon"`
	SaveFreq   float64  `yaml:"save_freq"`
	Events     []string `yaml:"events,omitempty"`

	Loader LoaderConfig `yaml:"loader"`
	Noise  NoiseConfig  `yaml:"noise,omitempty"`

	// State overrides individual initial state values by key.
	State map[string]float64 `yaml:"state,omitempty"`
}

// LoaderConfig selects a future-loading profile. Type is "const" or
// "piecewise". Const uses Values directly; piecewise pairs Times with
// per-key Series, where a series one longer than Times carries the
// value used past the final time.
type LoaderConfig struct {
	Type     string               `yaml:"type"`
	Values   map[string]float64   `yaml:"values,omitempty"`
	Times    []float64            `yaml:"times,omitempty"`
	Series   map[string][]float64 `yaml:"series,omitempty"`
	NoiseStd float64              `yaml:"noise_std,omitempty"`
	Seed     int64                `yaml:"seed,omitempty"`
}

// NoiseConfig holds per-key standard deviations for process and
// measurement noise.
type NoiseConfig struct {
	Process     map[string]float64 `yaml:"process,omitempty"`
	Measurement map[string]float64 `yaml:"measurement,omitempty"`
}

func DefaultConfig() *Config {
	return &Config{
		Model:      "thrown_object",
		Integrator: "rk4",
		Dt:         DefaultDt,
		Horizon:    DefaultHorizon,
		SaveFreq:   DefaultSaveFreq,
		Loader:     LoaderConfig{Type: "const"},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate rejects configs that would fail later in less obvious ways.
func (c *Config) Validate() error {
	if c.Model == "" {
		return fmt.Errorf("config: model is required")
	}
	if c.Dt <= 0 {
		return fmt.Errorf("config: dt must be positive, got %v", c.Dt)
	}
	if c.Horizon <= 0 {
		return fmt.Errorf("config: horizon must be positive, got %v", c.Horizon)
	}
	if c.SaveFreq < 0 {
		return fmt.Errorf("config: save_freq must not be negative, got %v", c.SaveFreq)
	}
	switch c.Loader.Type {
	case "", "const":
	case "piecewise":
		if len(c.Loader.Times) == 0 || len(c.Loader.Series) == 0 {
			return fmt.Errorf("config: piecewise loader needs times and series")
		}
	default:
		return fmt.Errorf("config: unknown loader type %q", c.Loader.Type)
	}
	return nil
}
