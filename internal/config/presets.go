package config

// Presets are ready-to-run configurations grouped by model.
var Presets = map[string]map[string]*Config{
	"battery_simplified": {
		"discharge": {
			Model: "battery_simplified", Integrator: "rk4", Dt: 0.5, Horizon: 8000, SaveFreq: 10,
			Loader: LoaderConfig{Type: "const", Values: map[string]float64{"P": 8.0}},
		},
		"heavy_load": {
			Model: "battery_simplified", Integrator: "rk4", Dt: 0.25, Horizon: 4000, SaveFreq: 5,
			Loader: LoaderConfig{Type: "const", Values: map[string]float64{"P": 20.0}},
		},
		"duty_cycle": {
			Model: "battery_simplified", Integrator: "rk4", Dt: 0.5, Horizon: 10000, SaveFreq: 10,
			Loader: LoaderConfig{
				Type:   "piecewise",
				Times:  []float64{600, 1200, 1800},
				Series: map[string][]float64{"P": {10, 4, 12, 6}},
			},
		},
	},
	"battery_electrochem": {
		"discharge": {
			Model: "battery_electrochem", Integrator: "rk4", Dt: 0.5, Horizon: 6000, SaveFreq: 10,
			Loader: LoaderConfig{Type: "const", Values: map[string]float64{"i": 2.0}},
		},
		"pulse": {
			Model: "battery_electrochem", Integrator: "rk4", Dt: 0.25, Horizon: 6000, SaveFreq: 5,
			Loader: LoaderConfig{
				Type:   "piecewise",
				Times:  []float64{600, 900, 1800, 2100},
				Series: map[string][]float64{"i": {1, 4, 1, 4, 1}},
			},
		},
	},
	"tank": {
		"fill_and_drain": {
			Model: "tank", Integrator: "euler", Dt: 0.1, Horizon: 200, SaveFreq: 1,
			Loader: LoaderConfig{
				Type:   "piecewise",
				Times:  []float64{50, 100},
				// valve enum: 0 = open, 1 = closed; fill closed, then drain
				Series: map[string][]float64{"q_in": {0.2, 0, 0}, "valve_command": {1, 0, 0}},
			},
		},
		"overflow": {
			Model: "tank", Integrator: "euler", Dt: 0.1, Horizon: 100, SaveFreq: 1,
			Loader: LoaderConfig{Type: "const", Values: map[string]float64{"q_in": 0.5, "valve_command": 1}},
		},
	},
	"thrown_object": {
		"default": {
			Model: "thrown_object", Integrator: "rk4", Dt: 0.01, Horizon: 20, SaveFreq: 0.1,
			Events: []string{"impact"},
			Loader: LoaderConfig{Type: "const"},
		},
		"coarse": {
			Model: "thrown_object", Integrator: "euler", Dt: 0.1, Horizon: 20, SaveFreq: 0.5,
			Events: []string{"impact"},
			Loader: LoaderConfig{Type: "const"},
		},
	},
	"pump": {
		"steady": {
			Model: "pump", Integrator: "rk4", Dt: 1.0, Horizon: 1e5, SaveFreq: 1000,
			Loader: LoaderConfig{Type: "const", Values: map[string]float64{"w": 370.0}},
		},
	},
	"powertrain": {
		"cruise": {
			Model: "powertrain", Integrator: "rk4", Dt: 0.1, Horizon: 3600, SaveFreq: 10,
			Loader: LoaderConfig{Type: "const", Values: map[string]float64{"duty": 0.6, "v": 12.0}},
		},
	},
}

func GetPreset(model, preset string) *Config {
	modelPresets, ok := Presets[model]
	if !ok {
		return nil
	}
	return modelPresets[preset]
}

func ListPresets(model string) []string {
	modelPresets, ok := Presets[model]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(modelPresets))
	for name := range modelPresets {
		names = append(names, name)
	}
	return names
}
