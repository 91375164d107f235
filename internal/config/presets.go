package config

import "sort"

func preset(mass, ratio, sep AxisConfig, end, step Quantity) *Config {
	cfg := DefaultConfig()
	cfg.Grid = GridConfig{Mass: mass, Ratio: ratio, Separation: sep}
	cfg.Evolution = EvolutionConfig{EndTime: end, TimeStep: step}
	return cfg
}

var Presets = map[string]*Config{
	"simple": DefaultConfig(),
	"small": preset(
		AxisConfig{Min: 0.5, Max: 2, Bins: 3, Unit: "MSun"},
		AxisConfig{Min: 0.5, Max: 1, Bins: 2, Unit: "none"},
		AxisConfig{Min: 1, Max: 2, Bins: 1, Unit: "RSun"},
		Quantity{Value: 1, Unit: "Gyr"}, Quantity{Value: 250, Unit: "Myr"},
	),
	"massive": preset(
		AxisConfig{Min: 8, Max: 60, Bins: 13, Unit: "MSun"},
		AxisConfig{Min: 0.2, Max: 1, Bins: 8, Unit: "none"},
		AxisConfig{Min: 5, Max: 50, Bins: 9, Unit: "RSun"},
		Quantity{Value: 50, Unit: "Myr"}, Quantity{Value: 1, Unit: "Myr"},
	),
	"wide": preset(
		AxisConfig{Min: 0.8, Max: 3, Bins: 11, Unit: "MSun"},
		AxisConfig{Min: 0.1, Max: 1, Bins: 9, Unit: "none"},
		AxisConfig{Min: 0.1, Max: 10, Bins: 10, Unit: "AU"},
		Quantity{Value: 10, Unit: "Gyr"}, Quantity{Value: 1, Unit: "Gyr"},
	),
}

// GetPreset returns a copy of the named preset, or nil if there is none.
func GetPreset(name string) *Config {
	cfg, ok := Presets[name]
	if !ok {
		return nil
	}
	c := *cfg
	return &c
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
