// Package config loads run settings from YAML files and named presets.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/popsynth/internal/grid"
	"github.com/san-kum/popsynth/internal/units"
)

const (
	DefaultMassMin       = 0.1
	DefaultMassMax       = 10.0
	DefaultMassBins      = 10
	DefaultRatioMin      = 0.5
	DefaultRatioMax      = 1.0
	DefaultRatioBins     = 10
	DefaultSeparationMin = 0.2
	DefaultSeparationMax = 2.0
	DefaultSepBins       = 5
	DefaultEndTime       = 2.0
	DefaultTimeStep      = 500.0
	DefaultEngine        = "analytic"
	DefaultDataDir       = "runs"
)

// ErrInvalid indicates a configuration that cannot produce a run.
var ErrInvalid = errors.New("config: invalid configuration")

type Config struct {
	Grid      GridConfig      `yaml:"grid"`
	Evolution EvolutionConfig `yaml:"evolution"`
	Engine    string          `yaml:"engine"`
	DataDir   string          `yaml:"data_dir"`
	// Archive is the path of a SQLite file that collects every saved run.
	// Empty disables archiving.
	Archive string `yaml:"archive,omitempty"`
}

type GridConfig struct {
	Mass       AxisConfig `yaml:"mass"`
	Ratio      AxisConfig `yaml:"ratio"`
	Separation AxisConfig `yaml:"separation"`
}

// AxisConfig describes one grid axis. Both bounds share Unit.
type AxisConfig struct {
	Min  float64 `yaml:"min"`
	Max  float64 `yaml:"max"`
	Bins int     `yaml:"bins"`
	Unit string  `yaml:"unit"`
}

type EvolutionConfig struct {
	EndTime  Quantity `yaml:"end_time"`
	TimeStep Quantity `yaml:"time_step"`
}

// Quantity is a value with the name of its unit, e.g. {500, Myr}.
type Quantity struct {
	Value float64 `yaml:"value"`
	Unit  string  `yaml:"unit"`
}

func (q Quantity) Resolve() (units.Quantity, error) {
	u, err := units.Parse(q.Unit)
	if err != nil {
		return units.Quantity{}, err
	}
	return u.Of(q.Value), nil
}

// ParseQuantity reads a value and a unit name such as "2 Gyr" or "500Myr".
// A bare number is dimensionless.
func ParseQuantity(s string) (Quantity, error) {
	s = strings.TrimSpace(s)
	for i := len(s); i > 0; i-- {
		v, err := strconv.ParseFloat(s[:i], 64)
		if err != nil {
			continue
		}
		q := Quantity{Value: v, Unit: strings.TrimSpace(s[i:])}
		if _, err := q.Resolve(); err != nil {
			return Quantity{}, err
		}
		if q.Unit == "" {
			q.Unit = units.None.Name()
		}
		return q, nil
	}
	return Quantity{}, fmt.Errorf("%w: %q is not a quantity", ErrInvalid, s)
}

func (q Quantity) String() string {
	return fmt.Sprintf("%g %s", q.Value, q.Unit)
}

func (a AxisConfig) Axis() (grid.Axis, error) {
	u, err := units.Parse(a.Unit)
	if err != nil {
		return grid.Axis{}, err
	}
	return grid.Axis{Min: u.Of(a.Min), Max: u.Of(a.Max), Bins: a.Bins}, nil
}

func DefaultConfig() *Config {
	return &Config{
		Grid: GridConfig{
			Mass:       AxisConfig{Min: DefaultMassMin, Max: DefaultMassMax, Bins: DefaultMassBins, Unit: "MSun"},
			Ratio:      AxisConfig{Min: DefaultRatioMin, Max: DefaultRatioMax, Bins: DefaultRatioBins, Unit: "none"},
			Separation: AxisConfig{Min: DefaultSeparationMin, Max: DefaultSeparationMax, Bins: DefaultSepBins, Unit: "RSun"},
		},
		Evolution: EvolutionConfig{
			EndTime:  Quantity{Value: DefaultEndTime, Unit: "Gyr"},
			TimeStep: Quantity{Value: DefaultTimeStep, Unit: "Myr"},
		},
		Engine:  DefaultEngine,
		DataDir: DefaultDataDir,
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
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

// GridConfig resolves the axes into a validated grid configuration.
func (c *Config) GridConfig() (grid.Config, error) {
	var gc grid.Config
	axes := []struct {
		name string
		src  AxisConfig
		dst  *grid.Axis
	}{
		{"mass", c.Grid.Mass, &gc.Mass},
		{"ratio", c.Grid.Ratio, &gc.Ratio},
		{"separation", c.Grid.Separation, &gc.Separation},
	}
	for _, a := range axes {
		axis, err := a.src.Axis()
		if err != nil {
			return grid.Config{}, fmt.Errorf("%w: %s axis: %w", ErrInvalid, a.name, err)
		}
		*a.dst = axis
	}
	if err := gc.Validate(); err != nil {
		return grid.Config{}, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return gc, nil
}

// Times resolves the end time and time step. Both must be durations and the
// step must be positive.
func (c *Config) Times() (endTime, timeStep units.Quantity, err error) {
	endTime, err = c.Evolution.EndTime.Resolve()
	if err != nil {
		return units.Quantity{}, units.Quantity{}, fmt.Errorf("%w: end_time: %w", ErrInvalid, err)
	}
	timeStep, err = c.Evolution.TimeStep.Resolve()
	if err != nil {
		return units.Quantity{}, units.Quantity{}, fmt.Errorf("%w: time_step: %w", ErrInvalid, err)
	}
	if !endTime.Unit().Compatible(units.Myr) {
		return units.Quantity{}, units.Quantity{}, fmt.Errorf("%w: end_time %s is not a duration", ErrInvalid, c.Evolution.EndTime)
	}
	if !timeStep.Unit().Compatible(units.Myr) {
		return units.Quantity{}, units.Quantity{}, fmt.Errorf("%w: time_step %s is not a duration", ErrInvalid, c.Evolution.TimeStep)
	}
	if c.Evolution.TimeStep.Value <= 0 {
		return units.Quantity{}, units.Quantity{}, fmt.Errorf("%w: time_step must be positive, got %s", ErrInvalid, c.Evolution.TimeStep)
	}
	return endTime, timeStep, nil
}

// Validate checks everything a run needs before any entity is created.
func (c *Config) Validate() error {
	if _, err := c.GridConfig(); err != nil {
		return err
	}
	if _, _, err := c.Times(); err != nil {
		return err
	}
	if c.Engine == "" {
		return fmt.Errorf("%w: engine is empty", ErrInvalid)
	}
	if c.DataDir == "" {
		return fmt.Errorf("%w: data_dir is empty", ErrInvalid)
	}
	return nil
}
