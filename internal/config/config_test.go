package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/san-kum/popsynth/internal/grid"
	"github.com/san-kum/popsynth/internal/units"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	gc, err := cfg.GridConfig()
	if err != nil {
		t.Fatal(err)
	}
	if gc.Size() != 726 {
		t.Errorf("expected 726 binaries, got %d", gc.Size())
	}
	end, step, err := cfg.Times()
	if err != nil {
		t.Fatal(err)
	}
	if v := end.MustValueIn(units.Myr); v != 2000 {
		t.Errorf("expected end time 2000 Myr, got %g", v)
	}
	if v := step.MustValueIn(units.Myr); v != 500 {
		t.Errorf("expected time step 500 Myr, got %g", v)
	}
}

func TestLoadOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	data := []byte(`
grid:
  mass:
    min: 1
    max: 3
    bins: 2
    unit: MSun
evolution:
  time_step:
    value: 100
    unit: Myr
`)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Grid.Mass.Bins != 2 || cfg.Grid.Mass.Max != 3 {
		t.Errorf("mass axis not loaded: %+v", cfg.Grid.Mass)
	}
	if cfg.Grid.Ratio.Bins != DefaultRatioBins {
		t.Errorf("ratio axis should keep default, got %+v", cfg.Grid.Ratio)
	}
	if cfg.Evolution.EndTime.Value != DefaultEndTime {
		t.Errorf("end time should keep default, got %s", cfg.Evolution.EndTime)
	}
	if cfg.Evolution.TimeStep.Value != 100 {
		t.Errorf("expected time step 100, got %s", cfg.Evolution.TimeStep)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected ErrNotExist, got %v", err)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	cfg := GetPreset("wide")
	cfg.Archive = "archive.db"

	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if got.Grid != cfg.Grid || got.Evolution != cfg.Evolution || got.Archive != cfg.Archive {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, cfg)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		want   error
	}{
		{"zero bins", func(c *Config) { c.Grid.Mass.Bins = 0 }, grid.ErrBinCount},
		{"empty axis", func(c *Config) { c.Grid.Ratio.Max = c.Grid.Ratio.Min }, grid.ErrEmptyAxis},
		{"mass in length", func(c *Config) { c.Grid.Mass.Unit = "RSun" }, grid.ErrAxisDimension},
		{"unknown unit", func(c *Config) { c.Grid.Separation.Unit = "parsec" }, units.ErrUnknownUnit},
		{"zero step", func(c *Config) { c.Evolution.TimeStep.Value = 0 }, ErrInvalid},
		{"negative step", func(c *Config) { c.Evolution.TimeStep.Value = -5 }, ErrInvalid},
		{"step not a time", func(c *Config) { c.Evolution.TimeStep.Unit = "MSun" }, ErrInvalid},
		{"end not a time", func(c *Config) { c.Evolution.EndTime.Unit = "K" }, ErrInvalid},
		{"no engine", func(c *Config) { c.Engine = "" }, ErrInvalid},
		{"no data dir", func(c *Config) { c.DataDir = "" }, ErrInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
			if !errors.Is(err, ErrInvalid) {
				t.Errorf("expected ErrInvalid in chain, got %v", err)
			}
		})
	}
}

func TestGetPreset(t *testing.T) {
	cfg := GetPreset("small")
	if cfg == nil {
		t.Fatal("expected preset, got nil")
	}
	if cfg.Grid.Mass.Bins != 3 {
		t.Errorf("expected 3 mass bins, got %d", cfg.Grid.Mass.Bins)
	}

	cfg.Engine = "changed"
	if Presets["small"].Engine == "changed" {
		t.Error("GetPreset should return a copy")
	}
}

func TestGetPreset_NotFound(t *testing.T) {
	if cfg := GetPreset("nonexistent"); cfg != nil {
		t.Error("expected nil for nonexistent preset")
	}
}

func TestPresetsValidate(t *testing.T) {
	for _, name := range ListPresets() {
		if err := GetPreset(name).Validate(); err != nil {
			t.Errorf("preset %s: %v", name, err)
		}
	}
}

func TestListPresets(t *testing.T) {
	names := ListPresets()
	want := []string{"massive", "simple", "small", "wide"}
	if len(names) != len(want) {
		t.Fatalf("expected %v, got %v", want, names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("expected %v, got %v", want, names)
		}
	}
}

func TestParseQuantity(t *testing.T) {
	tests := []struct {
		in   string
		want Quantity
	}{
		{"2 Gyr", Quantity{Value: 2, Unit: "Gyr"}},
		{"500Myr", Quantity{Value: 500, Unit: "Myr"}},
		{"1e3 Myr", Quantity{Value: 1000, Unit: "Myr"}},
		{" 0.5 ", Quantity{Value: 0.5, Unit: "none"}},
		{"-3 K", Quantity{Value: -3, Unit: "K"}},
	}
	for _, tt := range tests {
		got, err := ParseQuantity(tt.in)
		if err != nil {
			t.Errorf("%q: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("%q: expected %+v, got %+v", tt.in, tt.want, got)
		}
	}
}

func TestParseQuantityErrors(t *testing.T) {
	if _, err := ParseQuantity("Myr"); !errors.Is(err, ErrInvalid) {
		t.Errorf("expected ErrInvalid, got %v", err)
	}
	if _, err := ParseQuantity("3 parsec"); !errors.Is(err, units.ErrUnknownUnit) {
		t.Errorf("expected ErrUnknownUnit, got %v", err)
	}
}
