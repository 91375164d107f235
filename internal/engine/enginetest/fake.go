// Package enginetest provides a scriptable engine for tests.
package enginetest

import (
	"context"
	"errors"

	"github.com/san-kum/popsynth/internal/astro"
	"github.com/san-kum/popsynth/internal/engine"
	"github.com/san-kum/popsynth/internal/units"
)

// ErrInjected is returned by a Fake told to fail.
var ErrInjected = errors.New("enginetest: injected failure")

// Fake records every call and, on each advance, stamps the target time into
// every star's Age and scales masses by Decay per call.
type Fake struct {
	engine.Particles

	// FailAt makes the n-th EvolveModel call (1-based) fail. Zero never fails.
	FailAt int
	// Decay multiplies every star's mass on each advance. Zero leaves masses alone.
	Decay float64

	Calls   []string
	Targets []units.Quantity
	Closed  bool

	time units.Quantity
}

var _ engine.Engine = (*Fake)(nil)

func New() *Fake {
	return &Fake{Particles: engine.NewParticles()}
}

// Factory returns an engine.Factory handing out f.
func (f *Fake) Factory() engine.Factory {
	return func() (engine.Engine, error) { return f, nil }
}

func (f *Fake) AddStars(stars *astro.Stars) error {
	f.Calls = append(f.Calls, "add_stars")
	return f.Particles.AddStars(stars)
}

func (f *Fake) AddBinaries(binaries *astro.Binaries) error {
	f.Calls = append(f.Calls, "add_binaries")
	return f.Particles.AddBinaries(binaries)
}

func (f *Fake) EvolveModel(ctx context.Context, t units.Quantity) error {
	f.Calls = append(f.Calls, "evolve_model")
	f.Targets = append(f.Targets, t)
	if f.FailAt > 0 && len(f.Targets) == f.FailAt {
		return ErrInjected
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, s := range f.Stars().All() {
		s.Age = t
		if f.Decay != 0 && s.Mass.IsSet() {
			s.Mass = s.Mass.Scale(f.Decay)
		}
	}
	for _, b := range f.Binaries().All() {
		b.SemiMajorAxis = b.SemiMajorAxis.Scale(1.5)
	}
	f.time = t
	return nil
}

func (f *Fake) ModelTime() units.Quantity { return f.time }

// Close records that the engine was released.
func (f *Fake) Close() error {
	f.Calls = append(f.Calls, "close")
	f.Closed = true
	return nil
}
