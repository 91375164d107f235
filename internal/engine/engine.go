// Package engine defines the boundary to a stellar evolution engine.
//
// An engine receives value copies of a population through [Engine.AddStars]
// and [Engine.AddBinaries], owns them privately, and advances them with
// [Engine.EvolveModel]. Callers read results back by opening channels on the
// engine's own stores.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/san-kum/popsynth/internal/astro"
	"github.com/san-kum/popsynth/internal/particles"
	"github.com/san-kum/popsynth/internal/units"
)

var (
	// ErrDanglingReference indicates a binary whose components were not added first.
	ErrDanglingReference = errors.New("engine: binary references a star the engine does not hold")

	// ErrTimeReversal indicates a target time earlier than the current model time.
	ErrTimeReversal = errors.New("engine: target time precedes model time")

	// ErrUnknownEngine indicates a name missing from the registry.
	ErrUnknownEngine = errors.New("engine: unknown engine")
)

// Engine advances a private copy of a population in time.
type Engine interface {
	// AddStars copies stars into the engine.
	AddStars(stars *astro.Stars) error
	// AddBinaries copies binaries into the engine. Their components must
	// have been added through AddStars.
	AddBinaries(binaries *astro.Binaries) error
	// EvolveModel advances every entity to t. t must not decrease between calls.
	EvolveModel(ctx context.Context, t units.Quantity) error
	// ModelTime is the time of the last completed advance.
	ModelTime() units.Quantity
	// Stars and Binaries expose the engine's own stores.
	Stars() *astro.Stars
	Binaries() *astro.Binaries
}

// Factory creates a fresh engine instance.
type Factory func() (Engine, error)

// Particles holds the private copies most engines keep and performs the
// reference rebinding on intake. Engines embed it.
type Particles struct {
	stars    *astro.Stars
	binaries *astro.Binaries
	intake   []*particles.Mapping[astro.Star]
}

func NewParticles() Particles {
	return Particles{stars: astro.NewStars(), binaries: astro.NewBinaries()}
}

func (p *Particles) Stars() *astro.Stars       { return p.stars }
func (p *Particles) Binaries() *astro.Binaries { return p.binaries }

// AddStars mirrors stars into the private store.
func (p *Particles) AddStars(stars *astro.Stars) error {
	p.intake = append(p.intake, particles.Mirror(p.stars, stars))
	return nil
}

// AddBinaries mirrors binaries and points their components at the private
// star copies. Nothing is added when any component is unknown.
func (p *Particles) AddBinaries(binaries *astro.Binaries) error {
	staged := binaries.Values()
	for i := range staged {
		if err := p.rebind(&staged[i]); err != nil {
			return fmt.Errorf("binary %d: %w", i, err)
		}
	}
	p.binaries.AddMany(staged)
	return nil
}

func (p *Particles) rebind(b *astro.Binary) error {
	if b.Child1.IsNil() || b.Child2.IsNil() {
		return fmt.Errorf("%w: %v", ErrDanglingReference, astro.ErrChildMissing)
	}
	for _, m := range p.intake {
		if m.From() != b.Child1.Store() {
			continue
		}
		if err := astro.Rebind(b, m); err != nil {
			return fmt.Errorf("%w: %v", ErrDanglingReference, err)
		}
		return nil
	}
	return fmt.Errorf("%w: %s", ErrDanglingReference, b.Child1)
}

// Registry maps engine names to factories.
type Registry struct {
	factories map[string]Factory
}

func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

func (r *Registry) Register(name string, f Factory) {
	r.factories[name] = f
}

func (r *Registry) Get(name string) (Factory, error) {
	f, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s (available: %v)", ErrUnknownEngine, name, r.Names())
	}
	return f, nil
}

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
