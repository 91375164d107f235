// Package analytic is a self-contained evolution engine built from textbook
// scaling relations. It is meant for exercising the population pipeline, not
// for science: every star follows a closed-form track in its zero-age mass,
// and binaries react to mass loss only by widening their orbit.
package analytic

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"

	"github.com/san-kum/popsynth/internal/astro"
	"github.com/san-kum/popsynth/internal/engine"
	"github.com/san-kum/popsynth/internal/units"
)

// Name is the registry name of this engine.
const Name = "analytic"

// minChunk is the smallest slice of stars or binaries handed to a worker.
const minChunk = 1024

// Engine evolves stars along closed-form tracks. The state at time t depends
// only on t and the zero-age population, so repeating an advance is a no-op.
type Engine struct {
	engine.Particles

	logger  *slog.Logger
	workers int
	time    units.Quantity

	zamsMass []float64
	orbits   []orbit
}

type orbit struct {
	a     float64
	mass0 float64
}

type Option func(*Engine)

func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithWorkers bounds the goroutines used per advance. Values below 1 mean
// one.
func WithWorkers(n int) Option {
	return func(e *Engine) { e.workers = n }
}

func New(opts ...Option) *Engine {
	e := &Engine{
		Particles: engine.NewParticles(),
		logger:    slog.Default(),
		workers:   runtime.GOMAXPROCS(0),
		time:      units.Myr.Of(0),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

var _ engine.Engine = (*Engine)(nil)

// Factory satisfies engine.Factory.
func Factory() (engine.Engine, error) { return New(), nil }

func (e *Engine) ModelTime() units.Quantity { return e.time }

// AddStars copies stars in, records their zero-age masses and puts them on
// the zero-age main sequence.
func (e *Engine) AddStars(stars *astro.Stars) error {
	first := e.Stars().Len()
	if err := e.Particles.AddStars(stars); err != nil {
		return err
	}
	for i := first; i < e.Stars().Len(); i++ {
		s := e.Stars().At(i).Get()
		m, err := s.Mass.ValueIn(units.MSun)
		if err != nil {
			return fmt.Errorf("analytic: star %d: mass: %w", i-first, err)
		}
		e.zamsMass = append(e.zamsMass, m)
		applyTrack(s, m, 0)
	}
	return nil
}

// AddBinaries copies binaries in and records their initial orbits.
func (e *Engine) AddBinaries(binaries *astro.Binaries) error {
	first := e.Binaries().Len()
	if err := e.Particles.AddBinaries(binaries); err != nil {
		return err
	}
	for i := first; i < e.Binaries().Len(); i++ {
		b := e.Binaries().At(i).Get()
		a, err := b.SemiMajorAxis.ValueIn(units.RSun)
		if err != nil {
			return fmt.Errorf("analytic: binary %d: semi-major axis: %w", i-first, err)
		}
		i1, _ := e.Stars().IndexOf(b.Child1)
		i2, _ := e.Stars().IndexOf(b.Child2)
		e.orbits = append(e.orbits, orbit{a: a, mass0: e.zamsMass[i1] + e.zamsMass[i2]})
		if !b.Eccentricity.IsSet() {
			b.Eccentricity = units.Scalar(0)
		}
	}
	return nil
}

// EvolveModel sets every star and binary to its state at t.
func (e *Engine) EvolveModel(ctx context.Context, t units.Quantity) error {
	c, err := t.Compare(e.time)
	if err != nil {
		return fmt.Errorf("analytic: target time: %w", err)
	}
	if c < 0 {
		return fmt.Errorf("%w: %s < %s", engine.ErrTimeReversal, t, e.time)
	}
	age := t.MustValueIn(units.Myr)

	// binaries read their children's masses, so stars finish first
	err = parallelFor(ctx, e.Stars().Len(), minChunk, e.workers, func(start, end int) error {
		for i := start; i < end; i++ {
			applyTrack(e.Stars().At(i).Get(), e.zamsMass[i], age)
		}
		return nil
	})
	if err != nil {
		return err
	}
	err = parallelFor(ctx, e.Binaries().Len(), minChunk, e.workers, func(start, end int) error {
		for i := start; i < end; i++ {
			if err := e.widen(e.Binaries().At(i).Get(), e.orbits[i]); err != nil {
				return fmt.Errorf("analytic: binary %d: %w", i, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	e.time = t
	e.logger.Debug("analytic engine advanced",
		slog.String("time", t.String()),
		slog.Int("stars", e.Stars().Len()),
		slog.Int("binaries", e.Binaries().Len()))
	return nil
}

func (e *Engine) widen(b *astro.Binary, o orbit) error {
	total, err := b.TotalMass()
	if err != nil {
		return err
	}
	m := total.MustValueIn(units.MSun)
	a := o.a
	// isotropic wind: a*M is conserved
	if m > 0 && o.mass0 > 0 {
		a = o.a * o.mass0 / m
	}
	b.SemiMajorAxis = units.RSun.Of(a)
	return nil
}
