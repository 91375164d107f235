// Package evolve drives an evolution engine over a population and brings the
// evolved state back into the caller's stores.
//
// A [Driver] hands a copy of the population to a fresh engine, advances the
// engine in fixed increments up to the end time, and copies the engine's
// final state onto the caller's stars and binaries exactly once, after the
// last advance. Nothing is copied back when an advance fails.
//
// # Example
//
//	d := evolve.New(analytic.Factory, evolve.WithObserver(observe.NewLog(nil)))
//	res, err := d.Evolve(ctx, binaries, stars, units.Gyr.Of(2), units.Myr.Of(500))
//
// # Thread Safety
//
// Drivers are NOT thread-safe and run once.
package evolve

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"time"

	"github.com/san-kum/popsynth/internal/astro"
	"github.com/san-kum/popsynth/internal/engine"
	"github.com/san-kum/popsynth/internal/units"
)

type Driver struct {
	factory   engine.Factory
	observers []Observer
	logger    *slog.Logger
	state     State
}

type Option func(*Driver)

func WithObserver(o Observer) Option {
	return func(d *Driver) { d.observers = append(d.observers, o) }
}

func WithLogger(l *slog.Logger) Option {
	return func(d *Driver) { d.logger = l }
}

func New(factory engine.Factory, opts ...Option) *Driver {
	d := &Driver{
		factory:   factory,
		observers: make([]Observer, 0),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Driver) AddObserver(o Observer) { d.observers = append(d.observers, o) }
func (d *Driver) State() State           { return d.state }

// Evolve advances the population to endTime in steps of timeStep and
// overwrites the caller's stars and binaries with the engine's final state.
//
// The final advance is not clamped: when endTime is not a multiple of
// timeStep the engine is taken to the first multiple past endTime.
func (d *Driver) Evolve(ctx context.Context, binaries *astro.Binaries, stars *astro.Stars, endTime, timeStep units.Quantity) (*Result, error) {
	if d.state != Idle {
		return nil, fmt.Errorf("%w: %s", ErrNotIdle, d.state)
	}
	if d.factory == nil {
		return nil, ErrNoEngine
	}
	end, step, err := validateTimes(endTime, timeStep)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	d.transition(Running)
	d.logger.Info("start evolving...",
		slog.Int("stars", stars.Len()),
		slog.Int("binaries", binaries.Len()),
		slog.String("end_time", end.String()),
		slog.String("time_step", step.String()))

	res, err := d.run(ctx, binaries, stars, end, step)
	if err != nil {
		d.transition(Failed)
		return nil, err
	}
	res.Wall = time.Since(start)
	d.transition(Done)
	d.logger.Info("evolution finished",
		slog.Int("steps", res.Steps),
		slog.String("model_time", res.ModelTime.String()),
		slog.Duration("wall", res.Wall))
	return res, nil
}

func (d *Driver) run(ctx context.Context, binaries *astro.Binaries, stars *astro.Stars, end, step units.Quantity) (res *Result, err error) {
	code, err := d.factory()
	if err != nil {
		return nil, fmt.Errorf("evolve: start engine: %w", err)
	}
	if c, ok := code.(io.Closer); ok {
		defer func() {
			if cerr := c.Close(); cerr != nil && err == nil {
				err = fmt.Errorf("evolve: close engine: %w", cerr)
			}
		}()
	}

	// stars first: the engine's binaries refer to the engine's stars
	if err := code.AddStars(stars); err != nil {
		return nil, fmt.Errorf("evolve: add stars: %w", err)
	}
	if err := code.AddBinaries(binaries); err != nil {
		return nil, fmt.Errorf("evolve: add binaries: %w", err)
	}

	starsBack, err := code.Stars().NewChannelTo(stars, astro.SyncStar)
	if err != nil {
		return nil, fmt.Errorf("evolve: star channel: %w", err)
	}
	binariesBack, err := code.Binaries().NewChannelTo(binaries, astro.SyncBinary(starsBack.Mapping))
	if err != nil {
		return nil, fmt.Errorf("evolve: binary channel: %w", err)
	}

	total := plannedSteps(end, step)
	res = &Result{ModelTime: end.Unit().Of(0)}

	// each target is i*step so rounding does not accumulate
	for i := 1; i <= total; i++ {
		select {
		case <-ctx.Done():
			return nil, &StepError{Step: i, Time: res.ModelTime, Wrapped: ctx.Err()}
		default:
		}

		elapsed := end.Unit().Of(float64(i) * step.Number())
		t0 := time.Now()
		if err := code.EvolveModel(ctx, elapsed); err != nil {
			return nil, &StepError{Step: i, Time: elapsed, Wrapped: err}
		}
		res.Steps = i
		res.ModelTime = elapsed

		p := Progress{Step: i, Total: total, Time: elapsed, End: end, Wall: time.Since(t0)}
		for _, obs := range d.observers {
			obs.OnStep(p)
		}
	}

	if err := starsBack.Copy(); err != nil {
		return nil, fmt.Errorf("evolve: copy stars: %w", err)
	}
	if err := binariesBack.Copy(); err != nil {
		return nil, fmt.Errorf("evolve: copy binaries: %w", err)
	}
	return res, nil
}

func (d *Driver) transition(to State) {
	from := d.state
	d.state = to
	for _, obs := range d.observers {
		if so, ok := obs.(StateObserver); ok {
			so.OnState(from, to)
		}
	}
}

// maxSteps bounds the advances of one run. Past 2^53 the step targets
// i*step are no longer distinct floats.
const maxSteps = 1 << 53

// validateTimes checks both times and expresses the step in the unit of end.
func validateTimes(endTime, timeStep units.Quantity) (units.Quantity, units.Quantity, error) {
	if !endTime.Unit().Compatible(units.Myr) {
		return units.Quantity{}, units.Quantity{}, fmt.Errorf("%w: got %s", ErrEndTime, endTime)
	}
	if !timeStep.Unit().Compatible(units.Myr) {
		return units.Quantity{}, units.Quantity{}, fmt.Errorf("%w: got %s", ErrTimeStep, timeStep)
	}
	step, err := timeStep.In(endTime.Unit())
	if err != nil {
		return units.Quantity{}, units.Quantity{}, err
	}
	if !(step.Number() > 0) || !step.IsFinite() {
		return units.Quantity{}, units.Quantity{}, fmt.Errorf("%w: got %s", ErrTimeStep, timeStep)
	}
	if !endTime.IsFinite() {
		return units.Quantity{}, units.Quantity{}, fmt.Errorf("%w: got %s", ErrEndTime, endTime)
	}
	if endTime.Number()/step.Number() > maxSteps {
		return units.Quantity{}, units.Quantity{}, fmt.Errorf("%w: %s is too small to reach %s", ErrTimeStep, timeStep, endTime)
	}
	return endTime, step, nil
}

// plannedSteps returns the smallest n with n*step >= end. Both are in the
// same unit and step is positive.
func plannedSteps(end, step units.Quantity) int {
	e, st := end.Number(), step.Number()
	if !(e > 0) {
		return 0
	}
	n := math.Ceil(e / st)
	for n > 1 && (n-1)*st >= e {
		n--
	}
	for n*st < e {
		n++
	}
	return int(n)
}

// Population runs a fresh driver once.
func Population(ctx context.Context, factory engine.Factory, binaries *astro.Binaries, stars *astro.Stars, endTime, timeStep units.Quantity, opts ...Option) (*Result, error) {
	return New(factory, opts...).Evolve(ctx, binaries, stars, endTime, timeStep)
}
