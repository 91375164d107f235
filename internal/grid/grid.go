// Package grid builds an initial binary population over a regular grid of
// primary mass, mass ratio and orbital separation.
package grid

import (
	"context"
	"errors"
	"fmt"

	"github.com/san-kum/popsynth/internal/astro"
	"github.com/san-kum/popsynth/internal/units"
)

var (
	// ErrBinCount indicates an axis with fewer than one bin.
	ErrBinCount = errors.New("grid: bin count must be at least 1")

	// ErrEmptyAxis indicates an axis whose bounds coincide, giving a zero step.
	ErrEmptyAxis = errors.New("grid: axis bounds coincide")

	// ErrAxisDimension indicates an axis given in the wrong kind of unit.
	ErrAxisDimension = errors.New("grid: axis has the wrong dimension")
)

// Axis spans [Min, Max] in Bins equal steps. Both bounds are sampled, so an
// axis yields Bins+1 points.
type Axis struct {
	Min  units.Quantity
	Max  units.Quantity
	Bins int
}

// Validate checks the axis before any step is computed.
func (a Axis) Validate() error {
	if a.Bins < 1 {
		return fmt.Errorf("%w: got %d", ErrBinCount, a.Bins)
	}
	c, err := a.Max.Compare(a.Min)
	if err != nil {
		return fmt.Errorf("grid: axis bounds: %w", err)
	}
	if c == 0 {
		return fmt.Errorf("%w: %s", ErrEmptyAxis, a.Min)
	}
	return nil
}

// Step returns (Max-Min)/Bins in the unit of Min.
func (a Axis) Step() (units.Quantity, error) {
	if err := a.Validate(); err != nil {
		return units.Quantity{}, err
	}
	hi, err := a.Max.In(a.Min.Unit())
	if err != nil {
		return units.Quantity{}, err
	}
	span, err := hi.Sub(a.Min)
	if err != nil {
		return units.Quantity{}, err
	}
	return span.Scale(1 / float64(a.Bins)), nil
}

// Samples returns Min, Min+Step, ... up to and including Max. Points are
// computed from their index so rounding never adds or drops one.
func (a Axis) Samples() ([]units.Quantity, error) {
	step, err := a.Step()
	if err != nil {
		return nil, err
	}
	out := make([]units.Quantity, a.Bins+1)
	for i := range out {
		out[i] = a.Min.Unit().Of(a.Min.Number() + float64(i)*step.Number())
	}
	return out, nil
}

func (a Axis) String() string {
	return fmt.Sprintf("[%s, %s]/%d", a.Min, a.Max, a.Bins)
}

// Config holds the three axes of the grid.
type Config struct {
	Mass       Axis
	Ratio      Axis
	Separation Axis
}

// Size returns the number of binaries the grid produces.
func (c Config) Size() int {
	return (c.Mass.Bins + 1) * (c.Ratio.Bins + 1) * (c.Separation.Bins + 1)
}

// Validate checks every axis and its dimension.
func (c Config) Validate() error {
	checks := []struct {
		name string
		axis Axis
		want units.Unit
	}{
		{"mass", c.Mass, units.MSun},
		{"ratio", c.Ratio, units.None},
		{"separation", c.Separation, units.RSun},
	}
	for _, ch := range checks {
		if err := ch.axis.Validate(); err != nil {
			return fmt.Errorf("%s axis: %w", ch.name, err)
		}
		if !ch.axis.Min.Unit().Compatible(ch.want) {
			return fmt.Errorf("%s axis: %w: %s is not a %s",
				ch.name, ErrAxisDimension, ch.axis.Min.Unit(), ch.want.Dimension())
		}
	}
	return nil
}

// Generate materialises one binary and two stars per grid cell. Mass is the
// outermost loop, ratio the middle and separation the innermost. Stars are
// added before the binary that references them, so every binary's
// components resolve within the returned star store.
func Generate(ctx context.Context, cfg Config) (*astro.Binaries, *astro.Stars, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	masses, err := cfg.Mass.Samples()
	if err != nil {
		return nil, nil, fmt.Errorf("mass axis: %w", err)
	}
	ratios, err := cfg.Ratio.Samples()
	if err != nil {
		return nil, nil, fmt.Errorf("ratio axis: %w", err)
	}
	separations, err := cfg.Separation.Samples()
	if err != nil {
		return nil, nil, fmt.Errorf("separation axis: %w", err)
	}

	binaries := astro.NewBinaries()
	stars := astro.NewStars()

	for _, primaryMass := range masses {
		select {
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		default:
		}

		for _, ratio := range ratios {
			for _, separation := range separations {
				secondaryMass, err := primaryMass.Mul(ratio)
				if err != nil {
					return nil, nil, fmt.Errorf("secondary mass: %w", err)
				}
				primary := stars.Add(astro.Star{Mass: primaryMass})
				secondary := stars.Add(astro.Star{Mass: secondaryMass})

				binaries.Add(astro.Binary{
					Eccentricity:  units.Scalar(0),
					SemiMajorAxis: separation,
					Child1:        primary,
					Child2:        secondary,
				})
			}
		}
	}

	return binaries, stars, nil
}
