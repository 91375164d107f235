// Package units provides physical quantities tagged with a unit of measure.
//
// A [Quantity] couples a float64 with a [Unit]. Arithmetic between two
// quantities checks that their dimensions agree and fails with
// [ErrIncompatible] otherwise; conversions are explicit through
// [Quantity.ValueIn] and [Quantity.In].
//
//	m := units.MSun.Of(0.1)
//	a := units.RSun.Of(2.0)
//	_, err := m.Add(a) // errors.Is(err, units.ErrIncompatible)
package units

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrIncompatible indicates arithmetic or conversion across dimensions.
	ErrIncompatible = errors.New("units: incompatible dimensions")

	// ErrUnknownUnit indicates a unit name that is not registered.
	ErrUnknownUnit = errors.New("units: unknown unit")

	// ErrUnset indicates an operation on a quantity that carries no unit.
	ErrUnset = errors.New("units: quantity has no unit")
)

const (
	dimMass = iota
	dimLength
	dimTime
	dimTemperature
	numDims
)

// Dimension holds the exponents of the base dimensions mass, length, time
// and temperature.
type Dimension [numDims]int8

func (d Dimension) add(o Dimension) Dimension {
	for i := range d {
		d[i] += o[i]
	}
	return d
}

func (d Dimension) sub(o Dimension) Dimension {
	for i := range d {
		d[i] -= o[i]
	}
	return d
}

// Dimensionless reports whether every exponent is zero.
func (d Dimension) Dimensionless() bool {
	return d == Dimension{}
}

func (d Dimension) String() string {
	names := [numDims]string{"M", "L", "T", "Θ"}
	parts := make([]string, 0, numDims)
	for i, e := range d {
		switch {
		case e == 0:
		case e == 1:
			parts = append(parts, names[i])
		default:
			parts = append(parts, fmt.Sprintf("%s^%d", names[i], e))
		}
	}
	if len(parts) == 0 {
		return "1"
	}
	return strings.Join(parts, " ")
}

// Unit is a named scale of a dimension. factor converts one unit into the SI
// base combination of its dimension.
type Unit struct {
	name   string
	factor float64
	dim    Dimension
}

func (u Unit) Name() string         { return u.name }
func (u Unit) Dimension() Dimension { return u.dim }

// Valid reports whether u is a real unit rather than the zero value.
func (u Unit) Valid() bool { return u.name != "" }

// Compatible reports whether quantities in u and o can be converted into
// each other.
func (u Unit) Compatible(o Unit) bool { return u.Valid() && o.Valid() && u.dim == o.dim }

// Of tags v with the unit.
func (u Unit) Of(v float64) Quantity { return Quantity{value: v, unit: u} }

func (u Unit) String() string { return u.name }

func named(name string, factor float64, dim Dimension) Unit {
	u := Unit{name: name, factor: factor, dim: dim}
	registry[name] = u
	return u
}

var registry = make(map[string]Unit)

var (
	None = named("none", 1, Dimension{})

	Kg   = named("kg", 1, Dimension{dimMass: 1})
	MSun = named("MSun", 1.98892e30, Dimension{dimMass: 1})

	M    = named("m", 1, Dimension{dimLength: 1})
	Km   = named("km", 1e3, Dimension{dimLength: 1})
	RSun = named("RSun", 6.955e8, Dimension{dimLength: 1})
	AU   = named("AU", 1.495978707e11, Dimension{dimLength: 1})

	S   = named("s", 1, Dimension{dimTime: 1})
	Yr  = named("yr", 3.15569252e7, Dimension{dimTime: 1})
	Myr = named("Myr", 3.15569252e13, Dimension{dimTime: 1})
	Gyr = named("Gyr", 3.15569252e16, Dimension{dimTime: 1})

	K = named("K", 1, Dimension{dimTemperature: 1})

	W    = named("W", 1, Dimension{dimMass: 1, dimLength: 2, dimTime: -3})
	LSun = named("LSun", 3.839e26, Dimension{dimMass: 1, dimLength: 2, dimTime: -3})
)

// Parse looks up a registered unit by name. The empty string and "1" name
// the dimensionless unit.
func Parse(name string) (Unit, error) {
	name = strings.TrimSpace(name)
	if name == "" || name == "1" {
		return None, nil
	}
	u, ok := registry[name]
	if !ok {
		return Unit{}, fmt.Errorf("%w: %q", ErrUnknownUnit, name)
	}
	return u, nil
}

// Names lists the registered unit names in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
