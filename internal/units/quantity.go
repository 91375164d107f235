package units

import (
	"fmt"
	"math"
)

// Quantity is a value tagged with a unit. The zero Quantity carries no unit
// and is treated as absent by callers that distinguish set from unset values.
type Quantity struct {
	value float64
	unit  Unit
}

// Scalar returns a dimensionless quantity.
func Scalar(v float64) Quantity { return None.Of(v) }

func (q Quantity) Unit() Unit { return q.unit }

// IsSet reports whether q carries a unit.
func (q Quantity) IsSet() bool { return q.unit.Valid() }

// Number returns the raw value in q's own unit.
func (q Quantity) Number() float64 { return q.value }

// ValueIn returns the numeric value of q expressed in u.
func (q Quantity) ValueIn(u Unit) (float64, error) {
	if !q.unit.Valid() {
		return 0, ErrUnset
	}
	if !q.unit.Compatible(u) {
		return 0, fmt.Errorf("%w: %s to %s", ErrIncompatible, q.unit.dim, u.dim)
	}
	if q.unit == u {
		return q.value, nil
	}
	return q.value * q.unit.factor / u.factor, nil
}

// MustValueIn is ValueIn for callers that have already checked the unit.
func (q Quantity) MustValueIn(u Unit) float64 {
	v, err := q.ValueIn(u)
	if err != nil {
		panic(err)
	}
	return v
}

// In converts q into u.
func (q Quantity) In(u Unit) (Quantity, error) {
	v, err := q.ValueIn(u)
	if err != nil {
		return Quantity{}, err
	}
	return u.Of(v), nil
}

// Add returns q+o in q's unit.
func (q Quantity) Add(o Quantity) (Quantity, error) {
	v, err := o.ValueIn(q.unit)
	if err != nil {
		return Quantity{}, err
	}
	return q.unit.Of(q.value + v), nil
}

// Sub returns q-o in q's unit.
func (q Quantity) Sub(o Quantity) (Quantity, error) {
	v, err := o.ValueIn(q.unit)
	if err != nil {
		return Quantity{}, err
	}
	return q.unit.Of(q.value - v), nil
}

// Compare returns -1, 0 or +1 depending on whether q is less than, equal to
// or greater than o.
func (q Quantity) Compare(o Quantity) (int, error) {
	v, err := o.ValueIn(q.unit)
	if err != nil {
		return 0, err
	}
	switch {
	case q.value < v:
		return -1, nil
	case q.value > v:
		return 1, nil
	default:
		return 0, nil
	}
}

// Scale multiplies q by a plain number, keeping its unit.
func (q Quantity) Scale(f float64) Quantity { return q.unit.Of(q.value * f) }

// Mul multiplies two quantities. A dimensionless factor keeps the unit of
// the other operand; otherwise the result is expressed in a derived unit.
// Either operand being unset is ErrUnset.
func (q Quantity) Mul(o Quantity) (Quantity, error) {
	if !q.IsSet() || !o.IsSet() {
		return Quantity{}, ErrUnset
	}
	switch {
	case o.unit.dim.Dimensionless():
		return q.Scale(o.value * o.unit.factor), nil
	case q.unit.dim.Dimensionless():
		return o.Scale(q.value * q.unit.factor), nil
	}
	u := Unit{
		name:   q.unit.name + "*" + o.unit.name,
		factor: q.unit.factor * o.unit.factor,
		dim:    q.unit.dim.add(o.unit.dim),
	}
	return u.Of(q.value * o.value), nil
}

// Div divides q by o. Dividing by a dimensionless quantity keeps q's unit.
func (q Quantity) Div(o Quantity) (Quantity, error) {
	if !q.IsSet() || !o.IsSet() {
		return Quantity{}, ErrUnset
	}
	if o.unit.dim.Dimensionless() {
		return q.Scale(1 / (o.value * o.unit.factor)), nil
	}
	if q.unit.dim == o.unit.dim {
		return Scalar(q.value * q.unit.factor / (o.value * o.unit.factor)), nil
	}
	u := Unit{
		name:   q.unit.name + "/" + o.unit.name,
		factor: q.unit.factor / o.unit.factor,
		dim:    q.unit.dim.sub(o.unit.dim),
	}
	return u.Of(q.value / o.value), nil
}

// Float returns the value of a dimensionless quantity.
func (q Quantity) Float() (float64, error) { return q.ValueIn(None) }

// IsFinite reports whether the numeric value is neither NaN nor infinite.
func (q Quantity) IsFinite() bool {
	return !math.IsNaN(q.value) && !math.IsInf(q.value, 0)
}

func (q Quantity) String() string {
	if !q.unit.Valid() {
		return "<unset>"
	}
	if q.unit == None {
		return fmt.Sprintf("%g", q.value)
	}
	return fmt.Sprintf("%g %s", q.value, q.unit.name)
}
