package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/san-kum/popsynth/internal/astro"
	"github.com/san-kum/popsynth/internal/units"
)

var (
	// ErrForeignChild indicates a binary whose component is not in the saved
	// star store.
	ErrForeignChild = errors.New("storage: binary component not in star store")

	// ErrBadRecord indicates a stored row that cannot be decoded.
	ErrBadRecord = errors.New("storage: malformed record")
)

type starColumn struct {
	name string
	unit units.Unit
	attr func(*astro.Star) *units.Quantity
}

// Star attributes in file order. Each is stored as a plain number in unit.
var starColumns = []starColumn{
	{"mass_msun", units.MSun, func(s *astro.Star) *units.Quantity { return &s.Mass }},
	{"radius_rsun", units.RSun, func(s *astro.Star) *units.Quantity { return &s.Radius }},
	{"temperature_k", units.K, func(s *astro.Star) *units.Quantity { return &s.Temperature }},
	{"luminosity_lsun", units.LSun, func(s *astro.Star) *units.Quantity { return &s.Luminosity }},
	{"age_myr", units.Myr, func(s *astro.Star) *units.Quantity { return &s.Age }},
}

type starRow struct {
	values []sql.NullFloat64
	typ    string
}

type binaryRow struct {
	eccentricity  sql.NullFloat64
	semiMajorAxis sql.NullFloat64
	child1        sql.NullInt64
	child2        sql.NullInt64
}

func encodeQuantity(q units.Quantity, u units.Unit) (sql.NullFloat64, error) {
	if !q.IsSet() {
		return sql.NullFloat64{}, nil
	}
	v, err := q.ValueIn(u)
	if err != nil {
		return sql.NullFloat64{}, err
	}
	return sql.NullFloat64{Float64: v, Valid: true}, nil
}

func decodeQuantity(v sql.NullFloat64, u units.Unit) units.Quantity {
	if !v.Valid {
		return units.Quantity{}
	}
	return u.Of(v.Float64)
}

func encodeStar(s *astro.Star) (starRow, error) {
	row := starRow{values: make([]sql.NullFloat64, len(starColumns)), typ: s.Type.String()}
	for i, c := range starColumns {
		v, err := encodeQuantity(*c.attr(s), c.unit)
		if err != nil {
			return starRow{}, fmt.Errorf("%s: %w", c.name, err)
		}
		row.values[i] = v
	}
	return row, nil
}

func (r starRow) decode() (astro.Star, error) {
	var s astro.Star
	if len(r.values) != len(starColumns) {
		return s, fmt.Errorf("%w: star has %d values, want %d", ErrBadRecord, len(r.values), len(starColumns))
	}
	for i, c := range starColumns {
		*c.attr(&s) = decodeQuantity(r.values[i], c.unit)
	}
	t, err := astro.ParseStellarType(r.typ)
	if err != nil {
		return s, fmt.Errorf("%w: %w", ErrBadRecord, err)
	}
	s.Type = t
	return s, nil
}

func encodeBinary(b *astro.Binary, stars *astro.Stars) (binaryRow, error) {
	var (
		row binaryRow
		err error
	)
	if row.eccentricity, err = encodeQuantity(b.Eccentricity, units.None); err != nil {
		return row, fmt.Errorf("eccentricity: %w", err)
	}
	if row.semiMajorAxis, err = encodeQuantity(b.SemiMajorAxis, units.RSun); err != nil {
		return row, fmt.Errorf("semi_major_axis: %w", err)
	}
	if row.child1, err = childIndex(b.Child1, stars); err != nil {
		return row, err
	}
	if row.child2, err = childIndex(b.Child2, stars); err != nil {
		return row, err
	}
	return row, nil
}

func childIndex(r astro.StarRef, stars *astro.Stars) (sql.NullInt64, error) {
	if r.IsNil() {
		return sql.NullInt64{}, nil
	}
	i, ok := stars.IndexOf(r)
	if !ok {
		return sql.NullInt64{}, fmt.Errorf("%w: %s", ErrForeignChild, r)
	}
	return sql.NullInt64{Int64: int64(i), Valid: true}, nil
}

func (r binaryRow) decode(stars *astro.Stars) (astro.Binary, error) {
	b := astro.Binary{
		Eccentricity:  decodeQuantity(r.eccentricity, units.None),
		SemiMajorAxis: decodeQuantity(r.semiMajorAxis, units.RSun),
	}
	var err error
	if b.Child1, err = starAt(r.child1, stars); err != nil {
		return b, err
	}
	if b.Child2, err = starAt(r.child2, stars); err != nil {
		return b, err
	}
	return b, nil
}

func starAt(i sql.NullInt64, stars *astro.Stars) (astro.StarRef, error) {
	if !i.Valid {
		return astro.StarRef{}, nil
	}
	if i.Int64 < 0 || i.Int64 >= int64(stars.Len()) {
		return astro.StarRef{}, fmt.Errorf("%w: star index %d out of range", ErrBadRecord, i.Int64)
	}
	return stars.At(int(i.Int64)), nil
}

func formatFloat(v sql.NullFloat64) string {
	if !v.Valid {
		return ""
	}
	return strconv.FormatFloat(v.Float64, 'g', -1, 64)
}

func parseFloat(s string) (sql.NullFloat64, error) {
	if s == "" {
		return sql.NullFloat64{}, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return sql.NullFloat64{}, fmt.Errorf("%w: %w", ErrBadRecord, err)
	}
	return sql.NullFloat64{Float64: v, Valid: true}, nil
}

func formatInt(v sql.NullInt64) string {
	if !v.Valid {
		return ""
	}
	return strconv.FormatInt(v.Int64, 10)
}

func parseInt(s string) (sql.NullInt64, error) {
	if s == "" {
		return sql.NullInt64{}, nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return sql.NullInt64{}, fmt.Errorf("%w: %w", ErrBadRecord, err)
	}
	return sql.NullInt64{Int64: v, Valid: true}, nil
}
