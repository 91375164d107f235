// Package astro defines the star and binary entities exchanged between the
// population model and an evolution engine.
package astro

import (
	"errors"
	"fmt"

	"github.com/san-kum/popsynth/internal/particles"
	"github.com/san-kum/popsynth/internal/units"
)

// ErrChildMissing indicates a binary whose component stars are not set.
var ErrChildMissing = errors.New("astro: binary component not set")

// StellarType is the evolutionary phase of a star. The zero value means the
// phase is not known yet.
type StellarType int

const (
	Unknown StellarType = iota
	MainSequence
	Giant
	WhiteDwarf
	NeutronStar
	BlackHole
)

var stellarTypeNames = [...]string{
	Unknown:      "unknown",
	MainSequence: "main_sequence",
	Giant:        "giant",
	WhiteDwarf:   "white_dwarf",
	NeutronStar:  "neutron_star",
	BlackHole:    "black_hole",
}

func (t StellarType) String() string {
	if t < 0 || int(t) >= len(stellarTypeNames) {
		return fmt.Sprintf("stellar_type(%d)", int(t))
	}
	return stellarTypeNames[t]
}

// ParseStellarType is the inverse of StellarType.String.
func ParseStellarType(s string) (StellarType, error) {
	for i, name := range stellarTypeNames {
		if name == s {
			return StellarType(i), nil
		}
	}
	return Unknown, fmt.Errorf("astro: unknown stellar type %q", s)
}

// StellarTypes lists every known phase in order.
func StellarTypes() []StellarType {
	out := make([]StellarType, len(stellarTypeNames))
	for i := range stellarTypeNames {
		out[i] = StellarType(i)
	}
	return out
}

// Star is a single star. Unset quantities are absent attributes.
type Star struct {
	Mass        units.Quantity
	Radius      units.Quantity
	Temperature units.Quantity
	Luminosity  units.Quantity
	Age         units.Quantity
	Type        StellarType
}

// Binary is a two-body system whose components live in a star store.
type Binary struct {
	Eccentricity  units.Quantity
	SemiMajorAxis units.Quantity
	Child1        particles.Ref[Star]
	Child2        particles.Ref[Star]
}

type (
	Stars    = particles.Store[Star]
	Binaries = particles.Store[Binary]
	StarRef  = particles.Ref[Star]
)

func NewStars() *Stars       { return particles.NewStore[Star]("stars") }
func NewBinaries() *Binaries { return particles.NewStore[Binary]("binaries") }

// CountByType tallies stars by evolutionary phase.
func CountByType(stars *Stars) map[StellarType]int {
	counts := make(map[StellarType]int)
	for _, s := range stars.All() {
		counts[s.Type]++
	}
	return counts
}

// TotalMass returns the summed mass of both components.
func (b *Binary) TotalMass() (units.Quantity, error) {
	c1, c2 := b.Child1.Get(), b.Child2.Get()
	if c1 == nil || c2 == nil {
		return units.Quantity{}, ErrChildMissing
	}
	return c1.Mass.Add(c2.Mass)
}

// SyncStar copies every attribute present on src onto dst.
func SyncStar(dst, src *Star) error {
	setIfPresent(&dst.Mass, src.Mass)
	setIfPresent(&dst.Radius, src.Radius)
	setIfPresent(&dst.Temperature, src.Temperature)
	setIfPresent(&dst.Luminosity, src.Luminosity)
	setIfPresent(&dst.Age, src.Age)
	if src.Type != Unknown {
		dst.Type = src.Type
	}
	return nil
}

// SyncBinary returns the copy rule for binaries whose components were
// synchronised through stars. Component references are translated into the
// destination's star store so the copy never leaks a foreign reference.
func SyncBinary(stars *particles.Mapping[Star]) particles.SyncFunc[Binary] {
	return func(dst, src *Binary) error {
		setIfPresent(&dst.Eccentricity, src.Eccentricity)
		setIfPresent(&dst.SemiMajorAxis, src.SemiMajorAxis)
		if err := translateChild(&dst.Child1, src.Child1, stars); err != nil {
			return fmt.Errorf("child1: %w", err)
		}
		if err := translateChild(&dst.Child2, src.Child2, stars); err != nil {
			return fmt.Errorf("child2: %w", err)
		}
		return nil
	}
}

// Rebind points the components of b at their counterparts across stars.
func Rebind(b *Binary, stars *particles.Mapping[Star]) error {
	if b.Child1.IsNil() || b.Child2.IsNil() {
		return ErrChildMissing
	}
	c1, err := stars.Translate(b.Child1)
	if err != nil {
		return err
	}
	c2, err := stars.Translate(b.Child2)
	if err != nil {
		return err
	}
	b.Child1, b.Child2 = c1, c2
	return nil
}

func translateChild(dst *particles.Ref[Star], src particles.Ref[Star], stars *particles.Mapping[Star]) error {
	if src.IsNil() {
		return nil
	}
	ref, err := stars.Translate(src)
	if err != nil {
		return err
	}
	*dst = ref
	return nil
}

func setIfPresent(dst *units.Quantity, src units.Quantity) {
	if src.IsSet() {
		*dst = src
	}
}
