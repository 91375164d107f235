package analytic

import (
	"math"

	"github.com/san-kum/popsynth/internal/astro"
	"github.com/san-kum/popsynth/internal/units"
)

const (
	solarTeff      = 5772.0 // K
	solarLifetime  = 1.0e4  // Myr on the main sequence
	giantFraction  = 0.1    // giant phase length relative to the main sequence
	neutronStarMin = 8.0    // MSun, zero-age
	blackHoleMin   = 25.0   // MSun, zero-age
	whiteDwarfR    = 0.012  // RSun
	neutronStarR   = 1.4e-5 // RSun
	schwarzschildR = 4.24e-6
)

// mainSequenceLifetime in Myr.
func mainSequenceLifetime(m float64) float64 {
	return solarLifetime * math.Pow(m, -2.5)
}

func mainSequenceLuminosity(m float64) float64 {
	switch {
	case m < 0.43:
		return 0.23 * math.Pow(m, 2.3)
	case m < 2:
		return math.Pow(m, 4)
	case m < 55:
		return 1.4 * math.Pow(m, 3.5)
	default:
		return 32000 * m
	}
}

func mainSequenceRadius(m float64) float64 {
	if m < 1 {
		return math.Pow(m, 0.8)
	}
	return math.Pow(m, 0.57)
}

func effectiveTemperature(l, r float64) float64 {
	if l <= 0 || r <= 0 {
		return 0
	}
	return solarTeff * math.Pow(l/(r*r), 0.25)
}

// applyTrack sets s to the state of a star of zero-age mass m0 (MSun) at the
// given age (Myr).
func applyTrack(s *astro.Star, m0, age float64) {
	s.Age = units.Myr.Of(age)
	if m0 <= 0 {
		return
	}

	tms := mainSequenceLifetime(m0)
	lms := mainSequenceLuminosity(m0)
	rms := mainSequenceRadius(m0)

	var m, l, r float64
	var kind astro.StellarType

	switch {
	case age < tms:
		f := age / tms
		kind = astro.MainSequence
		m = m0
		l = lms * (1 + 0.4*f)
		r = rms * (1 + 0.25*f)
	case age < tms*(1+giantFraction):
		g := (age - tms) / (giantFraction * tms)
		kind = astro.Giant
		loss := 0.2
		if m0 >= neutronStarMin {
			loss = 0.5
		}
		m = m0 * (1 - loss*g)
		l = lms * 1.4 * math.Pow(10, 2*g)
		r = rms * 1.25 * math.Pow(10, 1.7*g)
	case m0 < neutronStarMin:
		cooling := age - tms*(1+giantFraction)
		kind = astro.WhiteDwarf
		m = math.Min(0.109*m0+0.394, m0)
		r = whiteDwarfR
		l = 0.1 * math.Pow(1+cooling/10, -1.4)
	case m0 < blackHoleMin:
		kind = astro.NeutronStar
		m = 1.4
		r = neutronStarR
		l = 1e-6
	default:
		kind = astro.BlackHole
		m = 0.3 * m0
		r = schwarzschildR * m
		l = 0
	}

	s.Type = kind
	s.Mass = units.MSun.Of(m)
	s.Radius = units.RSun.Of(r)
	s.Luminosity = units.LSun.Of(l)
	s.Temperature = units.K.Of(effectiveTemperature(l, r))
}
