// Package plot renders evolved populations in the terminal.
package plot

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/popsynth/internal/astro"
	"github.com/san-kum/popsynth/internal/units"
)

// Luminosity is clipped to this range before plotting.
const (
	minLuminosity = 0.01
	maxLuminosity = 1e5
)

var (
	// ErrNoPoints indicates that no star has both a temperature and a luminosity.
	ErrNoPoints = errors.New("plot: no star has a temperature and a luminosity")

	// ErrSize indicates a plot narrower or shorter than one cell.
	ErrSize = errors.New("plot: width and height must be at least 1")
)

func checkSize(width, height int) error {
	if width < 1 || height < 1 {
		return fmt.Errorf("%w: got %dx%d", ErrSize, width, height)
	}
	return nil
}

type point struct {
	logT, logL float64
}

func hrPoints(stars *astro.Stars) []point {
	pts := make([]point, 0, stars.Len())
	for _, s := range stars.All() {
		if p, ok := hrPoint(s); ok {
			pts = append(pts, p)
		}
	}
	return pts
}

// hrPoint places s on the diagram. Stars without a positive temperature or
// without a luminosity have no place.
func hrPoint(s *astro.Star) (point, bool) {
	t, err := s.Temperature.ValueIn(units.K)
	if err != nil || !(t > 0) || math.IsInf(t, 0) {
		return point{}, false
	}
	l, err := s.Luminosity.ValueIn(units.LSun)
	if err != nil || math.IsNaN(l) {
		return point{}, false
	}
	l = math.Min(math.Max(l, minLuminosity), maxLuminosity)
	return point{logT: math.Log10(t), logL: math.Log10(l)}, true
}

// temperatureRange returns the log T span of pts, widened to at least 0.1 dex.
func temperatureRange(pts []point) (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, p := range pts {
		lo = math.Min(lo, p.logT)
		hi = math.Max(hi, p.logT)
	}
	if hi-lo < 0.1 {
		mid := (lo + hi) / 2
		lo, hi = mid-0.05, mid+0.05
	}
	return lo, hi
}

// hrCanvas plots pts with temperature decreasing to the right and luminosity
// increasing upwards.
func hrCanvas(pts []point, width, height int) *Canvas {
	c := NewCanvas(width, height)
	lo, hi := temperatureRange(pts)
	yLo, yHi := math.Log10(minLuminosity), math.Log10(maxLuminosity)
	xs, ys := float64(2*width-1), float64(4*height-1)
	for _, p := range pts {
		x := int(math.Round((hi - p.logT) / (hi - lo) * xs))
		y := int(math.Round((yHi - p.logL) / (yHi - yLo) * ys))
		c.Set(x, y)
	}
	return c
}

// HRDiagram draws every star with a temperature and a luminosity as one dot
// of a braille scatter plot, hot stars on the left.
func HRDiagram(stars *astro.Stars, width, height int) (string, error) {
	if err := checkSize(width, height); err != nil {
		return "", err
	}
	pts := hrPoints(stars)
	if len(pts) == 0 {
		return "", ErrNoPoints
	}
	c := hrCanvas(pts, width, height)
	lo, hi := temperatureRange(pts)

	lines := c.Lines()
	yLabels := make([]string, len(lines))
	yLabels[0] = fmt.Sprintf("%g", maxLuminosity)
	yLabels[len(lines)-1] = fmt.Sprintf("%g", minLuminosity)
	for i, line := range lines {
		lines[i] = axisStyle.Render(fmt.Sprintf("%6s ┤", yLabels[i])) + dotStyle.Render(line)
	}

	hot := fmt.Sprintf("%.0f K", math.Pow(10, hi))
	cool := fmt.Sprintf("%.0f K", math.Pow(10, lo))
	gap := max(1, width-len(hot)-len(cool))
	xAxis := axisStyle.Render(strings.Repeat(" ", 8) + hot + strings.Repeat(" ", gap) + cool)

	body := lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("HR DIAGRAM")+axisStyle.Render(fmt.Sprintf("  %d stars, L in LSun", len(pts))),
		strings.Join(lines, "\n"),
		xAxis,
	)
	return panelStyle.Render(body), nil
}

// HRProfile plots the brightest star per temperature bin, hot bins first.
// Bins without stars are left as gaps.
func HRProfile(stars *astro.Stars, width, height int) (string, error) {
	pts := hrPoints(stars)
	if len(pts) == 0 {
		return "", ErrNoPoints
	}
	if width < 2 {
		width = 2
	}
	lo, hi := temperatureRange(pts)

	series := make([]float64, width)
	for i := range series {
		series[i] = math.NaN()
	}
	for _, p := range pts {
		i := int(math.Round((hi - p.logT) / (hi - lo) * float64(width-1)))
		if math.IsNaN(series[i]) || p.logL > series[i] {
			series[i] = p.logL
		}
	}

	caption := fmt.Sprintf("max log L/LSun, %.0f K to %.0f K", math.Pow(10, hi), math.Pow(10, lo))
	return asciigraph.Plot(series,
		asciigraph.Height(height),
		asciigraph.LowerBound(math.Log10(minLuminosity)),
		asciigraph.UpperBound(math.Log10(maxLuminosity)),
		asciigraph.Precision(1),
		asciigraph.Caption(caption),
	), nil
}
