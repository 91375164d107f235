package plot

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/san-kum/popsynth/internal/astro"
	"github.com/san-kum/popsynth/internal/units"
)

func hrStars() *astro.Stars {
	stars := astro.NewStars()
	stars.Add(astro.Star{Mass: units.MSun.Of(10), Temperature: units.K.Of(25000), Luminosity: units.LSun.Of(5000), Type: astro.MainSequence})
	stars.Add(astro.Star{Mass: units.MSun.Of(1), Temperature: units.K.Of(5772), Luminosity: units.LSun.Of(1), Type: astro.MainSequence})
	stars.Add(astro.Star{Mass: units.MSun.Of(0.6), Temperature: units.K.Of(3000), Luminosity: units.LSun.Of(1e-4), Type: astro.WhiteDwarf})
	stars.Add(astro.Star{Mass: units.MSun.Of(9), Temperature: units.K.Of(0), Luminosity: units.LSun.Of(0), Type: astro.BlackHole})
	stars.Add(astro.Star{Mass: units.MSun.Of(2)})
	return stars
}

func TestHRPointsSkipAndClip(t *testing.T) {
	pts := hrPoints(hrStars())
	if len(pts) != 3 {
		t.Fatalf("expected 3 plottable stars, got %d", len(pts))
	}
	if math.Abs(pts[2].logL+2) > 1e-12 {
		t.Errorf("expected dim star clipped to log L -2, got %g", pts[2].logL)
	}

	bright := astro.NewStars()
	bright.Add(astro.Star{Temperature: units.K.Of(40000), Luminosity: units.W.Of(1e40)})
	if got := hrPoints(bright)[0].logL; math.Abs(got-5) > 1e-12 {
		t.Errorf("expected bright star clipped to log L 5, got %g", got)
	}
}

func TestHRCanvasReversesTemperature(t *testing.T) {
	pts := []point{{logT: 4.4, logL: 3}, {logT: 3.5, logL: 3}}
	c := hrCanvas(pts, 20, 5)

	if c.Dots() != 2 {
		t.Fatalf("expected 2 dots, got %d", c.Dots())
	}
	hotCol, coolCol := -1, -1
	for _, row := range c.Grid {
		for j, r := range row {
			if r == blank {
				continue
			}
			if hotCol < 0 {
				hotCol = j
			}
			coolCol = j
		}
	}
	if hotCol != 0 || coolCol != c.Width-1 {
		t.Errorf("expected hot star in first column and cool star in last, got %d and %d", hotCol, coolCol)
	}
}

func TestHRCanvasLuminosityUp(t *testing.T) {
	c := hrCanvas([]point{{logT: 4, logL: 5}, {logT: 4, logL: -2}}, 10, 6)

	used := func(row []rune) bool {
		for _, r := range row {
			if r != blank {
				return true
			}
		}
		return false
	}
	if !used(c.Grid[0]) {
		t.Error("expected the brightest star in the top row")
	}
	if !used(c.Grid[c.Height-1]) {
		t.Error("expected the faintest star in the bottom row")
	}
}

func TestHRDiagram(t *testing.T) {
	out, err := HRDiagram(hrStars(), 30, 8)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"HR DIAGRAM", "3 stars", "100000", "0.01", "25000 K", "3000 K"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestHRDiagramNoPoints(t *testing.T) {
	stars := astro.NewStars()
	stars.Add(astro.Star{Mass: units.MSun.Of(1)})

	if _, err := HRDiagram(stars, 30, 8); !errors.Is(err, ErrNoPoints) {
		t.Errorf("expected ErrNoPoints, got %v", err)
	}
	if _, err := HRProfile(stars, 30, 8); !errors.Is(err, ErrNoPoints) {
		t.Errorf("expected ErrNoPoints, got %v", err)
	}
}

func TestHRDiagramRejectsSize(t *testing.T) {
	tests := []struct {
		name          string
		width, height int
	}{
		{"zero height", 60, 0},
		{"zero width", 0, 16},
		{"negative width", -1, 16},
		{"negative height", 60, -3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := HRDiagram(hrStars(), tt.width, tt.height); !errors.Is(err, ErrSize) {
				t.Errorf("HRDiagram: expected ErrSize, got %v", err)
			}
			if _, err := HRDiagramSVG(hrStars(), tt.width, tt.height); !errors.Is(err, ErrSize) {
				t.Errorf("HRDiagramSVG: expected ErrSize, got %v", err)
			}
		})
	}
}

func TestHRDiagramSingleRow(t *testing.T) {
	out, err := HRDiagram(hrStars(), 1, 1)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "0.01") {
		t.Errorf("expected the lower label on a one-row plot:\n%s", out)
	}
}

func TestNewCanvasNegativeSize(t *testing.T) {
	c := NewCanvas(-2, -1)
	if c.Width != 0 || c.Height != 0 || len(c.Grid) != 0 {
		t.Errorf("expected an empty canvas, got %dx%d", c.Width, c.Height)
	}
	c.Set(0, 0)
	if c.Dots() != 0 {
		t.Errorf("expected no dots, got %d", c.Dots())
	}
}

func TestHRProfile(t *testing.T) {
	out, err := HRProfile(hrStars(), 40, 7)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(out, "NaN") {
		t.Errorf("empty bins should render as gaps:\n%s", out)
	}
	if !strings.Contains(out, "max log L/LSun") {
		t.Errorf("expected caption in output:\n%s", out)
	}
}

func TestHRProfileSingleStar(t *testing.T) {
	stars := astro.NewStars()
	stars.Add(astro.Star{Temperature: units.K.Of(5772), Luminosity: units.LSun.Of(1)})

	if _, err := HRProfile(stars, 1, 5); err != nil {
		t.Fatal(err)
	}
}

func TestSummary(t *testing.T) {
	stars := hrStars()
	binaries := astro.NewBinaries()
	binaries.Add(astro.Binary{Child1: stars.At(0), Child2: stars.At(1)})

	out := Summary("population", binaries, stars)
	for _, want := range []string{"POPULATION", "binaries", "main_sequence", "white_dwarf", "black_hole", "22.6 MSun"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}
	if strings.Contains(out, "neutron_star") {
		t.Error("phases without stars should be omitted")
	}
}

func TestCanvasSetIgnoresOutOfRange(t *testing.T) {
	c := NewCanvas(2, 1)
	c.Set(-1, 0)
	c.Set(4, 0)
	c.Set(0, 4)
	c.Set(3, 3)
	if c.Dots() != 1 {
		t.Errorf("expected 1 dot, got %d", c.Dots())
	}
	if c.Grid[0][1] != blank+0x80 {
		t.Errorf("expected dot 8 in second cell, got %U", c.Grid[0][1])
	}
}

func TestCanvasToSVG(t *testing.T) {
	c := NewCanvas(2, 1)
	c.Set(0, 0)
	c.Set(3, 3)

	svg := CanvasToSVG(c, 10)
	if got := strings.Count(svg, "<circle"); got != 2 {
		t.Errorf("expected 2 circles, got %d", got)
	}
	if !strings.Contains(svg, `width="40" height="40"`) {
		t.Errorf("unexpected size:\n%s", svg)
	}
	if CanvasToSVG(nil, 10) != "" {
		t.Error("nil canvas should render nothing")
	}
}

func TestHRDiagramSVG(t *testing.T) {
	svg, err := HRDiagramSVG(hrStars(), 640, 480)
	if err != nil {
		t.Fatal(err)
	}
	if got := strings.Count(svg, "<circle"); got != 3 {
		t.Errorf("expected one circle per plottable star, got %d", got)
	}
	if !strings.Contains(svg, typeColors[astro.WhiteDwarf]) || !strings.Contains(svg, typeColors[astro.MainSequence]) {
		t.Error("expected stars coloured by type")
	}
	if !strings.HasSuffix(svg, "</svg>\n") {
		t.Error("expected a closed svg document")
	}

	if _, err := HRDiagramSVG(astro.NewStars(), 640, 480); !errors.Is(err, ErrNoPoints) {
		t.Errorf("expected ErrNoPoints, got %v", err)
	}
}
