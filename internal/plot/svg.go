package plot

import (
	"fmt"
	"math"
	"strings"

	"github.com/san-kum/popsynth/internal/astro"
	"github.com/san-kum/popsynth/internal/units"
)

// CanvasToSVG draws every dot of a braille canvas as a circle, scale pixels
// apart.
func CanvasToSVG(c *Canvas, scale float64) string {
	if c == nil {
		return ""
	}
	width := float64(c.Width) * scale * 2
	height := float64(c.Height) * scale * 4

	var sb strings.Builder
	writeSVGHeader(&sb, width, height)
	sb.WriteString("<g fill=\"#ffcc66\">\n")

	radius := scale * 0.4
	for row := 0; row < c.Height; row++ {
		for col := 0; col < c.Width; col++ {
			pattern := int(c.Grid[row][col] - blank)
			if pattern <= 0 {
				continue
			}
			baseX, baseY := float64(col)*scale*2, float64(row)*scale*4
			for dy := 0; dy < 4; dy++ {
				for dx := 0; dx < 2; dx++ {
					if pattern&pixelMap[dy][dx] == 0 {
						continue
					}
					cx := baseX + float64(dx)*scale + scale/2
					cy := baseY + float64(dy)*scale + scale/2
					fmt.Fprintf(&sb, "<circle cx=\"%.1f\" cy=\"%.1f\" r=\"%.1f\"/>\n", cx, cy, radius)
				}
			}
		}
	}

	sb.WriteString("</g>\n</svg>\n")
	return sb.String()
}

var typeColors = map[astro.StellarType]string{
	astro.Unknown:      "#888899",
	astro.MainSequence: "#66ccff",
	astro.Giant:        "#ff8844",
	astro.WhiteDwarf:   "#ffffff",
	astro.NeutronStar:  "#cc66ff",
	astro.BlackHole:    "#444466",
}

const svgMargin = 50.0

// HRDiagramSVG draws the HR diagram at full resolution, one circle per star
// coloured by stellar type.
func HRDiagramSVG(stars *astro.Stars, width, height int) (string, error) {
	if err := checkSize(width, height); err != nil {
		return "", err
	}
	type dot struct {
		point
		typ astro.StellarType
	}
	dots := make([]dot, 0, stars.Len())
	pts := make([]point, 0, stars.Len())
	for _, s := range stars.All() {
		if p, ok := hrPoint(s); ok {
			dots = append(dots, dot{point: p, typ: s.Type})
			pts = append(pts, p)
		}
	}
	if len(dots) == 0 {
		return "", ErrNoPoints
	}

	lo, hi := temperatureRange(pts)
	yLo, yHi := math.Log10(minLuminosity), math.Log10(maxLuminosity)
	w, h := float64(width), float64(height)
	plotW, plotH := w-2*svgMargin, h-2*svgMargin

	var sb strings.Builder
	writeSVGHeader(&sb, w, h)
	fmt.Fprintf(&sb, "<rect x=\"%.0f\" y=\"%.0f\" width=\"%.0f\" height=\"%.0f\" fill=\"none\" stroke=\"#444466\"/>\n",
		svgMargin, svgMargin, plotW, plotH)
	fmt.Fprintf(&sb, "<g fill=\"#888899\" font-family=\"monospace\" font-size=\"12\">\n")
	fmt.Fprintf(&sb, "<text x=\"%.0f\" y=\"%.0f\">%.0f K</text>\n", svgMargin, h-svgMargin/2, math.Pow(10, hi))
	fmt.Fprintf(&sb, "<text x=\"%.0f\" y=\"%.0f\" text-anchor=\"end\">%.0f K</text>\n", w-svgMargin, h-svgMargin/2, math.Pow(10, lo))
	fmt.Fprintf(&sb, "<text x=\"%.0f\" y=\"%.0f\" text-anchor=\"end\">%g</text>\n", svgMargin-4, svgMargin+4, maxLuminosity)
	fmt.Fprintf(&sb, "<text x=\"%.0f\" y=\"%.0f\" text-anchor=\"end\">%g</text>\n", svgMargin-4, h-svgMargin, minLuminosity)
	fmt.Fprintf(&sb, "<text x=\"%.0f\" y=\"%.0f\" text-anchor=\"middle\">L [%s] vs T [%s]</text>\n", w/2, svgMargin/2, units.LSun, units.K)
	sb.WriteString("</g>\n")

	for _, d := range dots {
		x := svgMargin + (hi-d.logT)/(hi-lo)*plotW
		y := svgMargin + (yHi-d.logL)/(yHi-yLo)*plotH
		fmt.Fprintf(&sb, "<circle cx=\"%.1f\" cy=\"%.1f\" r=\"2\" fill=\"%s\"/>\n", x, y, typeColors[d.typ])
	}

	sb.WriteString("</svg>\n")
	return sb.String(), nil
}

func writeSVGHeader(sb *strings.Builder, width, height float64) {
	fmt.Fprintf(sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%.0f" height="%.0f" viewBox="0 0 %.0f %.0f">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
`, width, height, width, height)
}
