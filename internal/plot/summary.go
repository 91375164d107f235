package plot

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/popsynth/internal/astro"
	"github.com/san-kum/popsynth/internal/units"
)

const summaryBarWidth = 24

// Summary renders population counts and the share of stars in each phase.
func Summary(title string, binaries *astro.Binaries, stars *astro.Stars) string {
	var s strings.Builder
	s.WriteString(labelStyle.Render("binaries") + valueStyle.Render(fmt.Sprint(binaries.Len())) + "\n")
	s.WriteString(labelStyle.Render("stars") + valueStyle.Render(fmt.Sprint(stars.Len())) + "\n")

	total := 0.0
	for _, st := range stars.All() {
		if m, err := st.Mass.ValueIn(units.MSun); err == nil {
			total += m
		}
	}
	s.WriteString(labelStyle.Render("total mass") + valueStyle.Render(fmt.Sprintf("%.3g MSun", total)) + "\n\n")

	counts := astro.CountByType(stars)
	for _, t := range astro.StellarTypes() {
		n := counts[t]
		if n == 0 {
			continue
		}
		filled := summaryBarWidth * n / stars.Len()
		bar := strings.Repeat("█", filled) + strings.Repeat("░", summaryBarWidth-filled)
		s.WriteString(labelStyle.Render(t.String()) + barStyle.Render(bar) + valueStyle.Render(fmt.Sprintf(" %d", n)) + "\n")
	}

	body := lipgloss.JoinVertical(lipgloss.Left, titleStyle.Render(strings.ToUpper(title)), strings.TrimRight(s.String(), "\n"))
	return panelStyle.Render(body)
}
