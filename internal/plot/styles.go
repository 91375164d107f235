package plot

import "github.com/charmbracelet/lipgloss"

var (
	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444466")).
			Padding(0, 1)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#00ffff"))

	axisStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#888899"))

	dotStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#ffcc66"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888899")).
			Width(16)

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00ccff")).
			Bold(true)

	barStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("49"))
)
