package observe

import (
	"context"
	"fmt"
	"io"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/popsynth/internal/evolve"
	"github.com/san-kum/popsynth/internal/units"
)

const barWidth = 40

var (
	titleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true)
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(12)
	valueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	barStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("49"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#ff4444")).Bold(true)
	helpStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginTop(1)
)

type (
	ProgressMsg evolve.Progress
	StateMsg    evolve.State
	DoneMsg     struct {
		Result *evolve.Result
		Err    error
	}
)

// LiveModel renders run progress in the terminal.
type LiveModel struct {
	title    string
	progress evolve.Progress
	state    evolve.State
	done     bool
	err      error
	cancel   context.CancelFunc
}

func NewLiveModel(title string, cancel context.CancelFunc) LiveModel {
	return LiveModel{title: title, cancel: cancel}
}

func (m LiveModel) Init() tea.Cmd { return nil }

func (m LiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case ProgressMsg:
		m.progress = evolve.Progress(msg)
	case StateMsg:
		m.state = evolve.State(msg)
	case DoneMsg:
		m.done = true
		m.err = msg.Err
		return m, tea.Quit
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			if m.cancel != nil {
				m.cancel()
			}
			return m, nil
		}
	}
	return m, nil
}

func (m LiveModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(m.title))
	b.WriteString("\n\n")

	total := m.progress.Total
	filled := 0
	if total > 0 {
		filled = barWidth * m.progress.Step / total
	}
	bar := strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)
	b.WriteString(barStyle.Render(bar))
	b.WriteString(fmt.Sprintf(" %d/%d\n", m.progress.Step, total))

	b.WriteString(labelStyle.Render("model time"))
	b.WriteString(valueStyle.Render(formatMyr(m.progress.Time) + " / " + formatMyr(m.progress.End)))
	b.WriteString("\n")
	b.WriteString(labelStyle.Render("state"))
	b.WriteString(valueStyle.Render(m.state.String()))
	b.WriteString("\n")

	if m.err != nil {
		b.WriteString(errStyle.Render("error: " + m.err.Error()))
		b.WriteString("\n")
	}
	if !m.done {
		b.WriteString(helpStyle.Render("q: cancel"))
		b.WriteString("\n")
	}
	return b.String()
}

func formatMyr(q units.Quantity) string {
	v, err := q.ValueIn(units.Myr)
	if err != nil {
		return "-"
	}
	return fmt.Sprintf("%.1f Myr", v)
}

// Live forwards driver events to a running tea.Program.
type Live struct {
	program *tea.Program
}

func (l *Live) OnStep(p evolve.Progress)      { l.program.Send(ProgressMsg(p)) }
func (l *Live) OnState(from, to evolve.State) { l.program.Send(StateMsg(to)) }

// RunLive shows a progress view while run executes in the background. run
// receives the observer to register and a context canceled by the user
// pressing q. RunLive returns only after run has returned, also when the
// view fails.
func RunLive(ctx context.Context, title string, out io.Writer, run func(ctx context.Context, obs evolve.Observer) (*evolve.Result, error), opts ...tea.ProgramOption) (*evolve.Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	opts = append([]tea.ProgramOption{tea.WithOutput(out), tea.WithContext(ctx)}, opts...)
	p := tea.NewProgram(NewLiveModel(title, cancel), opts...)

	type outcome struct {
		res *evolve.Result
		err error
	}
	finished := make(chan outcome, 1)
	go func() {
		res, err := run(ctx, &Live{program: p})
		finished <- outcome{res, err}
		p.Send(DoneMsg{Result: res, Err: err})
	}()

	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		// the caller's stores stay with run until it has returned
		cancel()
		<-finished
		return nil, fmt.Errorf("live view: %w", err)
	}
	o := <-finished
	return o.res, o.err
}
