// Package viz renders simulations in the terminal: a live degradation view
// built on bubbletea and static ASCII charts for stored runs.
package viz

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/ravi-mn/prognos/internal/prog"
)

const (
	graphWidth      = 70
	graphHeight     = 6
	historyCapacity = 600
	stepsPerTick    = 5
)

var (
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true).MarginBottom(1)
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(14)
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	eventStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true)
	graphStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("49")).Padding(1, 0)
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginTop(1)
)

type TickMsg time.Time

// Live is a bubbletea model stepping a prognostics simulation in real time
// and charting each event state as it decays toward zero.
type Live struct {
	model prog.Model
	integ prog.Integrator
	load  prog.Loader
	x     prog.State
	t     float64
	dt    float64

	running   bool
	doneEvent string
	events    []string
	history   map[string][]float64
	stepErr   error
}

func NewLive(model prog.Model, integ prog.Integrator, load prog.Loader, dt float64) Live {
	if load == nil {
		load = func(t float64, x prog.State) prog.Input { return prog.Input{} }
	}
	history := make(map[string][]float64, len(model.Events()))
	for _, e := range model.Events() {
		history[e] = make([]float64, 0, historyCapacity)
	}
	return Live{
		model:   model,
		integ:   integ,
		load:    load,
		x:       model.InitialState(),
		dt:      dt,
		running: true,
		events:  model.Events(),
		history: history,
	}
}

func (m Live) Init() tea.Cmd {
	return tea.Tick(time.Second/30, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Live) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			if m.doneEvent == "" && m.stepErr == nil {
				m.running = !m.running
			}
		case "r":
			m.x = m.model.InitialState()
			m.t = 0
			m.doneEvent = ""
			m.stepErr = nil
			m.running = true
			for _, e := range m.events {
				m.history[e] = m.history[e][:0]
			}
		}
	case TickMsg:
		if m.running {
			m.step()
		}
		return m, tea.Tick(time.Second/30, func(t time.Time) tea.Msg { return TickMsg(t) })
	}
	return m, nil
}

func (m *Live) step() {
	for i := 0; i < stepsPerTick; i++ {
		u := m.load(m.t, m.x)
		next, err := prog.Advance(m.model, m.integ, m.x, u, m.t, m.dt)
		if err != nil {
			m.stepErr = err
			m.running = false
			return
		}
		prog.ApplyLimits(m.model, next)
		m.x = next
		m.t += m.dt

		for e, met := range prog.ThresholdsMet(m.model, m.x) {
			if met {
				m.doneEvent = e
				m.running = false
				break
			}
		}
		if !m.running {
			break
		}
	}

	es := m.model.EventState(m.x)
	for _, e := range m.events {
		h := append(m.history[e], es[e])
		if len(h) > historyCapacity {
			h = h[1:]
		}
		m.history[e] = h
	}
}

func (m Live) View() string {
	var b strings.Builder

	b.WriteString(headerStyle.Render(fmt.Sprintf("%s  t=%.2f", m.model.Name(), m.t)))
	b.WriteString("\n")

	for _, e := range m.events {
		h := m.history[e]
		if len(h) < 2 {
			continue
		}
		chart := asciigraph.Plot(h,
			asciigraph.Height(graphHeight),
			asciigraph.Width(graphWidth),
			asciigraph.Caption(e),
		)
		b.WriteString(graphStyle.Render(chart))
		b.WriteString("\n")
	}

	for _, key := range m.model.States() {
		b.WriteString(labelStyle.Render(key))
		b.WriteString(valueStyle.Render(fmt.Sprintf("%.6g", m.x[key])))
		b.WriteString("\n")
	}

	switch {
	case m.stepErr != nil:
		b.WriteString(eventStyle.Render(fmt.Sprintf("error: %v", m.stepErr)))
		b.WriteString("\n")
	case m.doneEvent != "":
		b.WriteString(eventStyle.Render(fmt.Sprintf("event %s at t=%.2f", m.doneEvent, m.t)))
		b.WriteString("\n")
	case !m.running:
		b.WriteString(helpStyle.Render("paused"))
		b.WriteString("\n")
	}

	b.WriteString(helpStyle.Render("space pause · r reset · q quit"))
	return b.String()
}

// Run starts the live view and blocks until the user quits.
func Run(model prog.Model, integ prog.Integrator, load prog.Loader, dt float64) error {
	_, err := tea.NewProgram(NewLive(model, integ, load, dt)).Run()
	return err
}
