// SPDX-License-Identifier: MIT
package tui

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"equalizer/internal/analysis"
	"equalizer/pkg/fixed"
)

const (
	defaultRefresh = 50 * time.Millisecond
	gainStepDB     = 1.0

	meterWidth  = 32
	meterFloor  = -60.0 // dBFS at an empty bar
	meterWarnDB = -1.0
)

// Controller is the part of the live engine the panel drives.
type Controller interface {
	NumBands() int
	BandNames() []string
	Gain(band int) fixed.Gain
	SetGain(band int, g fixed.Gain) error
	Bypass(on bool)
	Bypassed() bool
}

type eqKeyMap struct {
	Up, Down, Raise, Lower, Reset, Bypass, Quit key.Binding
}

var eqKeys = eqKeyMap{
	Up:     key.NewBinding(key.WithKeys("up", "k")),
	Down:   key.NewBinding(key.WithKeys("down", "j")),
	Raise:  key.NewBinding(key.WithKeys("right", "l", "+")),
	Lower:  key.NewBinding(key.WithKeys("left", "h", "-")),
	Reset:  key.NewBinding(key.WithKeys("0")),
	Bypass: key.NewBinding(key.WithKeys("b")),
	Quit:   key.NewBinding(key.WithKeys("q", "ctrl+c")),
}

type tickMsg time.Time

// EQModel is the live equalizer panel: one row per band with its gain and
// a level meter.
type EQModel struct {
	ctrl     Controller
	levels   analysis.LevelProvider
	names    []string
	readings []float64
	refresh  time.Duration

	selected int
	viewport viewport.Model
	ready    bool
	err      error
}

// NewEQModel creates the panel. levels may be nil, in which case no meters
// are drawn.
func NewEQModel(ctrl Controller, levels analysis.LevelProvider) EQModel {
	m := EQModel{
		ctrl:    ctrl,
		levels:  levels,
		names:   ctrl.BandNames(),
		refresh: defaultRefresh,
	}
	if levels != nil {
		m.readings = make([]float64, levels.NumBands())
		for i := range m.readings {
			m.readings[i] = analysis.MinLevelDB
		}
	}
	return m
}

func (m EQModel) tick() tea.Cmd {
	return tea.Tick(m.refresh, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m EQModel) Init() tea.Cmd {
	return m.tick()
}

func (m EQModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-4)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - 4
		}

	case tickMsg:
		if m.levels != nil {
			_ = m.levels.LevelsInto(m.readings)
		}
		cmds = append(cmds, m.tick())

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, eqKeys.Quit):
			return m, tea.Quit
		case key.Matches(msg, eqKeys.Up):
			m.selected = max(m.selected-1, 0)
		case key.Matches(msg, eqKeys.Down):
			m.selected = min(m.selected+1, m.ctrl.NumBands()-1)
		case key.Matches(msg, eqKeys.Raise):
			m.err = m.step(gainStepDB)
		case key.Matches(msg, eqKeys.Lower):
			m.err = m.step(-gainStepDB)
		case key.Matches(msg, eqKeys.Reset):
			m.err = m.ctrl.SetGain(m.selected, fixed.Unity)
		case key.Matches(msg, eqKeys.Bypass):
			m.ctrl.Bypass(!m.ctrl.Bypassed())
		}
	}

	if m.ready {
		m.viewport.SetContent(m.renderBands())
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

// step moves the selected band's gain by db, snapped to whole decibels.
func (m EQModel) step(db float64) error {
	cur := math.Round(m.ctrl.Gain(m.selected).DB())
	next := math.Max(fixed.MinGainDB, math.Min(fixed.MaxGainDB, cur+db))
	if next == 0 {
		return m.ctrl.SetGain(m.selected, fixed.Unity)
	}
	return m.ctrl.SetGain(m.selected, fixed.GainFromDB(next))
}

func (m EQModel) View() string {
	if !m.ready {
		return "Initializing..."
	}

	title := titleStyle.Render("Equalizer")
	if m.ctrl.Bypassed() {
		title += " " + warnStyle.Render("BYPASS")
	}
	help := infoStyle.Render("↑/↓: Band • ←/→: Gain • 0: Reset • b: Bypass • q: Quit")
	if m.err != nil {
		help = warnStyle.Render(m.err.Error()) + "\n" + help
	}
	return fmt.Sprintf("%s\n\n%s\n\n%s", title, m.viewport.View(), help)
}

func (m EQModel) renderBands() string {
	var sb strings.Builder
	for i, name := range m.names {
		cursor := " "
		if i == m.selected {
			cursor = "▶"
		}
		line := fmt.Sprintf("%s %-10s %+6.1f dB", cursor, name, m.ctrl.Gain(i).DB())
		if i == m.selected {
			line = highlightStyle.Render(line)
		}
		sb.WriteString(line)

		if i < len(m.readings) {
			sb.WriteString("  ")
			sb.WriteString(meterBar(m.readings[i]))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// meterBar draws a level between meterFloor and 0 dBFS.
func meterBar(db float64) string {
	filled := int(math.Round((db - meterFloor) / -meterFloor * meterWidth))
	filled = max(0, min(filled, meterWidth))
	bar := strings.Repeat("█", filled) + dimStyle.Render(strings.Repeat("░", meterWidth-filled))
	label := fmt.Sprintf(" %6.1f dB", max(db, analysis.MinLevelDB))
	if db >= meterWarnDB {
		return warnStyle.Render(bar + label)
	}
	return bar + label
}

// RunEQ runs the panel until the user quits.
func RunEQ(ctrl Controller, levels analysis.LevelProvider) error {
	p := tea.NewProgram(NewEQModel(ctrl, levels), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
