// SPDX-License-Identifier: MIT
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"equalizer/internal/audio"
)

// ScreenType defines which screen is currently active
type ScreenType int

const (
	ListScreen ScreenType = iota
	ConfigScreen
)

// Role is the stream direction a picked device is used for.
type Role int

const (
	RoleInput Role = iota
	RoleOutput
)

func (r Role) String() string {
	if r == RoleOutput {
		return "output"
	}
	return "input"
}

// Selection is the outcome of the device picker.
type Selection struct {
	Device audio.Device
	Role   Role
}

// ConfigKey returns the configuration key the selection sets.
func (s Selection) ConfigKey() string {
	return "audio." + s.Role.String() + "_device"
}

// DeviceListModel lists the host audio devices and lets the user pick one
// as the equalizer's input or output.
type DeviceListModel struct {
	fetch         func() ([]audio.Device, error)
	sampleRate    float64
	devices       []audio.Device
	selectedIndex int
	viewport      viewport.Model
	ready         bool
	err           error
	activeScreen  ScreenType

	roles     []Role
	roleIndex int
	selection *Selection
}

type devicesMsg struct {
	devices []audio.Device
}

type errMsg struct {
	err error
}

// NewDeviceListModel creates a picker. sampleRate is the rate the
// equalizer runs at, shown next to each device's default rate.
func NewDeviceListModel(fetch func() ([]audio.Device, error), sampleRate float64) DeviceListModel {
	if fetch == nil {
		fetch = audio.HostDevices
	}
	return DeviceListModel{
		fetch:        fetch,
		sampleRate:   sampleRate,
		activeScreen: ListScreen,
	}
}

// Init initializes the Bubble Tea model
func (m DeviceListModel) Init() tea.Cmd {
	fetch := m.fetch
	return func() tea.Msg {
		devices, err := fetch()
		if err != nil {
			return errMsg{err}
		}
		return devicesMsg{devices}
	}
}

func (m DeviceListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		cmd  tea.Cmd
		cmds []tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-4)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - 4
		}

	case devicesMsg:
		m.devices = msg.devices

	case errMsg:
		m.err = msg.err

	case tea.KeyMsg:
		if key.Matches(msg, key.NewBinding(key.WithKeys("q", "ctrl+c"))) {
			return m, tea.Quit
		}

		if m.activeScreen == ListScreen {
			switch {
			case key.Matches(msg, key.NewBinding(key.WithKeys("up", "k"))):
				if m.selectedIndex > 0 {
					m.selectedIndex--
				}

			case key.Matches(msg, key.NewBinding(key.WithKeys("down", "j"))):
				if m.selectedIndex < len(m.devices)-1 {
					m.selectedIndex++
				}

			case key.Matches(msg, key.NewBinding(key.WithKeys("enter"))):
				if len(m.devices) > 0 {
					m.roles = deviceRoles(m.devices[m.selectedIndex])
					m.roleIndex = 0
					if len(m.roles) > 0 {
						m.activeScreen = ConfigScreen
					}
				}
			}
		} else if m.activeScreen == ConfigScreen {
			switch {
			case key.Matches(msg, key.NewBinding(key.WithKeys("esc"))):
				m.activeScreen = ListScreen

			case key.Matches(msg, key.NewBinding(key.WithKeys("up", "k"))):
				if m.roleIndex > 0 {
					m.roleIndex--
				}

			case key.Matches(msg, key.NewBinding(key.WithKeys("down", "j"))):
				if m.roleIndex < len(m.roles)-1 {
					m.roleIndex++
				}

			case key.Matches(msg, key.NewBinding(key.WithKeys("enter"))):
				m.selection = &Selection{
					Device: m.devices[m.selectedIndex],
					Role:   m.roles[m.roleIndex],
				}
				return m, tea.Quit
			}
		}
	}

	if m.ready {
		if m.activeScreen == ListScreen {
			m.viewport.SetContent(m.renderDevices())
		} else {
			m.viewport.SetContent(m.renderDeviceConfig())
		}
		m.viewport, cmd = m.viewport.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

// Selection returns the device the user confirmed, if any.
func (m DeviceListModel) Selection() (Selection, bool) {
	if m.selection == nil {
		return Selection{}, false
	}
	return *m.selection, true
}

// View renders the UI
func (m DeviceListModel) View() string {
	if !m.ready {
		return "Initializing..."
	}

	if m.err != nil {
		return fmt.Sprintf("Error: %v\n\nPress q to exit.", m.err)
	}

	var title, help string

	if m.activeScreen == ListScreen {
		title = titleStyle.Render("Audio Device List")
		help = infoStyle.Render("↑/↓: Navigate • Enter: Select • q: Quit")
	} else {
		title = titleStyle.Render("Use Device As")
		help = infoStyle.Render("↑/↓: Change • Enter: Confirm • Esc: Back • q: Quit")
	}

	return fmt.Sprintf("%s\n\n%s\n\n%s", title, m.viewport.View(), help)
}

func (m DeviceListModel) renderDevices() string {
	if len(m.devices) == 0 {
		return "No audio devices found."
	}

	var sb strings.Builder
	for i, device := range m.devices {
		deviceInfo := fmt.Sprintf("[%d] %s (%s)\n", device.ID, device.Name, device.Kind())
		deviceInfo += fmt.Sprintf("    Input channels: %d, Output channels: %d\n",
			device.MaxInputChannels, device.MaxOutputChannels)
		deviceInfo += fmt.Sprintf("    Default sample rate: %.0f Hz\n", device.DefaultSampleRate)

		if i == m.selectedIndex {
			deviceInfo = highlightStyle.Render(deviceInfo)
		}

		sb.WriteString(deviceInfo)
		sb.WriteString("\n")
	}

	return sb.String()
}

func (m DeviceListModel) renderDeviceConfig() string {
	var sb strings.Builder
	device := m.devices[m.selectedIndex]

	fmt.Fprintf(&sb, "Device: %s\n", device.Name)
	if device.DefaultSampleRate != m.sampleRate {
		sb.WriteString(dimStyle.Render(fmt.Sprintf(
			"Runs at %.0f Hz by default; the equalizer needs %.0f Hz.", device.DefaultSampleRate, m.sampleRate)))
		sb.WriteString("\n")
	}
	sb.WriteString("\n")

	for i, role := range m.roles {
		cursor := " "
		if i == m.roleIndex {
			cursor = "▶"
		}
		line := fmt.Sprintf("  %s %s\n", cursor, role)
		if i == m.roleIndex {
			line = highlightStyle.Render(line)
		}
		sb.WriteString(line)
	}

	return sb.String()
}

func deviceRoles(d audio.Device) []Role {
	var roles []Role
	if d.MaxInputChannels > 0 {
		roles = append(roles, RoleInput)
	}
	if d.MaxOutputChannels > 0 {
		roles = append(roles, RoleOutput)
	}
	return roles
}

// PickDevice runs the device picker. ok is false when the user quit
// without choosing.
func PickDevice(sampleRate float64) (sel Selection, ok bool, err error) {
	p := tea.NewProgram(
		NewDeviceListModel(nil, sampleRate),
		tea.WithAltScreen(),
	)
	final, err := p.Run()
	if err != nil {
		return Selection{}, false, err
	}
	sel, ok = final.(DeviceListModel).Selection()
	return sel, ok, nil
}
