// SPDX-License-Identifier: MIT
package tui

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"equalizer/internal/audio"
)

var testDevices = []audio.Device{
	{ID: 0, Name: "Microphone", MaxInputChannels: 1, DefaultSampleRate: 48000},
	{ID: 1, Name: "Speakers", MaxOutputChannels: 2, DefaultSampleRate: 48000},
	{ID: 2, Name: "Headset", MaxInputChannels: 1, MaxOutputChannels: 2, DefaultSampleRate: 16000},
}

func loadedPicker(t *testing.T) DeviceListModel {
	t.Helper()
	m := NewDeviceListModel(func() ([]audio.Device, error) { return testDevices, nil }, 16000)
	return pick(t, m, m.Init()(), tea.WindowSizeMsg{Width: 80, Height: 30})
}

func pick(t *testing.T, m DeviceListModel, msgs ...tea.Msg) DeviceListModel {
	t.Helper()
	for _, msg := range msgs {
		next, _ := m.Update(msg)
		m = next.(DeviceListModel)
	}
	return m
}

func TestDevicePickerSelectsOutput(t *testing.T) {
	m := loadedPicker(t)
	if !strings.Contains(m.View(), "[2] Headset (Input/Output)") {
		t.Errorf("device list:\n%s", m.View())
	}

	m = pick(t, m,
		tea.KeyMsg{Type: tea.KeyDown},
		tea.KeyMsg{Type: tea.KeyDown},
		tea.KeyMsg{Type: tea.KeyEnter},
	)
	if m.activeScreen != ConfigScreen {
		t.Fatal("enter did not open the role screen")
	}
	m = pick(t, m, tea.KeyMsg{Type: tea.KeyDown})

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(DeviceListModel)
	if cmd == nil {
		t.Fatal("confirming returned no command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("confirming did not quit")
	}

	sel, ok := m.Selection()
	if !ok {
		t.Fatal("no selection")
	}
	if sel.Device.ID != 2 || sel.Role != RoleOutput || sel.ConfigKey() != "audio.output_device" {
		t.Errorf("selection = %+v (%s)", sel, sel.ConfigKey())
	}
}

func TestDevicePickerOffersSupportedRolesOnly(t *testing.T) {
	m := loadedPicker(t)
	m = pick(t, m, tea.KeyMsg{Type: tea.KeyDown}, tea.KeyMsg{Type: tea.KeyEnter})

	if len(m.roles) != 1 || m.roles[0] != RoleOutput {
		t.Errorf("roles for an output-only device = %v", m.roles)
	}
	if !strings.Contains(m.View(), "needs 16000 Hz") {
		t.Error("rate mismatch not shown")
	}

	m = pick(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if m.activeScreen != ListScreen {
		t.Error("esc did not go back")
	}
	if _, ok := m.Selection(); ok {
		t.Error("selection made without confirming")
	}
}

func TestDevicePickerError(t *testing.T) {
	m := NewDeviceListModel(func() ([]audio.Device, error) { return nil, errors.New("no host API") }, 16000)
	m = pick(t, m, m.Init()(), tea.WindowSizeMsg{Width: 80, Height: 30})
	if !strings.Contains(m.View(), "no host API") {
		t.Errorf("view = %q", m.View())
	}
}
