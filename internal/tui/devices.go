// SPDX-License-Identifier: MIT
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"sonoscope/internal/audio"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(lipgloss.Color("#25A065")).
			Padding(0, 1).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5"))

	highlightStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#25A065")).
			Bold(true)
)

// DeviceBrowser is the Bubble Tea model for the capture device listing.
type DeviceBrowser struct {
	devices  []audio.Device
	selected int
	viewport viewport.Model
	ready    bool
	err      error
}

// NewDeviceBrowser returns an empty browser; the device query runs from
// Init so PortAudio enumeration cannot stall the first paint.
func NewDeviceBrowser() DeviceBrowser {
	return DeviceBrowser{}
}

type devicesMsg struct {
	devices []audio.Device
}

type errMsg struct {
	err error
}

func fetchDevices() tea.Msg {
	devices, err := audio.GetDevices()
	if err != nil {
		return errMsg{err}
	}
	return devicesMsg{devices}
}

// Init kicks off the device query.
func (m DeviceBrowser) Init() tea.Cmd {
	return fetchDevices
}

// Update handles input and device query results.
func (m DeviceBrowser) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		cmd  tea.Cmd
		cmds []tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-4)
			m.ready = true
			if len(m.devices) > 0 {
				m.viewport.SetContent(m.renderDevices())
			}
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - 4
		}

	case devicesMsg:
		m.devices = msg.devices
		if m.ready {
			m.viewport.SetContent(m.renderDevices())
		}

	case errMsg:
		m.err = msg.err

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, key.NewBinding(key.WithKeys("q", "ctrl+c", "esc"))):
			return m, tea.Quit

		case key.Matches(msg, key.NewBinding(key.WithKeys("up", "k"))):
			if m.selected > 0 {
				m.selected--
				m.viewport.SetContent(m.renderDevices())
			}

		case key.Matches(msg, key.NewBinding(key.WithKeys("down", "j"))):
			if m.selected < len(m.devices)-1 {
				m.selected++
				m.viewport.SetContent(m.renderDevices())
			}
		}
	}

	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// View renders the browser.
func (m DeviceBrowser) View() string {
	if !m.ready {
		return "Initializing..."
	}

	if m.err != nil {
		return fmt.Sprintf("Error: %v\n\nPress q to exit.", m.err)
	}

	title := titleStyle.Render("Capture Devices")
	help := infoStyle.Render("↑/↓: Navigate • q: Quit")
	return fmt.Sprintf("%s\n\n%s\n\n%s", title, m.viewport.View(), help)
}

func (m DeviceBrowser) renderDevices() string {
	if len(m.devices) == 0 {
		return "No audio devices found."
	}

	var sb strings.Builder
	for i, d := range m.devices {
		kind := ""
		switch {
		case d.MaxInputChannels > 0 && d.MaxOutputChannels > 0:
			kind = "Input/Output"
		case d.MaxInputChannels > 0:
			kind = "Input"
		case d.MaxOutputChannels > 0:
			kind = "Output"
		}
		marker := ""
		if d.DefaultInput {
			marker = " (default input)"
		}

		info := fmt.Sprintf("[%d] %s (%s)%s\n", d.ID, d.Name, kind, marker)
		info += fmt.Sprintf("    Input channels: %d, Output channels: %d\n",
			d.MaxInputChannels, d.MaxOutputChannels)
		info += fmt.Sprintf("    Default sample rate: %.0f Hz\n", d.DefaultSampleRate)

		if i == m.selected {
			info = highlightStyle.Render(info)
		}
		sb.WriteString(info)
		sb.WriteString("\n")
	}
	return sb.String()
}

// BrowseDevices runs the interactive device browser. The caller must
// have initialized PortAudio.
func BrowseDevices() error {
	p := tea.NewProgram(
		NewDeviceBrowser(),
		tea.WithAltScreen(),
	)
	_, err := p.Run()
	return err
}
