package console

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nexus-ptz/ptzctl/internal/content"
)

// Update handles messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case resultMsg:
		m.handleResult(msg)
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		// one dispatch at a time
		if m.busy {
			return m, nil
		}
		if m.focusState == FocusForm {
			return m, m.handleFormKeys(msg)
		}
		return m, m.handleListKeys(msg)
	}
	return m, nil
}

func (m *Model) handleResult(msg resultMsg) {
	m.busy = false
	m.record(msg)

	if msg.err != nil {
		m.err = m.errors.Process(msg.err)
		m.output = ""
		m.status = fmt.Sprintf("%s failed after %s", msg.command, msg.duration.Round(time.Millisecond))
		m.logger.Warn("Console dispatch failed", "command", msg.command, "kind", m.err.Kind)
		return
	}

	m.err = nil
	out, err := m.renderer.FormatResponse(msg.resp, content.Format{Pretty: true, Color: true})
	if err != nil {
		out = fmt.Sprintf("%v", msg.resp)
	}
	m.output = out
	m.status = fmt.Sprintf("%s completed in %s", msg.command, msg.duration.Round(time.Millisecond))
}

// handleListKeys processes key presses when the command list is focused.
func (m *Model) handleListKeys(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "q":
		return tea.Quit

	case "up", "k":
		if m.selected > 0 {
			m.selected--
		}

	case "down", "j":
		if m.selected < len(m.specs)-1 {
			m.selected++
		}

	case "c":
		m.cycleCamera()

	case "enter":
		spec := m.Selected()
		if spec == nil {
			return nil
		}
		if len(spec.Params) > 0 {
			return m.openForm(spec)
		}
		return m.start(spec.Name, nil)
	}
	return nil
}

// handleFormKeys processes key presses while parameters are being entered.
func (m *Model) handleFormKeys(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "esc":
		m.closeForm()
		return nil

	case "tab", "down":
		return m.moveInput(1)

	case "shift+tab", "up":
		return m.moveInput(-1)

	case "enter":
		spec := m.Selected()
		params := m.formParams(spec)
		m.closeForm()
		return m.start(spec.Name, params)
	}

	var cmd tea.Cmd
	m.inputs[m.focusedInput], cmd = m.inputs[m.focusedInput].Update(msg)
	return cmd
}

func (m *Model) moveInput(delta int) tea.Cmd {
	if len(m.inputs) == 0 {
		return nil
	}
	m.inputs[m.focusedInput].Blur()
	m.focusedInput = (m.focusedInput + delta + len(m.inputs)) % len(m.inputs)
	return m.inputs[m.focusedInput].Focus()
}

func (m *Model) start(name string, params map[string]any) tea.Cmd {
	m.busy = true
	m.err = nil
	m.status = fmt.Sprintf("Running %s on %s...", name, m.camera.Camera())
	return tea.Batch(m.spinner.Tick, m.dispatch(name, params))
}

func (m *Model) cycleCamera() {
	from := m.camera.Camera()
	next := nextCamera(m.camera.Cameras(), from)
	if next == "" || next == from {
		m.status = "No other camera configured"
		return
	}
	if err := m.camera.SetCamera(next, ""); err != nil {
		m.err = m.errors.Process(err)
		return
	}
	m.err = nil
	m.output = ""
	m.status = fmt.Sprintf("Switched to %s, session cleared", next)
	m.logger.LogUIStateChange(from, next, "camera cycled")
}
