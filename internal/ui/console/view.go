package console

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/nexus-ptz/ptzctl/internal/ui/components"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#CBA6F7")).
			Padding(0, 1)

	focusedBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.ThickBorder()).
			BorderForeground(lipgloss.Color("#89B4FA")).
			Padding(0, 1)

	listItemStyle    = lipgloss.NewStyle().PaddingLeft(1)
	focusedItemStyle = lipgloss.NewStyle().
				PaddingLeft(1).
				Foreground(lipgloss.Color("#1e1e2e")).
				Background(lipgloss.Color("#FAB387"))

	descriptionStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6C7086"))
	helpStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("#6C7086")).Padding(1, 0, 0, 0)
	boldStyle        = lipgloss.NewStyle().Bold(true)
)

// View renders the console.
func (m *Model) View() string {
	var s strings.Builder

	host, err := m.camera.Host()
	if err != nil {
		host = "?"
	}
	title := fmt.Sprintf("ptzctl console | camera %s (%s)", m.camera.Camera(), host)
	if m.width > 0 {
		s.WriteString(titleStyle.Width(m.width).Render(title))
	} else {
		s.WriteString(titleStyle.Render(title))
	}
	s.WriteString("\n\n")

	s.WriteString(m.viewCommandList())
	s.WriteString("\n")

	if m.focusState == FocusForm {
		s.WriteString(m.viewForm())
		s.WriteString("\n")
	}

	if m.busy {
		s.WriteString(m.spinner.View() + " " + m.status)
		s.WriteString("\n")
	} else if m.status != "" {
		state := "success"
		if m.err != nil {
			state = "error"
		}
		s.WriteString(components.RenderStatus(state, m.status))
		s.WriteString("\n")
	}

	if m.err != nil {
		s.WriteString(components.RenderErrorPane(m.err, m.width))
		s.WriteString("\n")
	} else if m.output != "" {
		s.WriteString(boxStyle.Render(m.output))
		s.WriteString("\n")
	}

	if m.focusState == FocusForm {
		s.WriteString(helpStyle.Render("[Tab] Next field | [Enter] Send | [Esc] Back"))
	} else {
		s.WriteString(helpStyle.Render("[↑/↓] Select | [Enter] Run | [C]amera | [Q]uit"))
	}
	return s.String()
}

func (m *Model) viewCommandList() string {
	items := []string{boldStyle.Render("Commands")}
	for i, spec := range m.specs {
		line := fmt.Sprintf("%-14s %s", spec.Name, descriptionStyle.Render(spec.Description))
		if i == m.selected {
			items = append(items, focusedItemStyle.Render(fmt.Sprintf("%-14s %s", spec.Name, spec.Description)))
			continue
		}
		items = append(items, listItemStyle.Render(line))
	}

	style := boxStyle
	if m.focusState == FocusList {
		style = focusedBoxStyle
	}
	return style.Render(lipgloss.JoinVertical(lipgloss.Left, items...))
}

func (m *Model) viewForm() string {
	spec := m.Selected()
	if spec == nil {
		return ""
	}
	rows := []string{boldStyle.Render(spec.Usage())}
	for i, p := range spec.Params {
		if i >= len(m.inputs) {
			break
		}
		label := fmt.Sprintf("%s (%s)", p.Name, p.Kind)
		if !p.Required {
			label += " optional"
		}
		rows = append(rows, fmt.Sprintf("%-32s %s", label, m.inputs[i].View()))
	}
	return focusedBoxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}
