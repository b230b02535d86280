package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/nexus-ptz/ptzctl/internal/errors"
)

var (
	errorPaneStyle = lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder(), false, true, true, true).
			BorderForeground(lipgloss.Color("#F38BA8")).
			MarginTop(1).
			Padding(0, 1)

	errorHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("#F38BA8"))

	errorKindStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAB387")).
			Italic(true)

	errorOptionsStyle = lipgloss.NewStyle().
				MarginTop(1).
				Foreground(lipgloss.Color("#CDD6F4"))

	hintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#A6E3A1")).
			MarginTop(1)
)

// RenderErrorPane renders an error report in a bordered pane of the given width
func RenderErrorPane(report *errors.Report, width int) string {
	if report == nil {
		return ""
	}

	var builder strings.Builder
	builder.WriteString(errorHeaderStyle.Render(fmt.Sprintf("❌ Error: %s", report.Message)))
	builder.WriteRune('\n')
	builder.WriteString(errorKindStyle.Render(fmt.Sprintf("   Kind: %s", report.Kind)))

	if len(report.Options) > 0 {
		builder.WriteRune('\n')
		builder.WriteString(errorOptionsStyle.Render("Options: " + strings.Join(report.Options, ", ")))
	}
	if report.Hint != "" {
		builder.WriteRune('\n')
		builder.WriteString(hintStyle.Render(report.Hint))
	}

	if width > 8 {
		return errorPaneStyle.Width(width - 4).Render(builder.String())
	}
	return errorPaneStyle.Render(builder.String())
}
