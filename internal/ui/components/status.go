// Package components holds small rendering helpers shared by the console views.
package components

import (
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/lipgloss"
)

// statusStyles maps status strings to their corresponding visual style.
var statusStyles = map[string]lipgloss.Style{
	"pending": lipgloss.NewStyle().Foreground(lipgloss.Color("#F9E2AF")),
	"success": lipgloss.NewStyle().Foreground(lipgloss.Color("#A6E3A1")),
	"error":   lipgloss.NewStyle().Foreground(lipgloss.Color("#F38BA8")),
	"warning": lipgloss.NewStyle().Foreground(lipgloss.Color("#FAB387")),
	"info":    lipgloss.NewStyle().Foreground(lipgloss.Color("#89B4FA")),
	"running": lipgloss.NewStyle().Foreground(lipgloss.Color("#F9E2AF")),
}

// statusIcons maps status strings to their corresponding icon.
var statusIcons = map[string]string{
	"pending": "⏳",
	"success": "✅",
	"error":   "❌",
	"warning": "⚠️",
	"info":    "ℹ️",
	"running": "🏃",
}

// RenderStatus formats a status message with an icon and colour.
func RenderStatus(status, message string) string {
	style, exists := statusStyles[status]
	if !exists {
		style = lipgloss.NewStyle()
	}
	icon, exists := statusIcons[status]
	if !exists {
		icon = "🔹"
	}
	return style.Render(fmt.Sprintf("%s %s", icon, message))
}

// NewSpinner returns the spinner shown while a command is in flight
func NewSpinner() spinner.Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = statusStyles["running"]
	return s
}
