// Package ui renders embody sessions for the terminal.
package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/embody-dev/embody/internal/session"
)

const (
	primaryColor   = "#7C3AED"
	secondaryColor = "#10B981"
	warningColor   = "#F59E0B"
	errorColor     = "#EF4444"
	dimColor       = "#6B7280"
)

var (
	TitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(primaryColor)).
			Bold(true)

	DimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(dimColor))

	SuccessStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(secondaryColor))

	WarningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(warningColor))

	ErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(errorColor)).
			Bold(true)

	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(primaryColor)).
			Padding(0, 1)

	LabelStyle = lipgloss.NewStyle().
			Width(12).
			Foreground(lipgloss.Color(dimColor))
)

// PhaseStyle colors a phase by how far along it is.
func PhaseStyle(p session.Phase) lipgloss.Style {
	switch p {
	case session.PhaseCompleted:
		return SuccessStyle
	case session.PhaseFinalization:
		return TitleStyle
	case session.PhaseFeedback:
		return WarningStyle
	}
	return DimStyle
}
