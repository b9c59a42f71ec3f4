package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/ppiankov/pgsecui/internal/models"
)

// Severity colors
var (
	colorCritical = lipgloss.Color("#FF0000")
	colorWarning  = lipgloss.Color("#FF8800")
	colorInfo     = lipgloss.Color("#00AAFF")
	colorOK       = lipgloss.Color("#00FF00")
	colorMuted    = lipgloss.Color("#888888")
	colorAccent   = lipgloss.Color("#7B68EE")
	colorBorder   = lipgloss.Color("#444444")
)

// Panel styles
var (
	styleTitle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorAccent).
			Padding(0, 1)

	styleTab = lipgloss.NewStyle().
			Padding(0, 1).
			Foreground(colorMuted)

	styleActiveTab = lipgloss.NewStyle().
			Padding(0, 1).
			Bold(true).
			Underline(true).
			Foreground(colorAccent)

	stylePanel = lipgloss.NewStyle().
			Padding(0, 1).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder)

	styleDetailPanel = lipgloss.NewStyle().
				Padding(0, 1).
				BorderStyle(lipgloss.NormalBorder()).
				BorderTop(true).
				BorderForeground(colorBorder)

	styleSectionTitle = lipgloss.NewStyle().Bold(true)

	styleError = lipgloss.NewStyle().
			Foreground(colorCritical).
			Bold(true).
			Padding(0, 1)

	styleFooter = lipgloss.NewStyle().
			Foreground(colorMuted).
			Padding(0, 1)

	stylePrompt = lipgloss.NewStyle().
			Foreground(colorAccent).Bold(true)

	styleMuted = lipgloss.NewStyle().Foreground(colorMuted)
)

// Roles table styles
var (
	styleCell     = lipgloss.NewStyle().Padding(0, 1)
	styleHeadCell = styleCell.Bold(true).Foreground(colorAccent)
	styleDanger   = styleCell.Foreground(colorCritical).Bold(true)
	styleSelected = styleCell.Foreground(lipgloss.Color("#FFFFFF")).Background(colorAccent)
	styleYes      = styleCell.Foreground(colorOK)
	styleNo       = styleCell.Foreground(colorMuted)

	styleSelectedDanger = styleSelected.Foreground(colorCritical).Bold(true)
)

// severityStyle returns the lipgloss style for a severity level.
func severityStyle(severity models.Severity) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(severityColor(severity)).Bold(severity == models.SeverityCritical)
}

func severityColor(severity models.Severity) lipgloss.Color {
	switch severity {
	case models.SeverityCritical:
		return colorCritical
	case models.SeverityWarning:
		return colorWarning
	case models.SeverityInfo:
		return colorInfo
	default:
		return colorMuted
	}
}

// severityIcon returns the glyph shown next to a finding.
func severityIcon(severity models.Severity) string {
	switch severity {
	case models.SeverityCritical:
		return "●"
	case models.SeverityWarning:
		return "▲"
	case models.SeverityInfo:
		return "ℹ"
	default:
		return "•"
	}
}
