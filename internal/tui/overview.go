package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/ppiankov/pgsecui/internal/models"
)

// renderOverview produces the Overview tab: instance version, settings in
// report order and the summary metrics.
func renderOverview(r *models.PolicyReport, width int) string {
	var b strings.Builder

	b.WriteString(styleSectionTitle.Render("PostgreSQL Instance"))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("Version: %s\n\n", r.Instance.Version))

	b.WriteString(styleSectionTitle.Render("Settings"))
	b.WriteString("\n")
	b.WriteString(renderSettings(r.Instance.Settings))
	b.WriteString("\n")

	metrics := strings.Join(overviewMetrics(r), "\n")
	b.WriteString(stylePanel.Width(panelWidth(width)).Render(metrics))

	return b.String()
}

// overviewMetrics returns the four summary lines.
func overviewMetrics(r *models.PolicyReport) []string {
	s := models.Summarize(r)
	return []string{
		fmt.Sprintf("Roles: %d", s.Roles),
		fmt.Sprintf("Tables: %d", s.Tables),
		fmt.Sprintf("RLS Enabled: %d (%d disabled)", s.RLSEnabled, s.RLSDisabled),
		fmt.Sprintf("Findings: %d (%d critical, %d warning)",
			s.Findings, s.BySeverity[models.SeverityCritical], s.BySeverity[models.SeverityWarning]),
	}
}

func renderSettings(s models.Settings) string {
	if s.Len() == 0 {
		return styleMuted.Render("  (no settings reported)") + "\n"
	}

	keyWidth := 0
	for _, k := range s.Keys() {
		if w := lipgloss.Width(k); w > keyWidth {
			keyWidth = w
		}
	}

	var b strings.Builder
	for _, p := range s.Pairs() {
		pad := strings.Repeat(" ", keyWidth-lipgloss.Width(p.Name))
		b.WriteString(fmt.Sprintf("  %s%s  %s\n", p.Name, pad, p.Value))
	}
	return b.String()
}

// panelWidth leaves room for the panel border.
func panelWidth(width int) int {
	w := width - 2
	if w < 20 {
		w = 20
	}
	return w
}
