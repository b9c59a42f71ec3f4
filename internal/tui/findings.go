package tui

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/ppiankov/pgsecui/internal/models"
)

// filterLabel renders a selector as it appears in the filter bar.
func filterLabel(f models.FindingFilter) string {
	return cases.Title(language.English).String(string(f))
}

// renderFilterBar shows every selector with its count, computed from the
// unfiltered list so the numbers do not move when the selection changes.
func renderFilterBar(findings []models.Finding, active models.FindingFilter) string {
	parts := make([]string, 0, len(models.FindingFilters))
	for _, f := range models.FindingFilters {
		label := fmt.Sprintf("%s (%d)", filterLabel(f), models.FilterCount(findings, f))
		if f == active {
			parts = append(parts, styleActiveTab.Render(label))
		} else {
			parts = append(parts, styleTab.Render(label))
		}
	}
	return strings.Join(parts, " ")
}

// renderFindings produces the Findings tab: filter bar, then one card per
// finding that passes the active filter, in report order.
func renderFindings(findings []models.Finding, active models.FindingFilter, width int) string {
	var b strings.Builder
	b.WriteString(renderFilterBar(findings, active))
	b.WriteString("\n\n")

	shown := models.ApplyFilter(findings, active)
	if len(shown) == 0 {
		b.WriteString(styleMuted.Render("No findings"))
		return b.String()
	}

	for i, f := range shown {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(renderFindingCard(f, width))
	}
	return b.String()
}

func renderFindingCard(f models.Finding, width int) string {
	sev := severityStyle(f.Severity).Render(fmt.Sprintf("%s %s", severityIcon(f.Severity), strings.ToUpper(string(f.Severity))))
	body := fmt.Sprintf("%s  %s\n%s", sev, styleSectionTitle.Render(f.Code), f.Message)

	return stylePanel.
		BorderForeground(severityColor(f.Severity)).
		Width(panelWidth(width)).
		Render(body)
}
