package reporter

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/ppiankov/pgsecui/internal/models"
)

// Section names accepted by TextOptions.
const (
	SectionOverview = "overview"
	SectionRoles    = "roles"
	SectionFindings = "findings"
)

// Sections lists every section in print order.
var Sections = []string{SectionOverview, SectionRoles, SectionFindings}

// TextOptions select what the text report prints.
type TextOptions struct {
	Sections []string             // empty prints every section
	Filter   models.FindingFilter // findings selector, empty means all
}

// TextReporter generates human-readable text reports
type TextReporter struct {
	writer io.Writer
	color  bool
}

// NewTextReporter creates a new text reporter. Colors are emitted only when
// useColor is set.
func NewTextReporter(writer io.Writer, useColor bool) *TextReporter {
	return &TextReporter{
		writer: writer,
		color:  useColor,
	}
}

// Generate writes the selected sections of the report
func (r *TextReporter) Generate(report *models.PolicyReport, opts TextOptions) error {
	r.printHeader()

	for _, section := range Sections {
		if !wants(opts.Sections, section) {
			continue
		}
		switch section {
		case SectionOverview:
			r.printOverview(report)
		case SectionRoles:
			r.printRoles(report.Roles)
		case SectionFindings:
			r.printFindings(report.Findings, opts.Filter)
		}
	}

	return nil
}

func wants(selected []string, section string) bool {
	if len(selected) == 0 {
		return true
	}
	for _, s := range selected {
		if s == section {
			return true
		}
	}
	return false
}

// printHeader prints the report header
func (r *TextReporter) printHeader() {
	r.printf("╔════════════════════════════════════════════╗\n")
	r.printf("║      PostgreSQL Security Policy Report     ║\n")
	r.printf("╚════════════════════════════════════════════╝\n\n")
}

func (r *TextReporter) printSectionTitle(title string) {
	r.printf("%s\n", r.paint(color.New(color.Bold), title))
	r.printf("--------------------------------------------------\n")
}

// printOverview prints instance info, settings and the headline counts
func (r *TextReporter) printOverview(report *models.PolicyReport) {
	s := models.Summarize(report)

	r.printSectionTitle("Overview")
	r.printf("  Version: %s\n", report.Instance.Version)

	settings := report.Instance.Settings
	if settings.Len() > 0 {
		width := 0
		for _, k := range settings.Keys() {
			width = max(width, lipgloss.Width(k))
		}
		r.printf("  Settings:\n")
		for _, p := range settings.Pairs() {
			r.printf("    %s  %s\n", padRight(p.Name, width), p.Value)
		}
	}

	r.printf("\n")
	r.printf("  Roles: %d\n", s.Roles)
	r.printf("  Tables: %d\n", s.Tables)
	r.printf("  RLS Enabled: %d (%d disabled)\n", s.RLSEnabled, s.RLSDisabled)
	r.printf("  Findings: %d (%d critical, %d warning)\n\n",
		s.Findings, s.BySeverity[models.SeverityCritical], s.BySeverity[models.SeverityWarning])
}

// printRoles prints one line per role, dangerous roles flagged
func (r *TextReporter) printRoles(roles []models.RoleInfo) {
	r.printSectionTitle("Roles")
	if len(roles) == 0 {
		r.printf("  No roles\n\n")
		return
	}

	nameWidth := len("Role")
	for _, role := range roles {
		nameWidth = max(nameWidth, lipgloss.Width(role.Name))
	}

	r.printf("    %s  %-5s  %-9s  %-9s  %s\n", padRight("Role", nameWidth), "Login", "Superuser", "BypassRLS", "Grants")
	danger := color.New(color.FgRed, color.Bold)
	for _, role := range roles {
		marker := " "
		if models.IsDangerousRole(role) {
			marker = "!"
		}
		line := fmt.Sprintf("%s   %s  %-5s  %-9s  %-9s  %d grants",
			marker, padRight(role.Name, nameWidth),
			yesNo(role.Login), yesNo(role.Superuser), yesNo(role.BypassRLS), len(role.Grants))
		if models.IsDangerousRole(role) {
			line = r.paint(danger, line)
		}
		r.printf("  %s\n", line)
	}
	r.printf("\n")
}

// padRight pads s to width terminal cells; fmt widths count runes.
func padRight(s string, width int) string {
	if w := lipgloss.Width(s); w < width {
		return s + strings.Repeat(" ", width-w)
	}
	return s
}

func yesNo(v bool) string {
	if v {
		return "Yes"
	}
	return "No"
}

// printFindings prints the filter counts and the findings passing filter
func (r *TextReporter) printFindings(findings []models.Finding, filter models.FindingFilter) {
	if filter == "" {
		filter = models.FilterAll
	}

	r.printSectionTitle("Findings")

	parts := make([]string, 0, len(models.FindingFilters))
	for _, f := range models.FindingFilters {
		label := fmt.Sprintf("%s (%d)", Label(string(f)), models.FilterCount(findings, f))
		if f == filter {
			label = "[" + label + "]"
		}
		parts = append(parts, label)
	}
	r.printf("  %s\n\n", strings.Join(parts, "  "))

	shown := models.ApplyFilter(findings, filter)
	if len(shown) == 0 {
		r.printf("  No findings\n")
		return
	}

	for _, f := range shown {
		sev := r.paint(severityColor(f.Severity), fmt.Sprintf("[%s]", strings.ToUpper(string(f.Severity))))
		r.printf("  %s %s\n", sev, f.Code)
		r.printf("     %s\n", f.Message)
	}
}

// Label title-cases a severity or filter name for display.
func Label(s string) string {
	return cases.Title(language.English).String(s)
}

func severityColor(sev models.Severity) *color.Color {
	switch sev {
	case models.SeverityCritical:
		return color.New(color.FgHiRed, color.Bold)
	case models.SeverityWarning:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgCyan)
	}
}

// paint applies c only when the reporter emits color.
func (r *TextReporter) paint(c *color.Color, s string) string {
	if r.color {
		c.EnableColor()
	} else {
		c.DisableColor()
	}
	return c.Sprint(s)
}

// printf is a helper to write formatted output
func (r *TextReporter) printf(format string, args ...interface{}) {
	fmt.Fprintf(r.writer, format, args...)
}
