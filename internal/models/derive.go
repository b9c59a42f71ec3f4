package models

import "fmt"

// RLSEnabledCount counts tables with row-level security turned on.
func RLSEnabledCount(r *PolicyReport) int {
	if r == nil {
		return 0
	}
	n := 0
	for _, t := range r.Tables {
		if t.RLSEnabled {
			n++
		}
	}
	return n
}

// RLSDisabledCount counts tables without row-level security.
func RLSDisabledCount(r *PolicyReport) int {
	if r == nil {
		return 0
	}
	return len(r.Tables) - RLSEnabledCount(r)
}

// FindingsBySeverity counts findings with exactly the given severity.
func FindingsBySeverity(r *PolicyReport, sev Severity) int {
	if r == nil {
		return 0
	}
	return countSeverity(r.Findings, sev)
}

// SeverityCounts returns per-severity totals. Every known severity is
// present in the map, zero or not.
func SeverityCounts(findings []Finding) map[Severity]int {
	counts := make(map[Severity]int, len(Severities))
	for _, sev := range Severities {
		counts[sev] = 0
	}
	for _, f := range findings {
		counts[f.Severity]++
	}
	return counts
}

func countSeverity(findings []Finding, sev Severity) int {
	n := 0
	for _, f := range findings {
		if f.Severity == sev {
			n++
		}
	}
	return n
}

// IsDangerousRole reports whether a role can see past row-level security,
// either as a superuser or through the BYPASSRLS attribute.
func IsDangerousRole(role RoleInfo) bool {
	return role.Superuser || role.BypassRLS
}

// DangerousRoleCount counts roles for which IsDangerousRole holds.
func DangerousRoleCount(r *PolicyReport) int {
	if r == nil {
		return 0
	}
	n := 0
	for _, role := range r.Roles {
		if IsDangerousRole(role) {
			n++
		}
	}
	return n
}

// FindingFilter is the findings quick-filter selector.
type FindingFilter string

const (
	FilterAll      FindingFilter = "all"
	FilterCritical FindingFilter = "critical"
	FilterWarning  FindingFilter = "warning"
)

// FindingFilters lists selectable filters in display order. Info findings
// are shown under "all" but have no quick filter of their own.
var FindingFilters = []FindingFilter{FilterAll, FilterCritical, FilterWarning}

// ParseFindingFilter maps user input to a filter. Empty input means all.
func ParseFindingFilter(s string) (FindingFilter, error) {
	switch FindingFilter(s) {
	case "", FilterAll:
		return FilterAll, nil
	case FilterCritical:
		return FilterCritical, nil
	case FilterWarning:
		return FilterWarning, nil
	default:
		return FilterAll, fmt.Errorf("invalid filter %q (must be all, critical, or warning)", s)
	}
}

// Next cycles all -> critical -> warning -> all.
func (f FindingFilter) Next() FindingFilter {
	for i, candidate := range FindingFilters {
		if candidate == f {
			return FindingFilters[(i+1)%len(FindingFilters)]
		}
	}
	return FilterAll
}

// ApplyFilter returns the findings matching sel, preserving order. FilterAll
// returns the input slice itself.
func ApplyFilter(findings []Finding, sel FindingFilter) []Finding {
	if sel == FilterAll || sel == "" {
		return findings
	}
	result := make([]Finding, 0, len(findings))
	for _, f := range findings {
		if string(f.Severity) == string(sel) {
			result = append(result, f)
		}
	}
	return result
}

// FilterCount returns how many findings the filter would show, computed
// from the full list regardless of the active selection.
func FilterCount(findings []Finding, sel FindingFilter) int {
	if sel == FilterAll || sel == "" {
		return len(findings)
	}
	return countSeverity(findings, Severity(sel))
}
