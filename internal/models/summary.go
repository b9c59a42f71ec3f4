package models

// Summary holds the headline numbers of a report.
type Summary struct {
	Version        string           `json:"version" yaml:"version"`
	Roles          int              `json:"roles" yaml:"roles"`
	DangerousRoles int              `json:"dangerous_roles" yaml:"dangerous_roles"`
	Tables         int              `json:"tables" yaml:"tables"`
	RLSEnabled     int              `json:"rls_enabled" yaml:"rls_enabled"`
	RLSDisabled    int              `json:"rls_disabled" yaml:"rls_disabled"`
	Findings       int              `json:"findings" yaml:"findings"`
	BySeverity     map[Severity]int `json:"findings_by_severity" yaml:"findings_by_severity"`
}

// Summarize computes the Summary of r. A nil report yields zero counts.
func Summarize(r *PolicyReport) Summary {
	s := Summary{
		BySeverity: SeverityCounts(nil),
	}
	if r == nil {
		return s
	}

	s.Version = r.Instance.Version
	s.Roles = len(r.Roles)
	s.DangerousRoles = DangerousRoleCount(r)
	s.Tables = len(r.Tables)
	s.RLSEnabled = RLSEnabledCount(r)
	s.RLSDisabled = RLSDisabledCount(r)
	s.Findings = len(r.Findings)
	s.BySeverity = SeverityCounts(r.Findings)
	return s
}
