package policy

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/ppiankov/pgsecui/internal/models"
)

// Policy defines enforcement rules for a policy report.
type Policy struct {
	Version string `yaml:"version"`
	Rules   Rules  `yaml:"rules"`
}

// Rules contains all configurable policy rules.
type Rules struct {
	MaxFindings       *int     `yaml:"max_findings,omitempty"`
	MaxCritical       *int     `yaml:"max_critical,omitempty"`
	MaxWarning        *int     `yaml:"max_warning,omitempty"`
	MaxRLSDisabled    *int     `yaml:"max_rls_disabled,omitempty"`
	MaxDangerousRoles *int     `yaml:"max_dangerous_roles,omitempty"`
	ForbidCodes       []string `yaml:"forbid_codes,omitempty"`
	RequireRLSSchemas []string `yaml:"require_rls_schemas,omitempty"`
}

// Violation is a single policy failure.
type Violation struct {
	Rule    string `json:"rule" yaml:"rule"`
	Message string `json:"message" yaml:"message"`
}

// Result holds the outcome of a policy check.
type Result struct {
	Pass       bool        `json:"pass" yaml:"pass"`
	Violations []Violation `json:"violations" yaml:"violations"`
}

// PolicyFileNames are searched, in order, by FindPolicyFile.
var PolicyFileNames = []string{".pgsecui-policy.yaml", ".pgsecui-policy.yml"}

// LoadFromFile reads a policy file. A missing file yields a nil policy,
// which always passes.
func LoadFromFile(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read policy: %w", err)
	}

	var p Policy
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse policy: %w", err)
	}

	return &p, nil
}

// FindPolicyFile searches for a policy file in dir and its parents up to
// the filesystem root.
func FindPolicyFile(dir string) string {
	for {
		for _, name := range PolicyFileNames {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// Evaluate checks a report against the policy rules.
func (p *Policy) Evaluate(report *models.PolicyReport) *Result {
	if p == nil {
		return &Result{Pass: true}
	}

	summary := models.Summarize(report)
	var violations []Violation

	limit := func(rule, what string, count int, max *int) {
		if max != nil && count > *max {
			violations = append(violations, Violation{
				Rule:    rule,
				Message: fmt.Sprintf("%s %d exceeds limit %d", what, count, *max),
			})
		}
	}

	limit("max_findings", "total findings", summary.Findings, p.Rules.MaxFindings)
	limit("max_critical", "critical findings", summary.BySeverity[models.SeverityCritical], p.Rules.MaxCritical)
	limit("max_warning", "warning findings", summary.BySeverity[models.SeverityWarning], p.Rules.MaxWarning)
	limit("max_rls_disabled", "tables without RLS", summary.RLSDisabled, p.Rules.MaxRLSDisabled)
	limit("max_dangerous_roles", "dangerous roles", summary.DangerousRoles, p.Rules.MaxDangerousRoles)

	// forbid_codes
	if len(p.Rules.ForbidCodes) > 0 {
		counts := make(map[string]int)
		if report != nil {
			for _, f := range report.Findings {
				counts[f.Code]++
			}
		}
		for _, code := range p.Rules.ForbidCodes {
			if n := counts[code]; n > 0 {
				violations = append(violations, Violation{
					Rule:    "forbid_codes",
					Message: fmt.Sprintf("forbidden code %q has %d findings", code, n),
				})
			}
		}
	}

	// require_rls_schemas
	if len(p.Rules.RequireRLSSchemas) > 0 && report != nil {
		required := make(map[string]bool, len(p.Rules.RequireRLSSchemas))
		for _, s := range p.Rules.RequireRLSSchemas {
			required[s] = true
		}
		for _, t := range report.Tables {
			if required[t.Schema] && !t.RLSEnabled {
				violations = append(violations, Violation{
					Rule:    "require_rls_schemas",
					Message: fmt.Sprintf("table %s has no RLS enabled", t.QualifiedName()),
				})
			}
		}
	}

	return &Result{
		Pass:       len(violations) == 0,
		Violations: violations,
	}
}
