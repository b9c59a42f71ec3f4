package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Severity is the closed set of finding severities on the wire.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Severities lists every known severity, most severe first.
var Severities = []Severity{SeverityCritical, SeverityWarning, SeverityInfo}

// Valid reports whether s is one of the known severities.
func (s Severity) Valid() bool {
	switch s {
	case SeverityInfo, SeverityWarning, SeverityCritical:
		return true
	default:
		return false
	}
}

// UnmarshalJSON rejects severities outside the known set so that producer
// bugs surface as decode errors instead of silently rendering.
func (s *Severity) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("severity must be a string: %w", err)
	}
	sev := Severity(raw)
	if !sev.Valid() {
		return fmt.Errorf("unknown severity %q", raw)
	}
	*s = sev
	return nil
}

// InstanceInfo identifies the inspected PostgreSQL server.
type InstanceInfo struct {
	Version  string   `json:"version" yaml:"version"`
	Settings Settings `json:"settings" yaml:"settings"`
}

// RoleInfo describes one database role.
type RoleInfo struct {
	Name      string   `json:"name" yaml:"name" validate:"required"`
	Login     bool     `json:"login" yaml:"login"`
	Superuser bool     `json:"superuser" yaml:"superuser"`
	BypassRLS bool     `json:"bypassrls" yaml:"bypassrls"`
	Grants    []string `json:"grants" yaml:"grants"` // e.g. "SELECT ON public.accounts"
}

// TableInfo describes one table and whether row-level security is on.
type TableInfo struct {
	Schema     string `json:"schema" yaml:"schema" validate:"required"`
	Name       string `json:"name" yaml:"name" validate:"required"`
	RLSEnabled bool   `json:"rls_enabled" yaml:"rls_enabled"`
}

// QualifiedName returns schema.name.
func (t TableInfo) QualifiedName() string {
	return t.Schema + "." + t.Name
}

// Finding is a single issue reported by the analysis service.
type Finding struct {
	Severity Severity `json:"severity" yaml:"severity" validate:"oneof=info warning critical"`
	Code     string   `json:"code" yaml:"code" validate:"required"` // not unique, e.g. NO_RLS
	Message  string   `json:"message" yaml:"message"`
}

// PolicyReport is the unit of transfer between the loader and the views.
// It is never mutated after decoding; a new load replaces it wholesale.
type PolicyReport struct {
	Instance InstanceInfo `json:"instance" yaml:"instance"`
	Roles    []RoleInfo   `json:"roles" yaml:"roles" validate:"dive"`
	Tables   []TableInfo  `json:"tables" yaml:"tables" validate:"dive"`
	Findings []Finding    `json:"findings" yaml:"findings" validate:"dive"`
}

// Envelope is the response body of both API endpoints.
type Envelope struct {
	Report *PolicyReport `json:"report,omitempty" yaml:"report,omitempty"`
	Error  string        `json:"error,omitempty" yaml:"error,omitempty"`
}

// DecodeReport parses a bare PolicyReport document.
func DecodeReport(data []byte) (*PolicyReport, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, &DecodeError{Err: fmt.Errorf("empty document")}
	}

	var report PolicyReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, &DecodeError{Err: err}
	}
	if err := checkSeverities(report.Findings); err != nil {
		return nil, err
	}
	return &report, nil
}

// checkSeverities catches findings whose severity key is absent or whose
// array element is null; UnmarshalJSON never runs for those.
func checkSeverities(findings []Finding) error {
	for i, f := range findings {
		if !f.Severity.Valid() {
			return &DecodeError{Err: fmt.Errorf("findings[%d]: missing or unknown severity %q", i, f.Severity)}
		}
	}
	return nil
}

// DecodeEnvelope parses an API response body and returns the enclosed
// report. A body without a "report" field is a decode error.
func DecodeEnvelope(data []byte) (*PolicyReport, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, &DecodeError{Err: err}
	}
	if env.Report == nil {
		return nil, &DecodeError{Err: fmt.Errorf("response has no report envelope")}
	}
	if err := checkSeverities(env.Report.Findings); err != nil {
		return nil, err
	}
	return env.Report, nil
}

// DecodeAny accepts either an envelope or a bare report. Report files
// saved from the API keep the envelope; files written by the analyzer CLI
// do not.
func DecodeAny(data []byte) (*PolicyReport, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, &DecodeError{Err: err}
	}
	if raw, ok := probe["report"]; ok {
		if _, hasInstance := probe["instance"]; !hasInstance {
			return DecodeReport(raw)
		}
	}
	return DecodeReport(data)
}
