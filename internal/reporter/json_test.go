package reporter

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/ppiankov/pgsecui/internal/models"
)

func sampleReport() *models.PolicyReport {
	return &models.PolicyReport{
		Instance: models.InstanceInfo{
			Version: "PostgreSQL 16.2",
			Settings: models.NewSettings(
				models.Setting{Name: "ssl", Value: "off"},
				models.Setting{Name: "log_connections", Value: "on"},
			),
		},
		Roles: []models.RoleInfo{
			{Name: "app", Login: true, Grants: []string{"SELECT ON public.accounts"}},
			{Name: "postgres", Login: true, Superuser: true, BypassRLS: true, Grants: []string{}},
		},
		Tables: []models.TableInfo{
			{Schema: "public", Name: "accounts", RLSEnabled: true},
			{Schema: "public", Name: "audit_log"},
		},
		Findings: []models.Finding{
			{Severity: models.SeverityCritical, Code: "SUPERUSER_LOGIN", Message: "Role postgres is a superuser with login capability"},
			{Severity: models.SeverityWarning, Code: "NO_RLS", Message: "Table public.audit_log has no RLS enabled"},
			{Severity: models.SeverityInfo, Code: "SSL_DISABLED", Message: "SSL is disabled on this PostgreSQL instance"},
		},
	}
}

func TestJSONReporterGenerate(t *testing.T) {
	var buf bytes.Buffer
	r := NewJSONReporter(&buf, false)

	report := sampleReport()
	if err := r.Generate(report, models.FilterAll); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	decoded, err := models.DecodeReport(buf.Bytes())
	if err != nil {
		t.Fatalf("output is not a valid report: %v", err)
	}
	if len(decoded.Findings) != 3 {
		t.Errorf("expected 3 findings, got %d", len(decoded.Findings))
	}
	if got := decoded.Instance.Settings.Keys(); got[0] != "ssl" || got[1] != "log_connections" {
		t.Errorf("settings order lost: %v", got)
	}
}

func TestJSONReporterGenerateWireNames(t *testing.T) {
	var buf bytes.Buffer
	if err := NewJSONReporter(&buf, false).Generate(sampleReport(), ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := buf.String()
	for _, name := range []string{`"bypassrls"`, `"rls_enabled"`, `"superuser"`, `"grants"`} {
		if !strings.Contains(output, name) {
			t.Errorf("expected field %s in output", name)
		}
	}
}

func TestJSONReporterGenerateFiltered(t *testing.T) {
	var buf bytes.Buffer
	report := sampleReport()

	if err := NewJSONReporter(&buf, false).Generate(report, models.FilterWarning); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	decoded, err := models.DecodeReport(buf.Bytes())
	if err != nil {
		t.Fatalf("output is not a valid report: %v", err)
	}
	if len(decoded.Findings) != 1 || decoded.Findings[0].Code != "NO_RLS" {
		t.Errorf("expected only the warning, got %+v", decoded.Findings)
	}
	if len(report.Findings) != 3 {
		t.Error("filtering must not modify the input report")
	}
}

func TestJSONReporterGeneratePretty(t *testing.T) {
	var buf bytes.Buffer
	r := NewJSONReporter(&buf, true)

	if err := r.Generate(sampleReport(), models.FilterAll); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Pretty JSON has indentation
	if !strings.Contains(buf.String(), "\n  ") {
		t.Error("expected pretty-printed JSON with indentation")
	}
	if !strings.HasSuffix(buf.String(), "\n") {
		t.Error("expected trailing newline")
	}
}

func TestJSONReporterGenerateSummaryOnly(t *testing.T) {
	var buf bytes.Buffer
	r := NewJSONReporter(&buf, false)

	if err := r.GenerateSummaryOnly(sampleReport()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var result map[string]interface{}
	if err := json.Unmarshal([]byte(strings.TrimSpace(buf.String())), &result); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}

	checks := map[string]float64{
		"roles":           2,
		"dangerous_roles": 1,
		"tables":          2,
		"rls_enabled":     1,
		"rls_disabled":    1,
		"findings":        3,
	}
	for field, want := range checks {
		if got, ok := result[field].(float64); !ok || got != want {
			t.Errorf("%s: expected %v, got %v", field, want, result[field])
		}
	}

	bySev, ok := result["findings_by_severity"].(map[string]interface{})
	if !ok {
		t.Fatal("expected findings_by_severity object")
	}
	if bySev["critical"] != float64(1) || bySev["info"] != float64(1) {
		t.Errorf("unexpected severity counts: %v", bySev)
	}
}
