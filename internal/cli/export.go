package cli

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/pgsecui/internal/loader"
	"github.com/ppiankov/pgsecui/internal/models"
)

var (
	exportFormat string
	exportOutput string
	exportFilter string
)

var exportCmd = &cobra.Command{
	Use:   "export <file>",
	Short: "Export report findings for compliance tooling",
	Long: `Export writes the findings of a report in formats suitable for
spreadsheets, compliance evidence, and code scanning dashboards.

Supported formats:
  csv    Tabular format for spreadsheets and compliance tools
  json   Structured JSON for programmatic consumption
  sarif  SARIF 2.1.0 for GitHub Advanced Security and code scanning

Example:
  pgsecui export report.json --format csv -o findings.csv
  pgsecui export report.json --format sarif -o results.sarif
  pgsecui export report.json --format json --filter critical`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "csv",
		"output format: csv, json, or sarif")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "",
		"write output to file (default: stdout)")
	exportCmd.Flags().StringVar(&exportFilter, "filter", string(models.FilterAll),
		"findings filter: all, critical, or warning")
}

// FindingRecord is a single row in the findings export.
type FindingRecord struct {
	Instance string `json:"instance"`
	Severity string `json:"severity"`
	Code     string `json:"code"`
	Message  string `json:"message"`
	Status   string `json:"status"` // always "open"
}

// FindingsExport is the full export payload.
type FindingsExport struct {
	ExportedAt   string          `json:"exported_at"`
	Source       string          `json:"source"`
	FindingCount int             `json:"finding_count"`
	Summary      models.Summary  `json:"summary"`
	Records      []FindingRecord `json:"records"`
}

func runExport(cmd *cobra.Command, args []string) error {
	switch exportFormat {
	case "csv", "json", "sarif":
	default:
		return &ValidationError{Message: fmt.Sprintf("unsupported format: %s (use csv, json, or sarif)", exportFormat)}
	}

	filter, err := models.ParseFindingFilter(exportFilter)
	if err != nil {
		return &ValidationError{Message: err.Error()}
	}

	source := args[0]
	report, err := loader.ReadFile(source)
	if err != nil {
		return err
	}

	export := buildFindingsExport(report, filter, filepath.Base(source), time.Now())
	logVerbose("Exporting %d findings as %s", export.FindingCount, exportFormat)

	var writer io.Writer = os.Stdout
	if exportOutput != "" {
		f, err := os.Create(exportOutput)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer func() { _ = f.Close() }()
		writer = f
	}

	switch exportFormat {
	case "csv":
		return writeCSV(writer, export)
	case "json":
		return writeExportJSON(writer, export)
	default:
		return writeSARIF(writer, export)
	}
}

func buildFindingsExport(report *models.PolicyReport, filter models.FindingFilter, source string, now time.Time) *FindingsExport {
	findings := models.ApplyFilter(report.Findings, filter)
	records := make([]FindingRecord, 0, len(findings))

	for _, f := range findings {
		records = append(records, FindingRecord{
			Instance: report.Instance.Version,
			Severity: string(f.Severity),
			Code:     f.Code,
			Message:  f.Message,
			Status:   "open",
		})
	}

	// Sort by severity (critical first), then code. Stable keeps report
	// order within a code.
	sevOrder := map[string]int{}
	for i, s := range models.Severities {
		sevOrder[string(s)] = i
	}
	sort.SliceStable(records, func(i, j int) bool {
		si, sj := sevOrder[records[i].Severity], sevOrder[records[j].Severity]
		if si != sj {
			return si < sj
		}
		return records[i].Code < records[j].Code
	})

	return &FindingsExport{
		ExportedAt:   now.UTC().Format(time.RFC3339),
		Source:       source,
		FindingCount: len(records),
		Summary:      models.Summarize(report),
		Records:      records,
	}
}

func writeCSV(w io.Writer, export *FindingsExport) error {
	writer := csv.NewWriter(w)

	header := []string{"instance", "severity", "code", "message", "status"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, r := range export.Records {
		row := []string{r.Instance, r.Severity, r.Code, r.Message, r.Status}
		if err := writer.Write(row); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

func writeExportJSON(w io.Writer, export *FindingsExport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(export)
}

// SARIF 2.1.0 output for GitHub Advanced Security integration.
// Minimal structures, only what's needed for valid SARIF.

type sarifLog struct {
	Schema  string     `json:"$schema"`
	Version string     `json:"version"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool    sarifTool     `json:"tool"`
	Results []sarifResult `json:"results"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name    string      `json:"name"`
	Version string      `json:"version"`
	Rules   []sarifRule `json:"rules"`
}

type sarifRule struct {
	ID               string             `json:"id"`
	ShortDescription sarifMessage       `json:"shortDescription"`
	DefaultConfig    sarifDefaultConfig `json:"defaultConfiguration"`
}

type sarifDefaultConfig struct {
	Level string `json:"level"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifResult struct {
	RuleID    string          `json:"ruleId"`
	Level     string          `json:"level"`
	Message   sarifMessage    `json:"message"`
	Locations []sarifLocation `json:"locations"`
}

type sarifLocation struct {
	PhysicalLocation sarifPhysical `json:"physicalLocation"`
}

type sarifPhysical struct {
	ArtifactLocation sarifArtifact `json:"artifactLocation"`
}

type sarifArtifact struct {
	URI string `json:"uri"`
}

func writeSARIF(w io.Writer, export *FindingsExport) error {
	rulesMap := map[string]sarifRule{}
	results := make([]sarifResult, 0, len(export.Records))

	for _, r := range export.Records {
		if existing, exists := rulesMap[r.Code]; !exists || levelRank(sarifLevel(r.Severity)) < levelRank(existing.DefaultConfig.Level) {
			rulesMap[r.Code] = sarifRule{
				ID:               r.Code,
				ShortDescription: sarifMessage{Text: r.Code},
				DefaultConfig:    sarifDefaultConfig{Level: sarifLevel(r.Severity)},
			}
		}

		results = append(results, sarifResult{
			RuleID:  r.Code,
			Level:   sarifLevel(r.Severity),
			Message: sarifMessage{Text: r.Message},
			Locations: []sarifLocation{{
				PhysicalLocation: sarifPhysical{
					ArtifactLocation: sarifArtifact{URI: export.Source},
				},
			}},
		})
	}

	rules := make([]sarifRule, 0, len(rulesMap))
	for _, r := range rulesMap {
		rules = append(rules, r)
	}
	sort.Slice(rules, func(i, j int) bool { return rules[i].ID < rules[j].ID })

	log := sarifLog{
		Schema:  "https://raw.githubusercontent.com/oasis-tcs/sarif-spec/master/Schemata/sarif-schema-2.1.0.json",
		Version: "2.1.0",
		Runs: []sarifRun{{
			Tool: sarifTool{
				Driver: sarifDriver{
					Name:    "pgsecui",
					Version: version,
					Rules:   rules,
				},
			},
			Results: results,
		}},
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(log)
}

func sarifLevel(severity string) string {
	switch models.Severity(severity) {
	case models.SeverityCritical:
		return "error"
	case models.SeverityWarning:
		return "warning"
	default:
		return "note"
	}
}

// levelRank orders SARIF levels, most severe first. A rule takes the
// level of its most severe finding.
func levelRank(level string) int {
	switch level {
	case "error":
		return 0
	case "warning":
		return 1
	default:
		return 2
	}
}
