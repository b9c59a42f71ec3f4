package reporter

import (
	"encoding/json"
	"io"

	"github.com/ppiankov/pgsecui/internal/models"
)

// JSONReporter generates machine-readable JSON reports
type JSONReporter struct {
	writer io.Writer
	pretty bool
}

// NewJSONReporter creates a new JSON reporter
func NewJSONReporter(writer io.Writer, pretty bool) *JSONReporter {
	return &JSONReporter{
		writer: writer,
		pretty: pretty,
	}
}

// Generate writes the report in its wire format, optionally limiting the
// findings to those passing filter.
func (r *JSONReporter) Generate(report *models.PolicyReport, filter models.FindingFilter) error {
	return r.write(filtered(report, filter))
}

// GenerateSummaryOnly writes just the headline counts
func (r *JSONReporter) GenerateSummaryOnly(report *models.PolicyReport) error {
	return r.write(models.Summarize(report))
}

func (r *JSONReporter) write(v interface{}) error {
	var data []byte
	var err error

	if r.pretty {
		data, err = json.MarshalIndent(v, "", "  ")
	} else {
		data, err = json.Marshal(v)
	}

	if err != nil {
		return err
	}

	_, err = r.writer.Write(data)
	if err != nil {
		return err
	}

	// Add trailing newline for terminal output
	_, err = r.writer.Write([]byte("\n"))
	return err
}

// filtered returns report itself for the all filter, otherwise a shallow
// copy whose findings pass filter. The input is never modified.
func filtered(report *models.PolicyReport, filter models.FindingFilter) *models.PolicyReport {
	if filter == "" || filter == models.FilterAll {
		return report
	}
	cp := *report
	cp.Findings = models.ApplyFilter(report.Findings, filter)
	return &cp
}
