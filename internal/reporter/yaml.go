package reporter

import (
	"io"

	"gopkg.in/yaml.v3"

	"github.com/ppiankov/pgsecui/internal/models"
)

// YAMLReporter writes reports as YAML, keeping the JSON field names
type YAMLReporter struct {
	writer io.Writer
}

// NewYAMLReporter creates a new YAML reporter
func NewYAMLReporter(writer io.Writer) *YAMLReporter {
	return &YAMLReporter{writer: writer}
}

// Generate writes the report, optionally limiting findings to filter
func (r *YAMLReporter) Generate(report *models.PolicyReport, filter models.FindingFilter) error {
	enc := yaml.NewEncoder(r.writer)
	enc.SetIndent(2)
	if err := enc.Encode(filtered(report, filter)); err != nil {
		return err
	}
	return enc.Close()
}
