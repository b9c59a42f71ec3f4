package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ppiankov/pgsecui/internal/models"
	"github.com/ppiankov/pgsecui/internal/validator"
)

var validateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Validate a report file strictly",
	Long: `Validate checks that a JSON report decodes and is internally consistent:
required fields are present, severities are known, role names and
(schema, table) pairs are unique.

Returns exit 0 if valid, exit 2 if invalid with details on stderr.

Example:
  pgsecui validate report.json
  curl -s .../api/upload -F report=@r.json | pgsecui validate /dev/stdin`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	filePath := args[0]

	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	report, err := validator.New().ValidateReport(filePath, data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "INVALID: %v\n", err)
		return err
	}

	s := models.Summarize(report)
	fmt.Printf("VALID: %d roles, %d tables, %d findings\n", s.Roles, s.Tables, s.Findings)
	return nil
}
