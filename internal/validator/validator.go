package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/ppiankov/pgsecui/internal/models"
)

// ValidationError represents a validation failure
type ValidationError struct {
	Source string
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("Invalid report %s:\n  - %s", e.Source, strings.Join(e.Errors, "\n  - "))
}

// Validator checks reports beyond what decoding enforces: required
// fields, severity values and uniqueness of roles and tables.
type Validator struct {
	validate *validator.Validate
}

// New creates a new validator
func New() *Validator {
	v := validator.New()
	// Report field paths use the wire names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Validator{validate: v}
}

// ValidateReport decodes data (bare report or API envelope) and validates
// the result. Decode failures are returned as a ValidationError so callers
// get a single error type for rejected documents.
func (v *Validator) ValidateReport(source string, data []byte) (*models.PolicyReport, error) {
	report, err := models.DecodeAny(data)
	if err != nil {
		return nil, &ValidationError{
			Source: source,
			Errors: []string{fmt.Sprintf("Failed to parse JSON: %v", errors.Unwrap(err))},
		}
	}
	if err := v.Validate(source, report); err != nil {
		return nil, err
	}
	return report, nil
}

// Validate checks an already decoded report.
func (v *Validator) Validate(source string, report *models.PolicyReport) error {
	if report == nil {
		return &ValidationError{Source: source, Errors: []string{"Report is empty"}}
	}

	var errs []string

	if strings.TrimSpace(report.Instance.Version) == "" {
		errs = append(errs, "Missing required field: 'instance.version'")
	}

	if err := v.validate.Struct(report); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return err
		}
		for _, fe := range fieldErrs {
			errs = append(errs, describe(fe))
		}
	}

	errs = append(errs, duplicateRoles(report.Roles)...)
	errs = append(errs, duplicateTables(report.Tables)...)

	if len(errs) > 0 {
		return &ValidationError{Source: source, Errors: errs}
	}
	return nil
}

func describe(fe validator.FieldError) string {
	path := fe.Namespace()
	if i := strings.IndexByte(path, '.'); i >= 0 {
		path = path[i+1:]
	}
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("Missing required field: '%s'", path)
	case "oneof":
		return fmt.Sprintf("Field '%s' has invalid value '%v' (allowed: %s)", path, fe.Value(), fe.Param())
	default:
		return fmt.Sprintf("Field '%s' failed '%s' check", path, fe.Tag())
	}
}

func duplicateRoles(roles []models.RoleInfo) []string {
	var errs []string
	seen := make(map[string]int, len(roles))
	for i, role := range roles {
		if role.Name == "" {
			continue
		}
		if first, ok := seen[role.Name]; ok {
			errs = append(errs, fmt.Sprintf("Role '%s' appears more than once (roles[%d] and roles[%d])", role.Name, first, i))
			continue
		}
		seen[role.Name] = i
	}
	return errs
}

func duplicateTables(tables []models.TableInfo) []string {
	var errs []string
	seen := make(map[string]int, len(tables))
	for i, table := range tables {
		if table.Schema == "" || table.Name == "" {
			continue
		}
		key := table.QualifiedName()
		if first, ok := seen[key]; ok {
			errs = append(errs, fmt.Sprintf("Table '%s' appears more than once (tables[%d] and tables[%d])", key, first, i))
			continue
		}
		seen[key] = i
	}
	return errs
}
