package models

import "fmt"

// DecodeError means a document could not be turned into a PolicyReport:
// invalid JSON, a missing envelope, or an unknown severity.
type DecodeError struct {
	Op  string // upload, analyze, file; empty when decoded directly
	Err error
}

func (e *DecodeError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("decode report: %v", e.Err)
	}
	return fmt.Sprintf("%s: decode report: %v", e.Op, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
