package api

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ppiankov/pgsecui/internal/loader"
)

const (
	// MaxFilenameLength prevents pathological upload names.
	MaxFilenameLength = 255

	// MaxDSNLength bounds the connection string accepted by /api/analyze.
	MaxDSNLength = 4096
)

var (
	ErrNoFile  = errors.New("no file uploaded")
	ErrNotJSON = errors.New("only JSON files are allowed")
)

// ValidateUploadFilename accepts only .json report files.
func ValidateUploadFilename(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrNoFile
	}
	if len(name) > MaxFilenameLength {
		return fmt.Errorf("filename exceeds %d characters", MaxFilenameLength)
	}
	if !strings.EqualFold(filepath.Ext(name), ".json") {
		return ErrNotJSON
	}
	return nil
}

// ValidateDSN rejects empty and oversized connection strings and returns
// the masked form for logging. Anything else is left to the analyzer.
func ValidateDSN(dsn string) (string, error) {
	dsn = strings.TrimSpace(dsn)
	if len(dsn) > MaxDSNLength {
		return "", fmt.Errorf("connection string exceeds %d characters", MaxDSNLength)
	}
	return loader.MaskDSN(dsn)
}
