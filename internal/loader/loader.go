package loader

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ppiankov/pgsecui/internal/apiclient"
	"github.com/ppiankov/pgsecui/internal/models"
)

// MaxFileSize bounds report files read from disk.
const MaxFileSize = 10 << 20

// OpFile labels errors from reading a local report file.
const OpFile = "file"

// Source is the remote side of the loader. *apiclient.Client satisfies it.
type Source interface {
	Upload(ctx context.Context, filename string, r io.Reader) (*models.PolicyReport, error)
	Analyze(ctx context.Context, dsn string) (*models.PolicyReport, error)
}

// Config holds loader settings.
type Config struct {
	Verbose bool
	Log     io.Writer // nil discards
}

// Loader obtains PolicyReports for the views, either through the analysis
// service or from a local file.
type Loader struct {
	source Source
	config Config
}

// New creates a loader backed by source.
func New(source Source, config Config) *Loader {
	if config.Log == nil {
		config.Log = io.Discard
	}
	return &Loader{
		source: source,
		config: config,
	}
}

// Upload reads the report file at path and posts it to the upload
// endpoint. Bytes that are not JSON fail locally with a DecodeError and
// nothing is sent.
func (l *Loader) Upload(ctx context.Context, path string) (*models.PolicyReport, error) {
	data, err := readLimited(path)
	if err != nil {
		return nil, err
	}
	if !json.Valid(data) {
		return nil, &models.DecodeError{
			Op:  apiclient.OpUpload,
			Err: fmt.Errorf("%s is not a JSON document", filepath.Base(path)),
		}
	}

	l.logf("Uploading %s (%d bytes)", filepath.Base(path), len(data))
	report, err := l.source.Upload(ctx, filepath.Base(path), bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	l.logLoaded(report)
	return report, nil
}

// Analyze requests server-side analysis of the database behind dsn. Only an
// empty DSN is rejected locally; the analysis service decides whether the
// rest is usable. The DSN is only ever logged masked.
func (l *Loader) Analyze(ctx context.Context, dsn string) (*models.PolicyReport, error) {
	masked, err := MaskDSN(dsn)
	if err != nil {
		return nil, err
	}

	l.logf("Requesting analysis of %s", masked)
	report, err := l.source.Analyze(ctx, dsn)
	if err != nil {
		return nil, err
	}
	l.logLoaded(report)
	return report, nil
}

// ReadFile decodes a report from disk without contacting the service.
// Both bare reports and saved API envelopes are accepted.
func ReadFile(path string) (*models.PolicyReport, error) {
	data, err := readLimited(path)
	if err != nil {
		return nil, err
	}
	report, err := models.DecodeAny(data)
	if err != nil {
		var decErr *models.DecodeError
		if errors.As(err, &decErr) {
			decErr.Op = OpFile
		}
		return nil, err
	}
	return report, nil
}

func readLimited(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open report file: %w", err)
	}
	defer func() { _ = f.Close() }()

	data, err := io.ReadAll(io.LimitReader(f, MaxFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read report file: %w", err)
	}
	if len(data) > MaxFileSize {
		return nil, fmt.Errorf("report file %s exceeds %d bytes", filepath.Base(path), MaxFileSize)
	}
	return data, nil
}

// DSNError is a connection string rejected before any request is made.
type DSNError struct {
	Err error
}

func (e *DSNError) Error() string {
	return fmt.Sprintf("invalid connection string: %v", e.Err)
}

func (e *DSNError) Unwrap() error {
	return e.Err
}

// UnparsedDSN is logged in place of a DSN that could not be masked.
const UnparsedDSN = "postgres://<unparsed>"

// MaskDSN returns dsn (URL or keyword/value form) as a URL with the password
// replaced by ***. It fails only for an empty DSN.
func MaskDSN(dsn string) (string, error) {
	if strings.TrimSpace(dsn) == "" {
		return "", &DSNError{Err: errors.New("empty")}
	}
	if cfg, err := pgconn.ParseConfig(dsn); err == nil {
		db := cfg.Database
		if db != "" {
			db = "/" + db
		}
		return fmt.Sprintf("postgres://%s:***@%s:%d%s", cfg.User, cfg.Host, cfg.Port, db), nil
	}

	// ParseConfig also reads sslrootcert and friends, which may exist only
	// on the analysis host.
	u, err := url.Parse(strings.TrimSpace(dsn))
	if err != nil || (u.Scheme != "postgres" && u.Scheme != "postgresql") || u.Host == "" {
		return UnparsedDSN, nil
	}
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), "***")
	}
	// the query may carry password=
	u.RawQuery = ""
	u.Fragment = ""
	return u.String(), nil
}

func (l *Loader) logLoaded(r *models.PolicyReport) {
	l.logf("Loaded report: %d roles, %d tables, %d findings", len(r.Roles), len(r.Tables), len(r.Findings))
}

func (l *Loader) logf(format string, args ...interface{}) {
	if l.config.Verbose {
		_, _ = fmt.Fprintf(l.config.Log, "[INFO] "+format+"\n", args...)
	}
}
