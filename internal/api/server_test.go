package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/pgsecui/internal/apiclient"
	"github.com/ppiankov/pgsecui/internal/models"
)

const validReportJSON = `{
  "instance": {"version": "PostgreSQL 16.2", "settings": {"ssl": "off"}},
  "roles": [{"name": "postgres", "login": true, "superuser": true, "bypassrls": true, "grants": []}],
  "tables": [{"schema": "public", "name": "accounts", "rls_enabled": false}],
  "findings": [{"severity": "critical", "code": "SUPERUSER_LOGIN", "message": "Role postgres is a superuser with login capability"}]
}`

type fakeAnalyzer struct {
	gotDSN string
	report *models.PolicyReport
	err    error
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, dsn string) (*models.PolicyReport, error) {
	f.gotDSN = dsn
	return f.report, f.err
}

func newTestServer(t *testing.T, opts Options) *httptest.Server {
	t.Helper()
	if opts.Logger == nil {
		opts.Logger = discardLogger()
	}
	srv := httptest.NewServer(NewRouter(opts))
	t.Cleanup(srv.Close)
	return srv
}

func multipartBody(t *testing.T, field, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func decodeEnvelope(t *testing.T, resp *http.Response) models.Envelope {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()
	var env models.Envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return env
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, Options{Version: "1.0.0"})

	info, err := apiclient.New(srv.URL).Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", info.Status)
	assert.Equal(t, ServiceName, info.Service)
	assert.Equal(t, "1.0.0", info.Version)
}

func TestHealthSetsRequestIDAndSecurityHeaders(t *testing.T) {
	srv := newTestServer(t, Options{})

	resp, err := http.Get(srv.URL + "/api/health")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", resp.Header.Get("X-Frame-Options"))
}

func TestUploadRoundTripThroughClient(t *testing.T) {
	srv := newTestServer(t, Options{})

	report, err := apiclient.New(srv.URL).Upload(context.Background(), "report.json", strings.NewReader(validReportJSON))
	require.NoError(t, err)
	require.Len(t, report.Roles, 1)
	assert.Equal(t, "postgres", report.Roles[0].Name)
	assert.Equal(t, models.SeverityCritical, report.Findings[0].Severity)
	ssl, _ := report.Instance.Settings.Get("ssl")
	assert.Equal(t, "off", ssl)
}

func TestUploadRejections(t *testing.T) {
	tests := []struct {
		name       string
		field      string
		filename   string
		content    string
		wantStatus int
		wantError  string
	}{
		{
			name:       "wrong field",
			field:      "file",
			filename:   "report.json",
			content:    validReportJSON,
			wantStatus: http.StatusBadRequest,
			wantError:  "No file uploaded",
		},
		{
			name:       "not json extension",
			field:      "report",
			filename:   "report.txt",
			content:    validReportJSON,
			wantStatus: http.StatusBadRequest,
			wantError:  "Only JSON files are allowed",
		},
		{
			name:       "invalid json",
			field:      "report",
			filename:   "report.json",
			content:    "{not json",
			wantStatus: http.StatusBadRequest,
			wantError:  "Invalid JSON format: ",
		},
		{
			name:       "unknown severity",
			field:      "report",
			filename:   "report.json",
			content:    `{"instance":{"version":"16"},"findings":[{"severity":"fatal","code":"X","message":""}]}`,
			wantStatus: http.StatusBadRequest,
			wantError:  "Invalid JSON format: unknown severity",
		},
		{
			name:       "duplicate roles",
			field:      "report",
			filename:   "report.json",
			content:    `{"instance":{"version":"16"},"roles":[{"name":"a"},{"name":"a"}]}`,
			wantStatus: http.StatusUnprocessableEntity,
			wantError:  "Invalid report: Role 'a' appears more than once",
		},
	}

	srv := newTestServer(t, Options{})
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			body, contentType := multipartBody(t, tt.field, tt.filename, tt.content)
			resp, err := http.Post(srv.URL+"/api/upload", contentType, body)
			require.NoError(t, err)

			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			env := decodeEnvelope(t, resp)
			assert.Nil(t, env.Report)
			assert.True(t, strings.HasPrefix(env.Error, tt.wantError), "error %q should start with %q", env.Error, tt.wantError)
		})
	}
}

func TestUploadNotMultipart(t *testing.T) {
	srv := newTestServer(t, Options{})

	resp, err := http.Post(srv.URL+"/api/upload", "application/json", strings.NewReader(validReportJSON))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "No file uploaded", decodeEnvelope(t, resp).Error)
}

func TestUploadTooLarge(t *testing.T) {
	srv := newTestServer(t, Options{MaxUploadBytes: 256})

	big := `{"instance":{"version":"` + strings.Repeat("x", 1024) + `"}}`
	body, contentType := multipartBody(t, "report", "report.json", big)
	resp, err := http.Post(srv.URL+"/api/upload", contentType, body)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.NotEqual(t, http.StatusOK, resp.StatusCode)
}

func TestAnalyzeNotConfigured(t *testing.T) {
	srv := newTestServer(t, Options{})

	_, err := apiclient.New(srv.URL).Analyze(context.Background(), "postgres://u:p@localhost:5432/db")
	var transferErr *apiclient.TransferError
	require.ErrorAs(t, err, &transferErr)
	assert.Equal(t, http.StatusNotImplemented, transferErr.StatusCode)
	assert.Contains(t, transferErr.Message, "not available")
}

func TestAnalyzeForwardsToAnalyzer(t *testing.T) {
	fake := &fakeAnalyzer{report: &models.PolicyReport{Instance: models.InstanceInfo{Version: "PostgreSQL 15.4"}}}
	srv := newTestServer(t, Options{Analyzer: fake})

	report, err := apiclient.New(srv.URL).Analyze(context.Background(), "postgres://u:p@localhost:5432/db")
	require.NoError(t, err)
	assert.Equal(t, "PostgreSQL 15.4", report.Instance.Version)
	assert.Equal(t, "postgres://u:p@localhost:5432/db", fake.gotDSN)
}

func TestAnalyzeForwardsDSNWithRemoteCertPaths(t *testing.T) {
	fake := &fakeAnalyzer{report: &models.PolicyReport{}}
	srv := newTestServer(t, Options{Analyzer: fake})

	dsn := "host=db.internal user=auditor dbname=app sslmode=verify-full sslrootcert=/nonexistent/ca.pem"
	_, err := apiclient.New(srv.URL).Analyze(context.Background(), dsn)
	require.NoError(t, err)
	assert.Equal(t, dsn, fake.gotDSN)
}

func TestAnalyzeUpstreamFailure(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantMsg string
	}{
		{
			name:    "transfer error keeps message",
			err:     &apiclient.TransferError{Op: apiclient.OpAnalyze, StatusCode: 500, Message: "connection refused"},
			wantMsg: "connection refused",
		},
		{
			name:    "other error",
			err:     errors.New("dial tcp: i/o timeout"),
			wantMsg: "Analysis failed",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, Options{Analyzer: &fakeAnalyzer{err: tt.err}})

			_, err := apiclient.New(srv.URL).Analyze(context.Background(), "postgres://u:p@localhost:5432/db")
			var transferErr *apiclient.TransferError
			require.ErrorAs(t, err, &transferErr)
			assert.Equal(t, http.StatusBadGateway, transferErr.StatusCode)
			assert.Equal(t, tt.wantMsg, transferErr.Message)
		})
	}
}

func TestAnalyzeBadRequests(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantError string
	}{
		{name: "not json", body: "dsn=x", wantError: "Invalid request body"},
		{name: "empty dsn", body: `{"dsn":""}`, wantError: "invalid connection string: empty"},
	}

	fake := &fakeAnalyzer{}
	srv := newTestServer(t, Options{Analyzer: fake})
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Post(srv.URL+"/api/analyze", "application/json", strings.NewReader(tt.body))
			require.NoError(t, err)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, tt.wantError, decodeEnvelope(t, resp).Error)
		})
	}
	assert.Empty(t, fake.gotDSN, "invalid requests must not reach the analyzer")
}

func TestAnalyzeRateLimited(t *testing.T) {
	srv := newTestServer(t, Options{RateLimit: 1, Analyzer: &fakeAnalyzer{report: &models.PolicyReport{}}})
	client := apiclient.New(srv.URL)

	_, err := client.Analyze(context.Background(), "postgres://u:p@localhost/db")
	require.NoError(t, err)

	_, err = client.Analyze(context.Background(), "postgres://u:p@localhost/db")
	var transferErr *apiclient.TransferError
	require.ErrorAs(t, err, &transferErr)
	assert.Equal(t, http.StatusTooManyRequests, transferErr.StatusCode)
	assert.Equal(t, "Rate limit exceeded", transferErr.Message)
}

func TestServerRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := NewServer("127.0.0.1:0", NewRouter(Options{}), discardLogger())

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	cancel()

	assert.NoError(t, <-done)
}
