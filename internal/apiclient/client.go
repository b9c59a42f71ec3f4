package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ppiankov/pgsecui/internal/models"
)

// DefaultBaseURL is where the analysis service listens unless configured.
const DefaultBaseURL = "http://localhost:8080"

// Operation names, used in errors and as the default failure messages.
const (
	OpUpload  = "upload"
	OpAnalyze = "analyze"
	OpHealth  = "health"
)

// DefaultMessage returns the message shown when a failed response carries
// no "error" field.
func DefaultMessage(op string) string {
	switch op {
	case OpUpload:
		return "Upload failed"
	case OpAnalyze:
		return "Analysis failed"
	default:
		return "Request failed"
	}
}

// maxResponseBytes caps how much of a response body is read.
const maxResponseBytes = 32 << 20

// TransferError is a non-2xx response from the analysis service.
type TransferError struct {
	Op         string
	StatusCode int
	Message    string // from the body's "error" field, or DefaultMessage(Op)
}

func (e *TransferError) Error() string {
	return e.Message
}

// Client talks to the analysis service.
type Client struct {
	baseURL    string
	httpClient *http.Client
	requestID  func() string
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout bounds each request. Zero means no timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// New creates an API client. An empty baseURL falls back to DefaultBaseURL.
func New(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
		requestID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the service base URL without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// AnalyzeRequest is the body for POST /api/analyze.
type AnalyzeRequest struct {
	DSN string `json:"dsn"`
}

// Analyze asks the service to analyse the database behind dsn.
func (c *Client) Analyze(ctx context.Context, dsn string) (*models.PolicyReport, error) {
	body, err := json.Marshal(AnalyzeRequest{DSN: dsn})
	if err != nil {
		return nil, fmt.Errorf("marshal analyze request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/analyze", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.doReport(req, OpAnalyze)
}

// Upload sends a report file to the service, which parses it and echoes
// it back inside the response envelope.
func (c *Client) Upload(ctx context.Context, filename string, r io.Reader) (*models.PolicyReport, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	part, err := mw.CreateFormFile("report", filename)
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, fmt.Errorf("read report file: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/upload", &buf)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	return c.doReport(req, OpUpload)
}

// HealthInfo is the body of GET /api/health.
type HealthInfo struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Version string `json:"version"`
}

// Health checks that the service is reachable.
func (c *Client) Health(ctx context.Context) (*HealthInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/health", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	c.setRequestID(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("health check: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, &TransferError{
			Op:         OpHealth,
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("API error (HTTP %d)", resp.StatusCode),
		}
	}

	var info HealthInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &info, nil
}

func (c *Client) doReport(req *http.Request, op string) (*models.PolicyReport, error) {
	c.setRequestID(req)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%s: read response: %w", op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &TransferError{
			Op:         op,
			StatusCode: resp.StatusCode,
			Message:    errorMessage(data, op),
		}
	}

	report, err := models.DecodeEnvelope(data)
	if err != nil {
		if decErr, ok := err.(*models.DecodeError); ok {
			decErr.Op = op
		}
		return nil, err
	}
	return report, nil
}

func (c *Client) setRequestID(req *http.Request) {
	if c.requestID != nil {
		req.Header.Set("X-Request-Id", c.requestID())
	}
}

// errorMessage extracts the "error" field of a failure body. Bodies that
// are not JSON objects, or have no such field, yield the default.
func errorMessage(data []byte, op string) string {
	var errResp struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(data, &errResp); err != nil || errResp.Error == "" {
		return DefaultMessage(op)
	}
	return errResp.Error
}
