// Package api serves the report endpoints that the dashboard talks to:
// upload of a report file, live analysis and a health probe.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ppiankov/pgsecui/internal/apiclient"
	"github.com/ppiankov/pgsecui/internal/models"
	"github.com/ppiankov/pgsecui/internal/validator"
)

// ServiceName is reported by /api/health.
const ServiceName = "PG SecureLab API"

// Analyzer performs live analysis of a database. *apiclient.Client
// satisfies it when forwarding to another service.
type Analyzer interface {
	Analyze(ctx context.Context, dsn string) (*models.PolicyReport, error)
}

// Options configures the router.
type Options struct {
	Logger         *slog.Logger
	Version        string
	AllowedOrigins []string
	MaxUploadBytes int64
	RateLimit      int           // requests per RateWindow per IP; 0 disables
	RateWindow     time.Duration // defaults to a minute
	Analyzer       Analyzer      // nil answers 501 on /api/analyze
}

type handler struct {
	logger         *slog.Logger
	version        string
	maxUploadBytes int64
	analyzer       Analyzer
	validator      *validator.Validator
}

// NewRouter builds the HTTP handler for the API.
func NewRouter(opts Options) http.Handler {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = DefaultRequestBodyLimitBytes
	}
	if opts.Version == "" {
		opts.Version = "dev"
	}

	h := &handler{
		logger:         opts.Logger,
		version:        opts.Version,
		maxUploadBytes: opts.MaxUploadBytes,
		analyzer:       opts.Analyzer,
		validator:      validator.New(),
	}

	r := chi.NewRouter()
	r.Use(
		middleware.RealIP,
		middleware.RequestID,
		RequestLogger(opts.Logger),
		middleware.Recoverer,
		SecurityHeaders(opts.Logger),
		CORS(opts.AllowedOrigins),
	)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.handleHealth)
		r.Group(func(r chi.Router) {
			r.Use(RateLimitPerIP(opts.RateLimit, opts.RateWindow))
			r.Use(BodySizeLimit(opts.MaxUploadBytes))
			r.Post("/upload", h.handleUpload)
			r.Post("/analyze", h.handleAnalyze)
		})
	})

	return r
}

func (h *handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, apiclient.HealthInfo{
		Status:  "ok",
		Service: ServiceName,
		Version: h.version,
	})
}

func (h *handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "File too large")
			return
		}
		writeError(w, http.StatusBadRequest, "No file uploaded")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("report")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No file uploaded")
		return
	}
	defer func() { _ = file.Close() }()

	if err := ValidateUploadFilename(header.Filename); err != nil {
		switch {
		case errors.Is(err, ErrNoFile):
			writeError(w, http.StatusBadRequest, "No file uploaded")
		case errors.Is(err, ErrNotJSON):
			writeError(w, http.StatusBadRequest, "Only JSON files are allowed")
		default:
			writeError(w, http.StatusBadRequest, err.Error())
		}
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read file")
		return
	}

	report, err := models.DecodeAny(data)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid JSON format: %v", errors.Unwrap(err)))
		return
	}

	if err := h.validator.Validate(header.Filename, report); err != nil {
		writeError(w, http.StatusUnprocessableEntity, validationMessage(err))
		return
	}

	h.logger.Info("report uploaded",
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.String("filename", header.Filename),
		slog.Int("findings", len(report.Findings)),
	)
	writeJSON(w, http.StatusOK, models.Envelope{Report: report})
}

func (h *handler) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req apiclient.AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	masked, err := ValidateDSN(req.DSN)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if h.analyzer == nil {
		writeError(w, http.StatusNotImplemented, "Analysis is not available: no analysis service configured")
		return
	}

	reqID := middleware.GetReqID(r.Context())
	h.logger.Info("analysis requested", slog.String("request_id", reqID), slog.String("dsn", masked))

	report, err := h.analyzer.Analyze(r.Context(), req.DSN)
	if err != nil {
		h.logger.Error("analysis failed", slog.String("request_id", reqID), slog.String("dsn", masked), slog.Any("error", err))

		var transferErr *apiclient.TransferError
		if errors.As(err, &transferErr) {
			writeError(w, http.StatusBadGateway, transferErr.Message)
			return
		}
		writeError(w, http.StatusBadGateway, "Analysis failed")
		return
	}

	writeJSON(w, http.StatusOK, models.Envelope{Report: report})
}

func validationMessage(err error) string {
	var vErr *validator.ValidationError
	if !errors.As(err, &vErr) {
		return err.Error()
	}
	msg := "Invalid report"
	for i, e := range vErr.Errors {
		if i == 0 {
			msg += ": " + e
			continue
		}
		msg += "; " + e
	}
	return msg
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, models.Envelope{Error: message})
}

// Server runs the router until its context is cancelled.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer wraps handler in an http.Server listening on addr.
func NewServer(addr string, handler http.Handler, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("api server listening", slog.String("addr", s.httpServer.Addr))
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info("api server shutting down")
		return s.httpServer.Shutdown(shutdownCtx)
	}
}
