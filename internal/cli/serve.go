package cli

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/ppiankov/pgsecui/internal/api"
	"github.com/ppiankov/pgsecui/internal/apiclient"
)

var serveListen string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the local report API",
	Long: `Serve runs the HTTP API the dashboard talks to:

  POST /api/upload   multipart field "report", a .json report file
  POST /api/analyze  {"dsn": "..."}, forwarded to server.analyze_upstream
  GET  /api/health   service status

Uploaded reports are validated strictly before they are echoed back. Without
an analyze_upstream, /api/analyze answers 501.

Example:
  pgsecui serve
  pgsecui serve --listen 127.0.0.1:9090
  PGSECUI_SERVER_ANALYZE_UPSTREAM=http://analyzer:8080 pgsecui serve`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveListen, "listen", "",
		"listen address (default from server.listen, :8080)")
}

func runServe(cmd *cobra.Command, args []string) error {
	c := currentConfig()

	level := slog.LevelInfo
	if c.Debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	addr := c.Server.Listen
	if serveListen != "" {
		addr = serveListen
	}

	opts := api.Options{
		Logger:         logger,
		Version:        version,
		AllowedOrigins: c.Server.AllowedOrigins,
		MaxUploadBytes: c.Server.MaxUploadBytes,
		RateLimit:      c.Server.RateLimit,
	}
	if upstream := c.Server.AnalyzeUpstream; upstream != "" {
		var clientOpts []apiclient.Option
		if c.RequestTimeout > 0 {
			clientOpts = append(clientOpts, apiclient.WithTimeout(c.RequestTimeout))
		}
		opts.Analyzer = apiclient.New(upstream, clientOpts...)
		logger.Info("forwarding analysis", slog.String("upstream", upstream))
	} else {
		logger.Warn("no analyze_upstream configured, /api/analyze will answer 501")
	}

	return api.NewServer(addr, api.NewRouter(opts), logger).Run(commandContext(cmd))
}
