package cli

import (
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ppiankov/pgsecui/internal/apiclient"
	"github.com/ppiankov/pgsecui/internal/loader"
	"github.com/ppiankov/pgsecui/internal/tui"
)

var (
	viewFlags    renderFlags
	uploadFlags  renderFlags
	analyzeFlags renderFlags
	analyzeDSN   string
)

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Open the interactive dashboard with no report loaded",
	Long: `Dashboard opens the interactive shell. Press u to upload a report file or
a to analyze a database; the result replaces the current report.

Example:
  pgsecui dashboard
  pgsecui dashboard --api-url http://analyzer:8080`,
	Args: cobra.NoArgs,
	RunE: runDashboardCmd,
}

var viewCmd = &cobra.Command{
	Use:   "view <file>",
	Short: "Display a report file without contacting the API",
	Long: `View decodes a local report (bare or wrapped in {"report": ...}) and
displays it. The dashboard is used on a terminal, plain text otherwise.

Example:
  pgsecui view report.json
  pgsecui view report.json --tab findings --filter critical
  pgsecui view report.json --format text --section roles`,
	Args: cobra.ExactArgs(1),
	RunE: runView,
}

var uploadCmd = &cobra.Command{
	Use:   "upload <file>",
	Short: "Upload a report file to the API and display the result",
	Long: `Upload sends a report file to POST /api/upload and displays the report
the service returns.

Example:
  pgsecui upload report.json
  pgsecui upload report.json --format json`,
	Args: cobra.ExactArgs(1),
	RunE: runUpload,
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze a live database through the API and display the result",
	Long: `Analyze sends a connection string to POST /api/analyze and displays the
resulting report. The password is never logged. Without --dsn the value is
read from PGSECUI_DSN, or prompted for on a terminal.

Example:
  pgsecui analyze --dsn postgres://auditor:secret@db:5432/app
  PGSECUI_DSN=... pgsecui analyze --format json`,
	Args: cobra.NoArgs,
	RunE: runAnalyze,
}

func init() {
	viewFlags.register(viewCmd)
	uploadFlags.register(uploadCmd)
	analyzeFlags.register(analyzeCmd)
	analyzeCmd.Flags().StringVar(&analyzeDSN, "dsn", "",
		"PostgreSQL connection string (default: $PGSECUI_DSN or prompt)")
}

func runDashboardCmd(cmd *cobra.Command, args []string) error {
	if !stdoutIsTerminal() {
		return &ValidationError{Message: "dashboard requires an interactive terminal"}
	}
	logVerbose("Opening dashboard against %s", currentConfig().APIURL)
	return runDashboard(commandContext(cmd), newLoader(), tui.Options{})
}

func runView(cmd *cobra.Command, args []string) error {
	path := args[0]
	logVerbose("Reading report from %s", path)

	report, err := loader.ReadFile(path)
	if err != nil {
		return err
	}
	logDebug("Decoded %d roles, %d tables, %d findings", len(report.Roles), len(report.Tables), len(report.Findings))

	return renderReport(commandContext(cmd), report, viewFlags, newLoader())
}

func runUpload(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	ldr := newLoader()

	report, err := ldr.Upload(ctx, args[0])
	if err != nil {
		logError("%s", loader.Message(apiclient.OpUpload, err))
		return err
	}

	return renderReport(ctx, report, uploadFlags, ldr)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)

	dsn, err := resolveDSN()
	if err != nil {
		return err
	}

	ldr := newLoader()
	report, err := ldr.Analyze(ctx, dsn)
	if err != nil {
		logError("%s", loader.Message(apiclient.OpAnalyze, err))
		return err
	}

	return renderReport(ctx, report, analyzeFlags, ldr)
}

// resolveDSN takes the connection string from --dsn, then PGSECUI_DSN,
// then an interactive prompt.
func resolveDSN() (string, error) {
	if dsn := strings.TrimSpace(analyzeDSN); dsn != "" {
		return dsn, nil
	}
	if dsn := strings.TrimSpace(os.Getenv("PGSECUI_DSN")); dsn != "" {
		logDebug("Using connection string from PGSECUI_DSN")
		return dsn, nil
	}
	if !stdinIsTerminal() {
		return "", &ValidationError{Message: "--dsn is required when not running in a terminal"}
	}
	return promptDSN()
}
