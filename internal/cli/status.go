package cli

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"

	"github.com/spf13/cobra"
)

var statusFormat string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show configuration and analysis API health",
	Long: `Status displays the effective configuration and checks that the analysis
API answers GET /api/health.

Example:
  pgsecui status
  pgsecui status --format json`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusFormat, "format", "text",
		"output format: text or json")
}

type statusResult struct {
	API        statusAPI    `json:"api"`
	Config     statusConfig `json:"config"`
	ConfigFile string       `json:"config_file,omitempty"`
}

type statusAPI struct {
	URL       string `json:"url"`
	Reachable bool   `json:"reachable"`
	Service   string `json:"service,omitempty"`
	Version   string `json:"version,omitempty"`
	Error     string `json:"error,omitempty"`
}

type statusConfig struct {
	Format          string `json:"format"`
	RequestTimeout  string `json:"request_timeout"`
	PolicyFile      string `json:"policy_file,omitempty"`
	AnalyzeUpstream string `json:"analyze_upstream,omitempty"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	if statusFormat != "text" && statusFormat != "json" {
		return &ValidationError{Message: fmt.Sprintf("unsupported format: %s (use text or json)", statusFormat)}
	}

	c := currentConfig()
	result := statusResult{
		API: statusAPI{URL: c.APIURL},
		Config: statusConfig{
			Format:          c.Format,
			RequestTimeout:  c.RequestTimeout.String(),
			PolicyFile:      c.PolicyFile,
			AnalyzeUpstream: redactURL(c.Server.AnalyzeUpstream),
		},
		ConfigFile: configFile,
	}

	info, err := newClient().Health(commandContext(cmd))
	if err != nil {
		logVerbose("Health check failed: %v", err)
		result.API.Error = err.Error()
	} else {
		result.API.Reachable = true
		result.API.Service = info.Service
		result.API.Version = info.Version
	}

	if statusFormat == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	printStatus(result)
	return nil
}

func printStatus(r statusResult) {
	fmt.Println("pgsecui status")
	fmt.Println()
	if r.API.Reachable {
		fmt.Printf("  API:             %s (%s %s)\n", r.API.URL, r.API.Service, r.API.Version)
	} else {
		fmt.Printf("  API:             %s (unreachable: %s)\n", r.API.URL, r.API.Error)
	}
	fmt.Printf("  Format:          %s\n", r.Config.Format)
	fmt.Printf("  Request timeout: %s\n", r.Config.RequestTimeout)
	if r.Config.PolicyFile != "" {
		fmt.Printf("  Policy file:     %s\n", r.Config.PolicyFile)
	}
	if r.Config.AnalyzeUpstream != "" {
		fmt.Printf("  Analyze upstream: %s\n", r.Config.AnalyzeUpstream)
	}
	if r.ConfigFile != "" {
		fmt.Printf("  Config file:     %s\n", r.ConfigFile)
	}
}

// redactURL hides any password embedded in a configured URL.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	return u.Redacted()
}
