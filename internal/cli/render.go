package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/ppiankov/pgsecui/internal/apiclient"
	"github.com/ppiankov/pgsecui/internal/config"
	"github.com/ppiankov/pgsecui/internal/loader"
	"github.com/ppiankov/pgsecui/internal/models"
	"github.com/ppiankov/pgsecui/internal/reporter"
	"github.com/ppiankov/pgsecui/internal/tui"
)

// renderFlags are shared by the commands that display a report.
type renderFlags struct {
	format   string
	filter   string
	tab      string
	sections []string
}

func (f *renderFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.format, "format", "",
		"output format: tui, text, json, or yaml (default from config)")
	cmd.Flags().StringVar(&f.filter, "filter", string(models.FilterAll),
		"findings filter: all, critical, or warning")
	cmd.Flags().StringVar(&f.tab, "tab", "overview",
		"initial tab in the dashboard: overview, roles, or findings")
	cmd.Flags().StringSliceVar(&f.sections, "section", nil,
		"text output sections: overview, roles, findings (default: all)")
}

// stdoutIsTerminal is swapped in tests.
var stdoutIsTerminal = func() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

var runDashboard = tui.Run

func commandContext(cmd *cobra.Command) context.Context {
	if cmd != nil && cmd.Context() != nil {
		return cmd.Context()
	}
	return context.Background()
}

func currentConfig() *config.Config {
	if cfg == nil {
		return config.DefaultConfig()
	}
	return cfg
}

func newClient() *apiclient.Client {
	c := currentConfig()
	var opts []apiclient.Option
	if c.RequestTimeout > 0 {
		opts = append(opts, apiclient.WithTimeout(c.RequestTimeout))
	}
	return apiclient.New(c.APIURL, opts...)
}

func newLoader() *loader.Loader {
	c := currentConfig()
	return loader.New(newClient(), loader.Config{
		Verbose: c.Verbose,
		Log:     os.Stderr,
	})
}

// resolveFormat picks the output format, falling back from tui to text
// when stdout is not a terminal.
func resolveFormat(flag string) (string, error) {
	format := flag
	if format == "" {
		format = currentConfig().Format
	}
	if err := config.ValidateFormat(format); err != nil {
		return "", &ValidationError{Message: err.Error()}
	}
	if format == config.FormatTUI && !stdoutIsTerminal() {
		logDebug("stdout is not a terminal, using text output")
		return config.FormatText, nil
	}
	return format, nil
}

func useColor() bool {
	return !currentConfig().NoColor && stdoutIsTerminal()
}

// renderReport displays report in the selected format. ldr lets the
// dashboard load further reports and may be nil.
func renderReport(ctx context.Context, report *models.PolicyReport, f renderFlags, ldr tui.Loader) error {
	filter, err := models.ParseFindingFilter(f.filter)
	if err != nil {
		return &ValidationError{Message: err.Error()}
	}

	format, err := resolveFormat(f.format)
	if err != nil {
		return err
	}

	switch format {
	case config.FormatTUI:
		tab, err := tui.ParseTab(f.tab)
		if err != nil {
			return &ValidationError{Message: err.Error()}
		}
		return runDashboard(ctx, ldr, tui.Options{Report: report, Tab: tab, Filter: filter})
	case config.FormatJSON:
		return reporter.NewJSONReporter(os.Stdout, true).Generate(report, filter)
	case config.FormatYAML:
		return reporter.NewYAMLReporter(os.Stdout).Generate(report, filter)
	default:
		for _, s := range f.sections {
			if !validSection(s) {
				return &ValidationError{Message: fmt.Sprintf("unknown section %q (must be overview, roles, or findings)", s)}
			}
		}
		return reporter.NewTextReporter(os.Stdout, useColor()).Generate(report, reporter.TextOptions{
			Sections: f.sections,
			Filter:   filter,
		})
	}
}

func validSection(s string) bool {
	for _, known := range reporter.Sections {
		if s == known {
			return true
		}
	}
	return false
}
