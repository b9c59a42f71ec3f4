package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ppiankov/pgsecui/internal/loader"
	"github.com/ppiankov/pgsecui/internal/policy"
)

var (
	checkPolicyFile string
	checkFormat     string
)

var checkCmd = &cobra.Command{
	Use:   "check <file>",
	Short: "Evaluate a report against a policy file",
	Long: `Check evaluates a report against YAML policy rules and exits 1 when any
rule is violated, for use in CI pipelines.

The policy file is taken from --policy, the policy_file config key, or the
nearest .pgsecui-policy.yaml in the current directory or its parents.

Example policy:
  version: "1"
  rules:
    max_critical: 0
    max_rls_disabled: 5
    forbid_codes: [SUPERUSER_LOGIN]
    require_rls_schemas: [public]

Example:
  pgsecui check report.json
  pgsecui check report.json --policy ci-policy.yaml --format json`,
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().StringVar(&checkPolicyFile, "policy", "",
		"policy file (default: policy_file config or nearest .pgsecui-policy.yaml)")
	checkCmd.Flags().StringVar(&checkFormat, "format", "text",
		"output format: text or json")
}

func runCheck(cmd *cobra.Command, args []string) error {
	if checkFormat != "text" && checkFormat != "json" {
		return &ValidationError{Message: fmt.Sprintf("unsupported format: %s (use text or json)", checkFormat)}
	}

	report, err := loader.ReadFile(args[0])
	if err != nil {
		return err
	}

	path, err := resolvePolicyFile()
	if err != nil {
		return err
	}
	logVerbose("Evaluating %s against %s", args[0], path)

	p, err := policy.LoadFromFile(path)
	if err != nil {
		return err
	}
	if p == nil {
		return &ValidationError{Message: fmt.Sprintf("policy file not found: %s", path)}
	}

	result := p.Evaluate(report)

	if checkFormat == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return err
		}
	} else {
		printCheckResult(result)
	}

	if !result.Pass {
		return &PolicyViolationError{Violations: result.Violations}
	}
	return nil
}

func resolvePolicyFile() (string, error) {
	if checkPolicyFile != "" {
		return checkPolicyFile, nil
	}
	if path := currentConfig().PolicyFile; path != "" {
		return path, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get working directory: %w", err)
	}
	if path := policy.FindPolicyFile(wd); path != "" {
		return path, nil
	}
	return "", &ValidationError{Message: "no policy file found (use --policy or create .pgsecui-policy.yaml)"}
}

func printCheckResult(result *policy.Result) {
	if result.Pass {
		fmt.Println("PASS: report satisfies all policy rules")
		return
	}
	fmt.Printf("FAIL: %d policy violation(s)\n", len(result.Violations))
	for _, v := range result.Violations {
		fmt.Printf("  - [%s] %s\n", v.Rule, v.Message)
	}
}
