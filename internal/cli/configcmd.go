package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ppiankov/pgsecui/internal/config"
)

var (
	configInitPath  string
	configInitForce bool
	configInitPrint bool
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the pgsecui configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a sample configuration file",
	Long: `Init writes a commented sample configuration. The default location is
$XDG_CONFIG_HOME/pgsecui/pgsecui.yaml (or ~/.config/pgsecui/pgsecui.yaml).

Example:
  pgsecui config init
  pgsecui config init --path ./pgsecui.yaml --force
  pgsecui config init --print > pgsecui.yaml`,
	Args: cobra.NoArgs,
	RunE: runConfigInit,
}

func init() {
	configInitCmd.Flags().StringVar(&configInitPath, "path", "",
		"destination file (default: "+config.ConfigPath()+")")
	configInitCmd.Flags().BoolVar(&configInitForce, "force", false,
		"overwrite an existing file")
	configInitCmd.Flags().BoolVar(&configInitPrint, "print", false,
		"print the sample to stdout instead of writing it")
	configCmd.AddCommand(configInitCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	if configInitPrint {
		fmt.Print(config.GenerateSampleConfig())
		return nil
	}

	path := configInitPath
	if path == "" {
		path = config.ConfigPath()
	}

	if err := config.WriteSampleConfig(path, configInitForce); err != nil {
		return err
	}
	fmt.Printf("Wrote sample configuration to %s\n", path)
	return nil
}
