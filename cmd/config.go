package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/conneroisu/wxjsx/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and validate the configuration",
}

var configValidateCmd = &cobra.Command{
	Use:   "validate [file]",
	Short: "Validate a configuration file",
	Long: `Decode a configuration file strictly, rejecting unknown keys, and check
every value. Without a file the one selected by --config, WXJSX_CONFIG_FILE
or .wxjsx.yml is validated.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runConfigValidate,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Long: `Print the configuration after defaults, the config file and WXJSX_*
environment overrides have been applied.`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configValidateCmd)
	configCmd.AddCommand(configShowCmd)
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	path := cfgFile
	switch {
	case len(args) == 1:
		path = args[0]
	case path == "":
		path = os.Getenv(configFileEnv)
	}
	if path == "" {
		path = config.DefaultFileName
	}

	result, err := config.ValidateFile(path)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if result.HasErrors() || result.HasWarnings() {
		fmt.Fprint(out, result.String())
	}
	if err := result.Err(); err != nil {
		return err
	}
	fmt.Fprintf(out, "%s is valid\n", path)
	return nil
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	data, err := config.Marshal(cfg)
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}
