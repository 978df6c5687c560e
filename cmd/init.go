package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/conneroisu/wxjsx/internal/config"
	"github.com/conneroisu/wxjsx/internal/errors"
	"github.com/conneroisu/wxjsx/internal/validation"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:     "init [path]",
	Aliases: []string{"i"},
	Short:   "Write a default configuration file",
	Long: `Write the default configuration to path (.wxjsx.yml by default). An
existing file is only replaced with --force.

Examples:
  wxjsx init
  wxjsx init configs/wxjsx.yml --force`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)

	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "overwrite an existing file")
}

func runInit(cmd *cobra.Command, args []string) error {
	path := config.DefaultFileName
	if len(args) == 1 {
		path = args[0]
	}
	if err := validation.ValidatePath(path); err != nil {
		return errors.WrapConfig(err, "invalid config path").WithFile(path)
	}

	if err := config.WriteDefault(path, initForce); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
	return nil
}
