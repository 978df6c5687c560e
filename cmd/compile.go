package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/conneroisu/wxjsx/internal/compiler"
	"github.com/conneroisu/wxjsx/internal/errors"
	"github.com/conneroisu/wxjsx/internal/validation"
)

var compileOutput string

var compileCmd = &cobra.Command{
	Use:     "compile [file]",
	Aliases: []string{"c"},
	Short:   "Compile one document to JSX",
	Long: `Compile a single document. The source is read from file, or from stdin
when no file is given, and the result is printed to stdout unless -o names
an output file.

Examples:
  wxjsx compile pages/index.wxml
  wxjsx compile pages/index.wxml -o dist/index.jsx
  echo '<view>hi</view>' | wxjsx compile`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCompile,
}

func init() {
	rootCmd.AddCommand(compileCmd)

	compileCmd.Flags().StringVarP(&compileOutput, "output", "o", "", "write the result to this file instead of stdout")
}

func runCompile(cmd *cobra.Command, args []string) error {
	cfg, logger, done, err := setup(cmd)
	if err != nil {
		return err
	}
	defer done()

	name := "<stdin>"
	var source []byte
	if len(args) == 1 {
		name = args[0]
		if err := validation.ValidatePath(name); err != nil {
			return errors.WrapIO(err, errors.CodeReadFailed, "invalid input path").WithFile(name)
		}
		source, err = os.ReadFile(name)
	} else {
		source, err = io.ReadAll(cmd.InOrStdin())
	}
	if err != nil {
		return errors.WrapIO(err, errors.CodeReadFailed, "failed to read source").WithFile(name)
	}

	result, err := compiler.New(cfg.CompilerOptions(), logger).CompileDocument(cmd.Context(), name, string(source))
	if err != nil {
		return err
	}

	if compileOutput == "" {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), result.Output)
		return err
	}

	if err := validation.ValidatePath(compileOutput); err != nil {
		return errors.WrapIO(err, errors.CodeWriteFailed, "invalid output path").WithFile(compileOutput)
	}
	if err := os.MkdirAll(filepath.Dir(compileOutput), 0o755); err != nil {
		return errors.WrapIO(err, errors.CodeWriteFailed, "failed to create output directory").WithFile(compileOutput)
	}
	if err := os.WriteFile(compileOutput, []byte(result.Output), 0o644); err != nil {
		return errors.WrapIO(err, errors.CodeWriteFailed, "failed to write output").WithFile(compileOutput)
	}
	logger.Info(cmd.Context(), "compiled", "source", name, "output", compileOutput, "duration", result.Duration.String())
	return nil
}
