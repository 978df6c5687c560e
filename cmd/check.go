package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/conneroisu/wxjsx/internal/compiler"
	"github.com/conneroisu/wxjsx/internal/errors"
	"github.com/conneroisu/wxjsx/internal/lint"
	"github.com/conneroisu/wxjsx/internal/orchestrator"
	"github.com/conneroisu/wxjsx/internal/validation"
)

var (
	checkFormat string
	checkStrict bool
)

var checkCmd = &cobra.Command{
	Use:   "check [files...]",
	Short: "Report compile errors and lint findings",
	Long: `Compile each file without writing output and lint the parsed tree.
Without arguments every document in build.source_dirs is checked.

Lint rules:
  native-element       tag is an HTML element rather than a component
  unknown-directive    wx: attribute other than wx:if, wx:for and wx:key
  conditional-ignored  wx:if while compiler.conditional_if is off
  multiple-directives  a directive that another one overrides
  key-without-loop     wx:key on an element without wx:for
  unmapped-event       bind* event that keeps its name

Examples:
  wxjsx check
  wxjsx check pages/index.wxml -o json
  wxjsx check --strict`,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().StringVarP(&checkFormat, "output", "o", formatTable, "output format (table|json|yaml)")
	checkCmd.Flags().BoolVar(&checkStrict, "strict", false, "fail on lint warnings too")
	AddFlagValidation(checkCmd.Flags(), "output", ValidateFormat)
}

// checkReport is the outcome for one file.
type checkReport struct {
	File        string             `json:"file" yaml:"file"`
	Error       *errors.BuildError `json:"error,omitempty" yaml:"error,omitempty"`
	Diagnostics []lint.Diagnostic  `json:"diagnostics" yaml:"diagnostics"`
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, logger, done, err := setup(cmd)
	if err != nil {
		return err
	}
	defer done()

	files := args
	if len(files) == 0 {
		orch := orchestrator.New(cfg, logger)
		if err := orch.InitialScan(cmd.Context()); err != nil {
			return err
		}
		for _, doc := range orch.Registry().List() {
			files = append(files, doc.Path)
		}
	}

	opts := cfg.CompilerOptions()
	reports := make([]checkReport, 0, len(files))
	failed, warnings := 0, 0
	for _, file := range files {
		report := checkReport{File: file, Diagnostics: []lint.Diagnostic{}}

		diags, err := checkFile(file, opts)
		if err != nil {
			be := errors.NewBuildError(file, file, err)
			be.Timestamp = time.Now()
			report.Error = &be
			failed++
		} else {
			report.Diagnostics = diags
			for _, d := range diags {
				if d.Severity == lint.SeverityWarning {
					warnings++
				}
			}
		}
		reports = append(reports, report)
	}

	if err := render(cmd.OutOrStdout(), checkFormat, reports, func(tw *tabwriter.Writer) {
		writeCheckTable(tw, reports)
	}); err != nil {
		return err
	}
	if checkFormat == formatTable {
		fmt.Fprintf(cmd.OutOrStdout(), "\nChecked %s: %d failed, %s\n",
			plural(len(reports), "file"), failed, plural(warnings, "warning"))
	}

	switch {
	case failed > 0:
		return fmt.Errorf("%s failed to compile", plural(failed, "file"))
	case checkStrict && warnings > 0:
		return fmt.Errorf("%s reported", plural(warnings, "lint warning"))
	}
	return nil
}

func checkFile(file string, opts compiler.Options) ([]lint.Diagnostic, error) {
	if err := validation.ValidatePath(file); err != nil {
		return nil, errors.WrapIO(err, errors.CodeReadFailed, "invalid path").WithFile(file)
	}
	source, err := os.ReadFile(file)
	if err != nil {
		return nil, errors.WrapIO(err, errors.CodeReadFailed, "failed to read source").WithFile(file)
	}
	return lint.Source(string(source), opts)
}

func writeCheckTable(tw *tabwriter.Writer, reports []checkReport) {
	fmt.Fprintln(tw, "FILE\tLOCATION\tSEVERITY\tRULE\tMESSAGE")
	for _, r := range reports {
		if r.Error != nil {
			fmt.Fprintf(tw, "%s\t%d:%d\t%s\t%s\t%s\n",
				r.File, r.Error.Line, r.Error.Column, r.Error.Severity, r.Error.Code, r.Error.Message)
			continue
		}
		for _, d := range r.Diagnostics {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", r.File, d.Location, d.Severity, d.Rule, d.Message)
		}
	}
}
