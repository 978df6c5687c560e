package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/conneroisu/wxjsx/internal/build"
	"github.com/conneroisu/wxjsx/internal/errors"
	"github.com/conneroisu/wxjsx/internal/orchestrator"
	"github.com/conneroisu/wxjsx/internal/validation"
)

var (
	buildOutDir  string
	buildWorkers int
)

var buildCmd = &cobra.Command{
	Use:     "build [dirs...]",
	Aliases: []string{"b"},
	Short:   "Compile every document in the source directories",
	Long: `Scan the source directories (build.source_dirs, or the given dirs) for
documents and compile them concurrently into build.out_dir. Unchanged
documents are served from the build cache. Every failing document is
reported; the command fails if any did.

Examples:
  wxjsx build
  wxjsx build src/pages src/components --out-dir web/src/generated
  wxjsx build --workers 1`,
	RunE: runBuild,
}

func init() {
	rootCmd.AddCommand(buildCmd)

	buildCmd.Flags().StringVar(&buildOutDir, "out-dir", "", "output directory (overrides build.out_dir)")
	buildCmd.Flags().IntVarP(&buildWorkers, "workers", "w", 1, "concurrent compilations (overrides build.workers)")
	AddFlagValidation(buildCmd.Flags(), "workers", ValidateWorkers)
}

func runBuild(cmd *cobra.Command, args []string) error {
	cfg, logger, done, err := setup(cmd)
	if err != nil {
		return err
	}
	defer done()

	if len(args) > 0 {
		for _, dir := range args {
			if err := validation.ValidatePath(dir); err != nil {
				return errors.WrapConfig(err, "invalid source directory").WithFile(dir)
			}
		}
		cfg.Build.SourceDirs = args
	}
	if cmd.Flags().Changed("out-dir") {
		if err := validation.ValidatePath(buildOutDir); err != nil {
			return errors.WrapConfig(err, "invalid output directory").WithFile(buildOutDir)
		}
		cfg.Build.OutDir = buildOutDir
	}
	if cmd.Flags().Changed("workers") {
		cfg.Build.Workers = buildWorkers
	}

	ctx := cmd.Context()
	orch := orchestrator.New(cfg, logger)
	defer orch.Shutdown()

	start := time.Now()
	if err := orch.InitialScan(ctx); err != nil {
		return err
	}
	results, err := orch.BuildAll(ctx)
	if err != nil {
		return err
	}

	if summary := orch.Pipeline().Errors().Summary(); summary != "" {
		fmt.Fprint(cmd.ErrOrStderr(), summary)
	}
	failed := printBuildSummary(cmd, results, time.Since(start))
	if failed > 0 {
		return fmt.Errorf("%s failed to build", plural(failed, "document"))
	}
	return nil
}

// printBuildSummary writes one line describing results and returns the
// number of failures.
func printBuildSummary(cmd *cobra.Command, results []build.BuildResult, elapsed time.Duration) int {
	cached, failed := 0, 0
	for _, r := range results {
		switch {
		case r.Error != nil:
			failed++
		case r.CacheHit:
			cached++
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Built %s (%d cached, %d failed) in %s\n",
		plural(len(results), "document"), cached, failed, elapsed.Round(time.Millisecond))
	return failed
}
