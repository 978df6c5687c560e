package cmd

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/conneroisu/wxjsx/internal/build"
	"github.com/conneroisu/wxjsx/internal/orchestrator"
)

var watchCmd = &cobra.Command{
	Use:     "watch",
	Aliases: []string{"w"},
	Short:   "Rebuild documents whenever they change",
	Long: `Build the project once, then watch the source directories and rebuild
each document as it is created or modified. Outputs of deleted documents
are removed. Stop with Ctrl+C.

Examples:
  wxjsx watch
  WXJSX_WATCH_DEBOUNCE=1s wxjsx watch`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, _ []string) error {
	cfg, logger, done, err := setup(cmd)
	if err != nil {
		return err
	}
	defer done()

	ctx := cmd.Context()
	orch := orchestrator.New(cfg, logger)
	defer orch.Shutdown()

	start := time.Now()
	if err := orch.InitialScan(ctx); err != nil {
		logger.Warn(ctx, err, "initial scan incomplete")
	}
	results, err := orch.BuildAll(ctx)
	if err != nil {
		return err
	}
	printBuildSummary(cmd, results, time.Since(start))

	var mu sync.Mutex
	orch.Pipeline().AddCallback(func(result build.BuildResult) {
		mu.Lock()
		defer mu.Unlock()
		printRebuild(cmd, result)
	})

	if err := orch.Watch(ctx); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Watching %s for changes\n", strings.Join(cfg.Build.SourceDirs, ", "))

	<-ctx.Done()
	return orch.Shutdown()
}

func printRebuild(cmd *cobra.Command, result build.BuildResult) {
	name := result.Document.Name
	if result.Error != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "✗ %s: %v\n", name, result.Error)
		return
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ %s (%s)\n", name, result.Duration.Round(time.Microsecond))
}
