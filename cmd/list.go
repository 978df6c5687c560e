package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/conneroisu/wxjsx/internal/orchestrator"
)

var listFormat string

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"l"},
	Short:   "List the discovered documents",
	Long: `List every document found in build.source_dirs together with its size,
modification time and the output file it compiles to.

Examples:
  wxjsx list
  wxjsx list -o json
  wxjsx list -o yaml`,
	Args: cobra.NoArgs,
	RunE: runList,
}

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().StringVarP(&listFormat, "output", "o", formatTable, "output format (table|json|yaml)")
	AddFlagValidation(listCmd.Flags(), "output", ValidateFormat)
}

type documentRow struct {
	Name    string    `json:"name" yaml:"name"`
	Path    string    `json:"path" yaml:"path"`
	Output  string    `json:"output,omitempty" yaml:"output,omitempty"`
	Size    int64     `json:"size" yaml:"size"`
	Hash    string    `json:"hash" yaml:"hash"`
	ModTime time.Time `json:"mod_time" yaml:"mod_time"`
}

func runList(cmd *cobra.Command, _ []string) error {
	cfg, logger, done, err := setup(cmd)
	if err != nil {
		return err
	}
	defer done()

	orch := orchestrator.New(cfg, logger)
	if err := orch.InitialScan(cmd.Context()); err != nil {
		return err
	}

	docs := orch.Registry().List()
	rows := make([]documentRow, 0, len(docs))
	for _, doc := range docs {
		rows = append(rows, documentRow{
			Name:    doc.Name,
			Path:    doc.Path,
			Output:  orch.Pipeline().OutputPath(doc),
			Size:    doc.Size,
			Hash:    doc.Hash,
			ModTime: doc.ModTime,
		})
	}

	if len(rows) == 0 && listFormat == formatTable {
		fmt.Fprintln(cmd.OutOrStdout(), "No documents found.")
		return nil
	}

	return render(cmd.OutOrStdout(), listFormat, rows, func(tw *tabwriter.Writer) {
		fmt.Fprintln(tw, "NAME\tSIZE\tMODIFIED\tOUTPUT")
		for _, r := range rows {
			fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", r.Name, r.Size, r.ModTime.Format(time.DateTime), r.Output)
		}
	})
}
