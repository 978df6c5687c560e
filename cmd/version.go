package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/conneroisu/wxjsx/internal/version"
)

var (
	versionFormat   string
	versionDetailed bool
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Long: `Print the version of wxjsx. --detailed adds the commit, build time, Go
version and platform; -o json and -o yaml print every field.`,
	Args: cobra.NoArgs,
	RunE: runVersion,
}

func init() {
	rootCmd.AddCommand(versionCmd)

	versionCmd.Flags().StringVarP(&versionFormat, "output", "o", "text", "output format (text|json|yaml)")
	versionCmd.Flags().BoolVar(&versionDetailed, "detailed", false, "show detailed build information")
}

func runVersion(cmd *cobra.Command, _ []string) error {
	info := version.Get()
	out := cmd.OutOrStdout()

	switch versionFormat {
	case "text":
		if versionDetailed {
			fmt.Fprintln(out, info.String())
		} else {
			fmt.Fprintln(out, "wxjsx", info.Short())
		}
		return nil
	case formatJSON, formatYAML:
		return render(out, versionFormat, info, nil)
	default:
		return fmt.Errorf("unsupported format: %s (supported: text, json, yaml)", versionFormat)
	}
}
