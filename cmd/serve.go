package cmd

import (
	"github.com/spf13/cobra"

	"github.com/conneroisu/wxjsx/internal/server"
)

var (
	servePort int
	serveHost string
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"s"},
	Short:   "Start the live preview server",
	Long: `Build and watch the project while serving a playground page that
compiles markup as you type. Build results are pushed to connected
browsers over a websocket.

Routes:
  GET  /                  playground
  POST /api/compile       {"source": "..."} -> {"output": "..."}
  GET  /api/documents     discovered documents
  GET  /api/build/status  build metrics and errors
  GET  /ws                build result stream

Examples:
  wxjsx serve
  wxjsx serve --port 3000 --host 0.0.0.0`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntVarP(&servePort, "port", "p", 8080, "port to listen on (overrides server.port)")
	serveCmd.Flags().StringVar(&serveHost, "host", "localhost", "host to bind to (overrides server.host)")
	AddFlagValidation(serveCmd.Flags(), "port", ValidatePort)
	AddFlagValidation(serveCmd.Flags(), "host", ValidateHostFlag)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger, done, err := setup(cmd)
	if err != nil {
		return err
	}
	defer done()

	if cmd.Flags().Changed("port") {
		cfg.Server.Port = servePort
	}
	if cmd.Flags().Changed("host") {
		cfg.Server.Host = serveHost
	}

	return server.New(cfg, nil, logger).Start(cmd.Context())
}
