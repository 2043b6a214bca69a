package commands

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ironsheep/hit-reco-mcp/internal/server"
)

func serveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server on stdin/stdout",
		Long: `Run the MCP server. Requests are read from stdin one JSON-RPC message per
line and responses written to stdout. Logs go to stderr.

Configure it in your MCP client (e.g., Claude Desktop) as:
  {"command": "hitreco", "args": ["serve"]}`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve(cmd)
		},
	}
}

func (a *app) serve(cmd *cobra.Command) error {
	a.logger.Info("starting MCP server",
		zap.String("version", a.build.Version),
		zap.String("build_time", a.build.BuildTime),
		zap.String("git_commit", a.build.GitCommit))

	srv := server.New(server.Options{
		Threshold: a.cfg.ThresholdLevel(),
		Overlay:   a.cfg.OverlayOptions(),
		Version:   a.build.Version,
		Logger:    a.logger,
	})
	if err := srv.Serve(cmd.InOrStdin(), cmd.OutOrStdout()); err != nil {
		a.logger.Error("server error", zap.Error(err))
		return err
	}

	a.logger.Info("input closed, shutting down")
	return nil
}
