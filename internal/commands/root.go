// Package commands implements the hitreco command line interface.
package commands

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ironsheep/hit-reco-mcp/internal/config"
	"github.com/ironsheep/hit-reco-mcp/internal/imaging"
	"github.com/ironsheep/hit-reco-mcp/internal/logging"
)

// BuildInfo identifies the running binary. Fields are set by ldflags.
type BuildInfo struct {
	Version   string
	BuildTime string
	GitCommit string
}

// app carries state resolved by the root command to its subcommands.
type app struct {
	build  BuildInfo
	v      *viper.Viper
	cfg    *config.Config
	logger *zap.Logger
}

// RootCmd creates the root command with every subcommand attached. Running it
// without a subcommand starts the MCP server.
func RootCmd(build BuildInfo) *cobra.Command {
	a := &app{build: build, v: config.New()}
	var configPath string

	cmd := &cobra.Command{
		Use:   "hitreco",
		Short: "Particle hit reconstruction for pixel detector frames",
		Long: `hitreco groups the hits of pixel detector frames into 8-connected clusters
and reconstructs one object per cluster: its most central hit and its shape
(dot, blob or line).

It reads XCounter EVI files and PNG/JPEG/GIF images, and runs as an MCP
server over stdin/stdout when started without a subcommand.

Configuration is read from hitreco.yaml (working directory or
$HOME/.config/hitreco) and HITRECO_* environment variables.`,
		Version:       build.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd, configPath)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve(cmd)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "Config file (default: hitreco.yaml in . or $HOME/.config/hitreco)")
	flags.String("log-level", "info", "Log level: debug, info, warn or error")
	flags.String("log-format", logging.FormatConsole, "Log format: console or json")
	flags.Int("threshold", 1, "Luminance (1-255) at which an image pixel counts as a hit")

	_ = a.v.BindPFlag(config.KeyLogLevel, flags.Lookup("log-level"))
	_ = a.v.BindPFlag(config.KeyLogFormat, flags.Lookup("log-format"))
	_ = a.v.BindPFlag(config.KeyThreshold, flags.Lookup("threshold"))

	cmd.AddCommand(serveCmd(a))
	cmd.AddCommand(recoCmd(a))
	cmd.AddCommand(generateCmd(a))
	cmd.AddCommand(overlayCmd(a))
	cmd.AddCommand(versionCmd(a))

	return cmd
}

func (a *app) setup(cmd *cobra.Command, configPath string) error {
	cfg, err := config.Load(a.v, configPath)
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.logger = logger.With(zap.String("command", cmd.Name()))
	a.logger.Debug("configuration loaded",
		zap.String("config_file", a.v.ConfigFileUsed()),
		zap.Int("threshold", cfg.Threshold),
		zap.Int("overlay_scale", cfg.Overlay.Scale))
	return nil
}

// cache returns a frame cache using the configured threshold.
func (a *app) cache() *imaging.FrameCache {
	return imaging.NewFrameCache(a.cfg.ThresholdLevel())
}
