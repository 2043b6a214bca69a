package commands

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ironsheep/hit-reco-mcp/internal/detection"
)

// modeObjects selects Reconstruct instead of CountClusters.
const modeObjects = "objects"

func recoCmd(a *app) *cobra.Command {
	var frame int
	var mode, format string

	cmd := &cobra.Command{
		Use:   "reco <file>",
		Short: "Count clusters or reconstruct objects in a frame",
		Long: `Cluster the hits of one frame of an EVI file or image and print the result.

Modes:
  first    seed hit of each cluster
  center   most central hit of each cluster
  full     every hit of each cluster
  objects  center and shape (dot, blob, line) of each cluster, with counts

Examples:
  hitreco reco run42.evi --frame 3
  hitreco reco frame.png --mode full --format yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}

			var parsed detection.Mode
			if mode != modeObjects {
				m, err := detection.ParseMode(mode)
				if err != nil {
					return err
				}
				parsed = m
			}

			img, err := a.cache().Frame(args[0], frame)
			if err != nil {
				return err
			}

			var result interface{}
			if mode == modeObjects {
				result, err = detection.Reconstruct(img)
			} else {
				result, err = detection.CountClusters(img, parsed)
			}
			if err != nil {
				return err
			}

			a.logger.Debug("reconstructed frame",
				zap.String("path", args[0]), zap.Int("frame", frame), zap.String("mode", mode))

			return writeResult(cmd.OutOrStdout(), format, result)
		},
	}

	cmd.Flags().IntVar(&frame, "frame", 0, "0-based frame index")
	cmd.Flags().StringVar(&mode, "mode", modeObjects, "Result mode: first, center, full or objects")
	cmd.Flags().StringVar(&format, "format", formatJSON, "Output format: json or yaml")

	return cmd
}
