// Package cli is the lienzo command line: batch conversion of a table or of
// image files into a zip of canvas-fitted JPEGs, plus a hot-folder watcher.
package cli

import (
	"github.com/spf13/cobra"

	"lienzo/internal/pkg/logger"
)

// NewRootCmd creates the root command with the run, images and watch
// subcommands.
func NewRootCmd(ver string) *cobra.Command {
	var (
		logLevel  string
		logFormat string
	)

	cmd := &cobra.Command{
		Use:           "lienzo",
		Short:         "Fit images onto a fixed canvas and zip them",
		Long:          "lienzo downloads or reads images, fits each one inside a white canvas with a margin, encodes it as JPEG with the requested DPI and packs the results into a zip.",
		Version:       ver,
		Example:       rootCmdExample,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			log := logger.New(logger.Config{
				Level:       logLevel,
				Format:      logFormat,
				ServiceName: "lienzo",
				Output:      cmd.ErrOrStderr(),
			})
			cmd.SetContext(withLogger(cmd.Context(), log))
		},
	}

	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level: debug, info, warn or error")
	cmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format: text or json")
	cmd.AddCommand(newRunCmd(), newImagesCmd(), newWatchCmd())

	return cmd
}

const rootCmdExample = `  # Convert every FileName1/ImageLink1 pair of a spreadsheet
  lienzo run --table productos.xlsx --pair FileName1:ImageLink1 --out ./salida

  # Two image slots per row, 300 dpi, parameters from a file
  lienzo run --table productos.csv --pair FileName1:ImageLink1 --pair FileName2:ImageLink2 --config params.yaml --dpi 300

  # Convert local files
  lienzo images fotos/*.png --width 1200 --height 1200

  # Process every table dropped into a folder
  lienzo watch ./entrada --pair FileName1:ImageLink1`
