package cli

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"lienzo/internal/pkg/errors"
)

func newRunCmd() *cobra.Command {
	var (
		flags     canvasFlags
		tablePath string
		outDir    string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Convert the images linked from a spreadsheet",
		Long: `Reads an .xlsx or .csv table, downloads the link of every file/link column
pair, fits each image on the canvas and writes <out>/<workspace>.zip.

Rows whose pair is missing a name or a link are skipped and listed. A
download or decode failure only drops that image.`,
		Example: `  lienzo run --table productos.xlsx --pair FileName1:ImageLink1
  lienzo run --table productos.csv --pair FileName1:ImageLink1,FileName2:ImageLink2 --margin-cm 0.5`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if tablePath == "" {
				return errors.Config("--table is required")
			}
			p, err := flags.params(cmd)
			if err != nil {
				return err
			}
			if err := p.Validate(true); err != nil {
				return err
			}

			items, skipped, err := tableItems(tablePath, p.ColumnPairs)
			if err != nil {
				return err
			}

			c := &converter{out: cmd.OutOrStdout(), log: loggerFrom(cmd.Context())}
			_, err = c.convert(cmd.Context(), p, items, skipped, filepath.Join(outDir, p.ArchiveName()))
			return err
		},
	}

	flags.register(cmd, true)
	cmd.Flags().StringVar(&tablePath, "table", "", "table file (.xlsx, .xlsm or .csv)")
	cmd.Flags().StringVar(&outDir, "out", ".", "directory the zip is written to")

	return cmd
}
