package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"lienzo/internal/batch"
)

func newImagesCmd() *cobra.Command {
	var (
		flags  canvasFlags
		outDir string
	)

	cmd := &cobra.Command{
		Use:   "images FILE...",
		Short: "Convert local image files",
		Example: `  lienzo images a.png b.webp c.jpg --workspace portadas
  lienzo images fotos/*.tiff --dpi 300 --margin-cm 0`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := flags.params(cmd)
			if err != nil {
				return err
			}
			if err := p.Validate(false); err != nil {
				return err
			}

			uploads := make([]batch.Upload, 0, len(args))
			for _, path := range args {
				data, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("read %s: %w", path, err)
				}
				uploads = append(uploads, batch.Upload{Name: filepath.Base(path), Data: data})
			}

			c := &converter{out: cmd.OutOrStdout(), log: loggerFrom(cmd.Context())}
			_, err = c.convert(cmd.Context(), p, batch.ItemsFromUploads(uploads), nil, filepath.Join(outDir, p.ArchiveName()))
			return err
		},
	}

	flags.register(cmd, false)
	cmd.Flags().StringVar(&outDir, "out", ".", "directory the zip is written to")

	return cmd
}
