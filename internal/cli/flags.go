package cli

import (
	"github.com/spf13/cobra"

	"lienzo/internal/params"
)

// canvasFlags are shared by every converting command. Only flags the user
// set override the --config file, which itself overrides the defaults.
type canvasFlags struct {
	config      string
	width       int
	height      int
	dpi         int
	marginCm    float64
	workers     int
	quality     int
	timeoutSecs int
	workspace   string
	pairs       []string
}

func (f *canvasFlags) register(cmd *cobra.Command, withPairs bool) {
	d := params.Default()
	fl := cmd.Flags()
	fl.StringVar(&f.config, "config", "", "YAML params file")
	fl.IntVar(&f.width, "width", d.Width, "canvas width in px")
	fl.IntVar(&f.height, "height", d.Height, "canvas height in px")
	fl.IntVar(&f.dpi, "dpi", d.DPI, "output DPI, also used to convert the margin")
	fl.Float64Var(&f.marginCm, "margin-cm", d.MarginCm, "margin on every side in cm")
	fl.IntVar(&f.workers, "workers", d.Workers, "images fetched and decoded at once (1-16)")
	fl.IntVar(&f.quality, "jpeg-quality", d.JPEGQuality, "JPEG quality (1-100)")
	fl.IntVar(&f.timeoutSecs, "fetch-timeout", d.FetchTimeoutSeconds, "per download timeout in seconds")
	fl.StringVar(&f.workspace, "workspace", d.WorkspaceName, "archive name without .zip")
	if withPairs {
		fl.StringArrayVar(&f.pairs, "pair", nil, "FileColumn:LinkColumn, repeatable")
	}
}

func (f *canvasFlags) params(cmd *cobra.Command) (params.Params, error) {
	p := params.Default()
	if f.config != "" {
		var err error
		if p, err = params.LoadFile(f.config); err != nil {
			return p, err
		}
	}

	fl := cmd.Flags()
	if fl.Changed("width") {
		p.Width = f.width
	}
	if fl.Changed("height") {
		p.Height = f.height
	}
	if fl.Changed("dpi") {
		p.DPI = f.dpi
	}
	if fl.Changed("margin-cm") {
		p.MarginCm = f.marginCm
	}
	if fl.Changed("workers") {
		p.Workers = f.workers
	}
	if fl.Changed("jpeg-quality") {
		p.JPEGQuality = f.quality
	}
	if fl.Changed("fetch-timeout") {
		p.FetchTimeoutSeconds = f.timeoutSecs
	}
	if fl.Changed("workspace") {
		p.WorkspaceName = f.workspace
	}
	if len(f.pairs) > 0 {
		p.ColumnPairs = nil
		for _, s := range f.pairs {
			pairs, err := params.ParseColumnPairs(s)
			if err != nil {
				return p, err
			}
			p.ColumnPairs = append(p.ColumnPairs, pairs...)
		}
	}
	return p, nil
}
