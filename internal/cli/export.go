package cli

import (
	"github.com/spf13/cobra"

	"pointmap/internal/raster"
	"pointmap/internal/viewer"
)

func newExportCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Render points from the points service to a PNG file",
		Long: `Fetch points for a bounding box and render them over the base map into a
PNG image, using the configured initial camera.`,
		Example: `  pointmap export --out europe.png --lon 10 --lat 50 --zoom 4
  pointmap export --no-tiles --width 512 --height 512`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			r := &raster.Renderer{
				Width:  a.cfg.Export.Width,
				Height: a.cfg.Export.Height,
				Loader: a.tileLoader(cmd.Flags()),
				Logger: a.logger,
			}
			opts := a.cfg.SceneOptions(a.cfg.Export.Out)
			return viewer.Run(cmd.Context(), a.source(), a.cfg.Request(), opts, r, a.logger)
		},
	}

	addClientFlags(cmd.Flags())
	addMapFlags(cmd.Flags())
	cmd.Flags().Int("width", 0, "Image width in pixels (default: 1024)")
	cmd.Flags().Int("height", 0, "Image height in pixels (default: 768)")
	cmd.Flags().StringP("out", "o", "", "Output PNG path (default: pointmap.png)")
	return cmd
}
