package cli

import (
	"context"

	"github.com/spf13/cobra"

	"pointmap/internal/pointsapi"
	"pointmap/internal/scene"
	"pointmap/internal/tui"
	"pointmap/internal/viewer"
)

func newViewCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "view",
		Short: "Show points from the points service in the terminal",
		Long: `Fetch points for a bounding box and show them over the base map in an
interactive terminal view.

Keys: arrows pan, +/- zoom, f fit to the data, tab layer list, 1/2/3 toggle
layers, p edit the query and refetch, r refetch, a attribute table,
i inspect the point nearest the centre, q quit.

Logs are discarded unless --log-file is set.`,
		Example: `  pointmap view
  pointmap view --endpoint http://points.local:8000 --minx -10 --maxx 10 --limit 5000`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			src := a.source()
			opts := a.cfg.SceneOptions(scene.DefaultTarget)

			r := &tui.Renderer{
				Loader:  a.tileLoader(cmd.Flags()),
				Request: a.cfg.Request(),
				Logger:  a.logger,
				Reload: func(ctx context.Context, req pointsapi.Request) (scene.Scene, func(), error) {
					tbl, cols, err := viewer.Load(ctx, src, req, a.logger)
					if err != nil {
						return scene.Scene{}, nil, err
					}
					return scene.Compose(cols, opts), tbl.Release, nil
				},
			}
			return viewer.Run(cmd.Context(), src, a.cfg.Request(), opts, r, a.logger)
		},
	}

	addClientFlags(cmd.Flags())
	addMapFlags(cmd.Flags())
	return cmd
}
