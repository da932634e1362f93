package cli

import (
	"github.com/spf13/cobra"

	"pointmap/internal/pointsapi"
	"pointmap/internal/server"
	"pointmap/internal/store"
)

func newServeCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve stored points as Arrow IPC streams",
		Long: `Start the points service.

GET /points?minx=&maxx=&miny=&maxy=&minz=&maxz=&limit= returns the matching
points as an Arrow IPC stream with a GeoArrow point geometry column and a
float32 intensity column. Absent parameters default to the whole world,
altitudes 10..30 and 1000 rows.`,
		Example: `  # Serve ./pointmap.db on the default address
  pointmap serve

  # Serve another database on all interfaces
  pointmap serve --db /data/points.db --addr :8000`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			st, err := store.Open(ctx, a.cfg.Server.Database)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			stats, err := st.Stats(ctx)
			if err != nil {
				return err
			}
			version, err := st.SchemaVersion()
			if err != nil {
				return err
			}
			a.logger.Info("store opened", "path", a.cfg.Server.Database,
				"schema", version, "points", stats.Points, "loads", stats.Loads)

			srv := server.New(server.Config{
				Addr:     a.cfg.Server.Addr,
				Source:   st,
				Defaults: pointsapi.ServerDefaults,
				Logger:   a.logger,
			})
			return srv.Serve(ctx)
		},
	}

	cmd.Flags().String("addr", "", "Listen address (default: 127.0.0.1:8000)")
	cmd.Flags().String("db", "", "SQLite database path (default: pointmap.db)")
	return cmd
}
