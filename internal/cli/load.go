package cli

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"pointmap/internal/geom"
	"pointmap/internal/store"
)

func newLoadCommand(a *app) *cobra.Command {
	var list bool

	cmd := &cobra.Command{
		Use:   "load FILE...",
		Short: "Import points from CSV, GeoJSON or KML files",
		Long: `Import point files into the store used by serve.

CSV files need lon/lat columns (lon, lng, longitude or x; lat, latitude or y)
and may carry alt and intensity columns. GeoJSON Point and MultiPoint
features take altitude from the third coordinate and intensity from the
"intensity" property. KML Placemark points are read as lon,lat,alt.
Missing intensities are stored as 0.

With --list, print the loads already in the store instead.`,
		Example: `  pointmap load samples.csv
  pointmap load --db /data/points.db a.geojson b.kml
  pointmap load --list`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && !list {
				return errors.New("requires at least one file (or --list)")
			}
			ctx := cmd.Context()
			st, err := store.Open(ctx, a.cfg.Server.Database)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			if list {
				return listLoads(cmd, st)
			}

			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"file", "points", "bbox", "load id"})

			for _, path := range args {
				pts, err := geom.LoadPoints(path)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				id, err := st.Insert(ctx, filepath.Base(path), pts)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				bb := geom.Bounds(pts)
				a.logger.Info("points loaded", "file", path, "points", len(pts), "load_id", id)
				t.AppendRow(table.Row{
					filepath.Base(path),
					len(pts),
					fmt.Sprintf("[%g, %g, %g, %g]", bb.MinX, bb.MinY, bb.MaxX, bb.MaxY),
					id,
				})
			}

			stats, err := st.Stats(ctx)
			if err != nil {
				return err
			}
			t.AppendFooter(table.Row{"total", stats.Points, "", fmt.Sprintf("%d loads", stats.Loads)})
			t.Render()
			return nil
		},
	}

	cmd.Flags().String("db", "", "SQLite database path (default: pointmap.db)")
	cmd.Flags().BoolVar(&list, "list", false, "List stored loads, newest first")
	return cmd
}

func listLoads(cmd *cobra.Command, st *store.Store) error {
	loads, err := st.Loads(cmd.Context())
	if err != nil {
		return err
	}
	if len(loads) == 0 {
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), "no loads")
		return nil
	}
	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"load id", "source", "points", "created"})
	for _, l := range loads {
		t.AppendRow(table.Row{l.ID, l.Source, l.Points, l.CreatedAt.Local().Format(time.DateTime)})
	}
	t.Render()
	return nil
}
