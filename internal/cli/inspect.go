package cli

import (
	"fmt"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"pointmap/internal/colormap"
	"pointmap/internal/viewer"
)

func newInspectCommand(a *app) *cobra.Command {
	var rows int

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Print the shape, schema and first rows of a points response",
		Example: `  pointmap inspect
  pointmap inspect --limit 10 --rows 10`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tbl, cols, err := viewer.Load(cmd.Context(), a.source(), a.cfg.Request(), a.logger)
			if err != nil {
				return err
			}
			defer tbl.Release()

			w := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(w, "%s\n", a.cfg.Request().URL(a.cfg.Client.Endpoint))
			_, _ = fmt.Fprintf(w, "shape: %d rows x %d columns\n", tbl.NumRows(), tbl.NumCols())
			enc := cols.Encoding()
			if enc == "" {
				enc = "untagged"
			}
			_, _ = fmt.Fprintf(w, "geometry: %s, %d dims\n", enc, cols.Dims())

			schema := table.NewWriter()
			schema.SetOutputMirror(w)
			schema.SetStyle(table.StyleLight)
			schema.AppendHeader(table.Row{"field", "type", "nullable", "extension"})
			for _, f := range tbl.Schema().Fields() {
				ext := ""
				if i := f.Metadata.FindKey("ARROW:extension:name"); i >= 0 {
					ext = f.Metadata.Values()[i]
				}
				schema.AppendRow(table.Row{f.Name, f.Type.String(), f.Nullable, ext})
			}
			schema.Render()

			if cols.Len() == 0 {
				_, _ = fmt.Fprintln(w, "(0 rows)")
				return nil
			}

			data := table.NewWriter()
			data.SetOutputMirror(w)
			data.SetStyle(table.StyleLight)
			data.AppendHeader(table.Row{"#", "lon", "lat", "alt", "intensity", "color"})
			for i := range min(rows, cols.Len()) {
				p := cols.Position(i)
				v := cols.Intensity(i)
				color := "-"
				if c, ok := colormap.Lookup(v); ok {
					color = fmt.Sprintf("%s a=%d", c.Hex(), c.A)
				}
				data.AppendRow(table.Row{i, p[0], p[1], p[2], strconv.FormatFloat(v, 'g', 6, 64), color})
			}
			if cols.Len() > rows {
				data.AppendFooter(table.Row{"", "", "", "", "", fmt.Sprintf("%d more", cols.Len()-rows)})
			}
			data.Render()
			return nil
		},
	}

	addClientFlags(cmd.Flags())
	cmd.Flags().IntVar(&rows, "rows", 5, "Number of rows to print")
	return cmd
}
