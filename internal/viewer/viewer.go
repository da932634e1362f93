// Package viewer runs the client pipeline: fetch a point table, resolve its
// columns, compose a scene and hand it to a renderer.
package viewer

import (
	"context"
	"fmt"
	"log/slog"

	"pointmap/internal/columnar"
	"pointmap/internal/fetch"
	"pointmap/internal/pointsapi"
	"pointmap/internal/scene"
)

// previewRows is how many geometries Load logs at debug level.
const previewRows = 5

// TableSource produces a decoded point table for a request.
type TableSource interface {
	Table(ctx context.Context, req pointsapi.Request) (*columnar.Table, error)
}

// HTTPSource fetches tables from the points service.
type HTTPSource struct {
	Fetcher *fetch.Fetcher
	Logger  *slog.Logger
}

// Table fetches and decodes one table. An empty response yields an empty
// table with the point schema.
func (s *HTTPSource) Table(ctx context.Context, req pointsapi.Request) (*columnar.Table, error) {
	buf, err := s.Fetcher.Fetch(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(buf) == 0 {
		return columnar.Empty(), nil
	}
	return columnar.Decode(buf)
}

// Load fetches a table and resolves its columns. The caller releases the
// returned table.
func Load(ctx context.Context, src TableSource, req pointsapi.Request, logger *slog.Logger) (*columnar.Table, columnar.Columns, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	tbl, err := src.Table(ctx, req)
	if err != nil {
		return nil, columnar.Columns{}, fmt.Errorf("load points: %w", err)
	}
	logger.Debug("table decoded", "rows", tbl.NumRows(), "cols", tbl.NumCols(), "fields", tbl.FieldNames())

	cols, err := columnar.Resolve(tbl)
	if err != nil {
		tbl.Release()
		return nil, columnar.Columns{}, fmt.Errorf("load points: %w", err)
	}
	for i := range min(previewRows, cols.Len()) {
		logger.Debug("geometry", "row", i, "position", cols.Position(i))
	}
	return tbl, cols, nil
}

// Run performs fetch, decode, column access, composition and rendering.
// Any failure aborts before rendering.
func Run(ctx context.Context, src TableSource, req pointsapi.Request, opts scene.Options, r scene.Renderer, logger *slog.Logger) error {
	tbl, cols, err := Load(ctx, src, req, logger)
	if err != nil {
		return err
	}
	defer tbl.Release()

	return r.Render(ctx, scene.Compose(cols, opts))
}
