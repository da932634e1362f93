// Package raster renders a scene to a PNG image without a terminal.
package raster

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"log/slog"
	"math"
	"os"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/sync/errgroup"

	"pointmap/internal/scene"
	"pointmap/internal/tiles"
)

// fetchLimit bounds concurrent tile downloads.
const fetchLimit = 4

// Renderer draws scenes onto a Width x Height canvas.
type Renderer struct {
	Width  int
	Height int
	Loader tiles.Loader // nil draws no base map
	Logger *slog.Logger
}

func (r *Renderer) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return r.Logger
}

// Render draws s and writes it as PNG to the file named by s.Target.
func (r *Renderer) Render(ctx context.Context, s scene.Scene) error {
	img, err := r.Draw(ctx, s)
	if err != nil {
		return err
	}
	f, err := os.Create(s.Target)
	if err != nil {
		return fmt.Errorf("create %s: %w", s.Target, err)
	}
	if err := png.Encode(f, img); err != nil {
		_ = f.Close()
		return fmt.Errorf("encode %s: %w", s.Target, err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	r.logger().Info("png written", "path", s.Target, "width", r.Width, "height", r.Height)
	return nil
}

// Draw renders s at its initial view state. Tiles that fail to load are left
// blank.
func (r *Renderer) Draw(ctx context.Context, s scene.Scene) (*image.RGBA, error) {
	if r.Width <= 0 || r.Height <= 0 {
		return nil, fmt.Errorf("raster: invalid canvas %dx%d", r.Width, r.Height)
	}
	vp := scene.Viewport{View: s.InitialViewState, Width: r.Width, Height: r.Height}
	canvas := image.NewRGBA(image.Rect(0, 0, r.Width, r.Height))

	for _, l := range s.Layers {
		switch l := l.(type) {
		case *scene.TileLayer:
			if err := r.drawTiles(ctx, canvas, vp, l); err != nil {
				return nil, err
			}
		case *scene.ScatterLayer:
			drawPoints(canvas, vp, l)
		}
	}
	return canvas, nil
}

func (r *Renderer) drawTiles(ctx context.Context, dst *image.RGBA, vp scene.Viewport, l *scene.TileLayer) error {
	if r.Loader == nil {
		return nil
	}
	idx := vp.Tiles(l.ClampZoom(vp.View.Zoom))
	loaded := make([]image.Image, len(idx))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchLimit)
	for i, t := range idx {
		g.Go(func() error {
			img, err := r.Loader.Load(gctx, l.Data, t)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				r.logger().Warn("tile skipped", "tile", scene.TileKey(t), "err", err)
				return nil
			}
			loaded[i] = img
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i, t := range idx {
		bm, ok := l.RenderSubLayers(scene.Tile{Index: t, Content: loaded[i]})
		if !ok {
			continue
		}
		x0, y0 := vp.Project(bm.Bounds.Min.Lon(), bm.Bounds.Max.Lat())
		x1, y1 := vp.Project(bm.Bounds.Max.Lon(), bm.Bounds.Min.Lat())
		rect := image.Rect(int(math.Round(x0)), int(math.Round(y0)), int(math.Round(x1)), int(math.Round(y1)))
		xdraw.ApproxBiLinear.Scale(dst, rect, bm.Image, bm.Image.Bounds(), xdraw.Over, nil)
	}
	return nil
}

func drawPoints(dst *image.RGBA, vp scene.Viewport, l *scene.ScatterLayer) {
	radius := max(1, l.RadiusMinPixels)
	for i := range l.Len {
		pos := l.GetPosition(i)
		if math.IsNaN(pos[0]) || math.IsNaN(pos[1]) {
			continue
		}
		c := l.GetFillColor(i)
		if c.A == 0 {
			continue
		}
		x, y := vp.Project(pos[0], pos[1])
		p := image.Pt(int(math.Round(x)), int(math.Round(y)))
		m := disc{p: p, r: radius}
		draw.DrawMask(dst, m.Bounds(), image.NewUniform(c.NRGBA()), image.Point{}, m, m.Bounds().Min, draw.Over)
	}
}

// disc is an opaque circular mask.
type disc struct {
	p image.Point
	r int
}

func (d disc) ColorModel() color.Model { return color.AlphaModel }

func (d disc) Bounds() image.Rectangle {
	return image.Rect(d.p.X-d.r, d.p.Y-d.r, d.p.X+d.r+1, d.p.Y+d.r+1)
}

func (d disc) At(x, y int) color.Color {
	dx, dy := x-d.p.X, y-d.p.Y
	if dx*dx+dy*dy <= d.r*d.r {
		return color.Alpha{A: 255}
	}
	return color.Alpha{}
}
