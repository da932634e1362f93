package cli

import (
	"github.com/spf13/pflag"

	"pointmap/internal/fetch"
	"pointmap/internal/pointsapi"
	"pointmap/internal/tiles"
	"pointmap/internal/viewer"
)

// addClientFlags registers the endpoint and bounding-box flags shared by the
// client commands. Defaults are informational; config decides.
func addClientFlags(fs *pflag.FlagSet) {
	d := pointsapi.ClientDefaults
	fs.String("endpoint", "http://127.0.0.1:8000", "Points service base URL")
	fs.Duration("timeout", 0, "Request timeout (default: 30s, 0 disables)")
	fs.Float64("minx", d.Bounds.MinX, "Minimum longitude")
	fs.Float64("maxx", d.Bounds.MaxX, "Maximum longitude")
	fs.Float64("miny", d.Bounds.MinY, "Minimum latitude")
	fs.Float64("maxy", d.Bounds.MaxY, "Maximum latitude")
	fs.Float64("minz", d.Bounds.MinZ, "Minimum altitude")
	fs.Float64("maxz", d.Bounds.MaxZ, "Maximum altitude")
	fs.Int("limit", d.Limit, "Maximum number of points")
}

// addMapFlags registers the camera and base map flags.
func addMapFlags(fs *pflag.FlagSet) {
	fs.String("tile-url", "", "Base map tile URL template with {z}/{x}/{y}")
	fs.Float64("lon", 0, "Initial centre longitude")
	fs.Float64("lat", 0, "Initial centre latitude")
	fs.Float64("zoom", 0, "Initial zoom")
	fs.Bool("no-tiles", false, "Do not load a base map")
}

func (a *app) source() *viewer.HTTPSource {
	return &viewer.HTTPSource{
		Fetcher: fetch.New(fetch.Config{
			Endpoint: a.cfg.Client.Endpoint,
			Timeout:  a.cfg.Client.Timeout,
			Logger:   a.logger,
		}),
		Logger: a.logger,
	}
}

// tileLoader returns nil when the base map is disabled.
func (a *app) tileLoader(fs *pflag.FlagSet) tiles.Loader {
	if off, _ := fs.GetBool("no-tiles"); off {
		return nil
	}
	return tiles.NewHTTPLoader(tiles.Config{
		UserAgent: a.cfg.Map.UserAgent,
		Timeout:   a.cfg.Client.Timeout,
		Logger:    a.logger,
	})
}
