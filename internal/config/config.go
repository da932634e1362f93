// Package config loads pointmap settings from defaults, a YAML file, the
// environment and command-line flags, in increasing order of precedence.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"pointmap/internal/geom"
	"pointmap/internal/logging"
	"pointmap/internal/pointsapi"
	"pointmap/internal/scene"
)

// DefaultConfigFile is looked up in the working directory when --config is
// not given.
const DefaultConfigFile = "pointmap.yaml"

// EnvPrefix prefixes environment overrides; a double underscore separates
// sections, as in POINTMAP_CLIENT__ENDPOINT.
const EnvPrefix = "POINTMAP_"

// Config is the full settings tree.
type Config struct {
	Client ClientConfig `koanf:"client"`
	Server ServerConfig `koanf:"server"`
	Query  QueryConfig  `koanf:"query"`
	Map    MapConfig    `koanf:"map"`
	Export ExportConfig `koanf:"export"`
	Log    LogConfig    `koanf:"log"`

	// File is the config file that was read, if any.
	File string `koanf:"-"`
}

// ClientConfig points the viewer at a points service.
type ClientConfig struct {
	Endpoint string        `koanf:"endpoint"`
	Timeout  time.Duration `koanf:"timeout"`
}

// ServerConfig configures the points service.
type ServerConfig struct {
	Addr     string `koanf:"addr"`
	Database string `koanf:"database"`
}

// QueryConfig is the bounding box and row limit the viewer requests.
type QueryConfig struct {
	MinX  float64 `koanf:"minx"`
	MaxX  float64 `koanf:"maxx"`
	MinY  float64 `koanf:"miny"`
	MaxY  float64 `koanf:"maxy"`
	MinZ  float64 `koanf:"minz"`
	MaxZ  float64 `koanf:"maxz"`
	Limit int     `koanf:"limit"`
}

// MapConfig holds the base map and the initial camera.
type MapConfig struct {
	TileURL         string  `koanf:"tile_url"`
	MinZoom         int     `koanf:"min_zoom"`
	MaxZoom         int     `koanf:"max_zoom"`
	TileSize        int     `koanf:"tile_size"`
	Longitude       float64 `koanf:"longitude"`
	Latitude        float64 `koanf:"latitude"`
	Zoom            float64 `koanf:"zoom"`
	RadiusMinPixels int     `koanf:"radius_min_pixels"`
	UserAgent       string  `koanf:"user_agent"`
}

// ExportConfig sizes PNG exports.
type ExportConfig struct {
	Width  int    `koanf:"width"`
	Height int    `koanf:"height"`
	Out    string `koanf:"out"`
}

// LogConfig configures the logger.
type LogConfig struct {
	Level  string `koanf:"level"`
	File   string `koanf:"file"`
	SeqURL string `koanf:"seq_url"`
}

func defaults() map[string]any {
	q := pointsapi.ClientDefaults
	o := scene.DefaultOptions()
	return map[string]any{
		"client.endpoint":       "http://127.0.0.1:8000",
		"client.timeout":        "30s",
		"server.addr":           "127.0.0.1:8000",
		"server.database":       "pointmap.db",
		"query.minx":            q.Bounds.MinX,
		"query.maxx":            q.Bounds.MaxX,
		"query.miny":            q.Bounds.MinY,
		"query.maxy":            q.Bounds.MaxY,
		"query.minz":            q.Bounds.MinZ,
		"query.maxz":            q.Bounds.MaxZ,
		"query.limit":           q.Limit,
		"map.tile_url":          o.TileURL,
		"map.min_zoom":          o.MinZoom,
		"map.max_zoom":          o.MaxZoom,
		"map.tile_size":         o.TileSize,
		"map.longitude":         o.View.Longitude,
		"map.latitude":          o.View.Latitude,
		"map.zoom":              o.View.Zoom,
		"map.radius_min_pixels": o.RadiusMinPixels,
		"map.user_agent":        "",
		"export.width":          1024,
		"export.height":         768,
		"export.out":            "pointmap.png",
		"log.level":             "info",
		"log.file":              "",
		"log.seq_url":           "",
	}
}

// flagKeys maps flag names to config keys. Flags not listed are ignored.
var flagKeys = map[string]string{
	"endpoint":  "client.endpoint",
	"timeout":   "client.timeout",
	"addr":      "server.addr",
	"db":        "server.database",
	"minx":      "query.minx",
	"maxx":      "query.maxx",
	"miny":      "query.miny",
	"maxy":      "query.maxy",
	"minz":      "query.minz",
	"maxz":      "query.maxz",
	"limit":     "query.limit",
	"tile-url":  "map.tile_url",
	"zoom":      "map.zoom",
	"lon":       "map.longitude",
	"lat":       "map.latitude",
	"width":     "export.width",
	"height":    "export.height",
	"out":       "export.out",
	"log-level": "log.level",
	"log-file":  "log.file",
	"seq-url":   "log.seq_url",
}

// Load reads the configuration. cfgFile may be empty, in which case
// DefaultConfigFile is used when present. Only flags the user changed
// override lower layers.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	// 1. Defaults
	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file
	used := cfgFile
	if used == "" {
		if _, err := os.Stat(DefaultConfigFile); err == nil {
			used = DefaultConfigFile
		}
	}
	if used != "" {
		if err := k.Load(file.Provider(used), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", used, err)
		}
	}

	// 3. Environment: POINTMAP_CLIENT__ENDPOINT -> client.endpoint
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			key, ok := flagKeys[f.Name]
			if !ok || !f.Changed {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.File = used
	return &cfg, cfg.Validate()
}

// Validate checks values that would otherwise fail later and less clearly.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Client.Endpoint)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("client.endpoint: %q is not an http(s) URL", c.Client.Endpoint)
	}
	if c.Client.Timeout < 0 {
		return fmt.Errorf("client.timeout: must not be negative")
	}
	q := c.Query
	if q.MinX > q.MaxX || q.MinY > q.MaxY || q.MinZ > q.MaxZ {
		return fmt.Errorf("query: min exceeds max in [%g,%g]x[%g,%g]x[%g,%g]", q.MinX, q.MaxX, q.MinY, q.MaxY, q.MinZ, q.MaxZ)
	}
	if q.Limit < 0 {
		return fmt.Errorf("query.limit: must not be negative")
	}
	m := c.Map
	if m.MinZoom < 0 || m.MaxZoom < m.MinZoom {
		return fmt.Errorf("map: invalid zoom range %d..%d", m.MinZoom, m.MaxZoom)
	}
	if m.TileSize <= 0 {
		return fmt.Errorf("map.tile_size: must be positive")
	}
	if !strings.Contains(m.TileURL, "{z}") {
		return fmt.Errorf("map.tile_url: %q has no {z} placeholder", m.TileURL)
	}
	if c.Export.Width <= 0 || c.Export.Height <= 0 {
		return fmt.Errorf("export: invalid size %dx%d", c.Export.Width, c.Export.Height)
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}

// Request is the points request described by Query.
func (c *Config) Request() pointsapi.Request {
	q := c.Query
	return pointsapi.Request{
		Bounds: geom.Extent{MinX: q.MinX, MaxX: q.MaxX, MinY: q.MinY, MaxY: q.MaxY, MinZ: q.MinZ, MaxZ: q.MaxZ},
		Limit:  q.Limit,
	}
}

// SceneOptions is the scene composition described by Map. target is the
// renderer destination.
func (c *Config) SceneOptions(target string) scene.Options {
	m := c.Map
	return scene.Options{
		Target:          target,
		View:            scene.ViewState{Longitude: m.Longitude, Latitude: m.Latitude, Zoom: m.Zoom},
		TileURL:         m.TileURL,
		MinZoom:         m.MinZoom,
		MaxZoom:         m.MaxZoom,
		TileSize:        m.TileSize,
		RadiusMinPixels: m.RadiusMinPixels,
	}
}
