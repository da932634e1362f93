// Package tiles loads slippy map tile images from a {z}/{x}/{y} URL template.
package tiles

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/paulmach/orb/maptile"
)

// DefaultUserAgent identifies the loader to tile servers that require one.
const DefaultUserAgent = "pointmap/0.1 (+https://github.com/pointmap/pointmap)"

// maxTile caps the size of a single tile response.
const maxTile = 8 << 20

// Loader fetches one tile image.
type Loader interface {
	Load(ctx context.Context, template string, t maptile.Tile) (image.Image, error)
}

// Config holds configuration for an HTTPLoader.
type Config struct {
	UserAgent string
	Timeout   time.Duration
	Client    *http.Client
	Logger    *slog.Logger
}

// HTTPLoader loads tiles over HTTP.
type HTTPLoader struct {
	ua     string
	client *http.Client
	logger *slog.Logger
}

// NewHTTPLoader creates an HTTPLoader.
func NewHTTPLoader(cfg Config) *HTTPLoader {
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	ua := cfg.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &HTTPLoader{ua: ua, client: client, logger: logger}
}

// URL fills the {z}, {x} and {y} placeholders of template.
func URL(template string, t maptile.Tile) string {
	r := strings.NewReplacer(
		"{z}", strconv.Itoa(int(t.Z)),
		"{x}", strconv.FormatUint(uint64(t.X), 10),
		"{y}", strconv.FormatUint(uint64(t.Y), 10),
	)
	return r.Replace(template)
}

// Load downloads and decodes a PNG or JPEG tile.
func (l *HTTPLoader) Load(ctx context.Context, template string, t maptile.Tile) (image.Image, error) {
	u := URL(template, t)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("tile %s: %w", u, err)
	}
	req.Header.Set("User-Agent", l.ua)

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tile %s: %w", u, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tile %s: unexpected status %s", u, resp.Status)
	}

	img, format, err := image.Decode(io.LimitReader(resp.Body, maxTile))
	if err != nil {
		return nil, fmt.Errorf("tile %s: decode: %w", u, err)
	}
	l.logger.Debug("tile loaded", "url", u, "format", format)
	return img, nil
}
