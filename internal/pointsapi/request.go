// Package pointsapi holds the wire contract of the points endpoint: the path,
// the media type and the bounding-box request encoded in the query string.
package pointsapi

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"pointmap/internal/geom"
)

const (
	// Path is the route of the points endpoint.
	Path = "/points"
	// ContentType is the media type of an Arrow IPC stream.
	ContentType = "application/vnd.apache.arrow.stream"
)

// Request selects at most Limit points inside Bounds.
type Request struct {
	Bounds geom.Extent
	Limit  int
}

// ClientDefaults is the request the viewer issues when nothing is configured.
var ClientDefaults = Request{
	Bounds: geom.Extent{MinX: 0, MaxX: 90, MinY: 0, MaxY: 90, MinZ: 0, MaxZ: 4000},
	Limit:  100,
}

// ServerDefaults fill in query parameters the caller omitted.
var ServerDefaults = Request{
	Bounds: geom.Extent{MinX: -180, MaxX: 180, MinY: -90, MaxY: 90, MinZ: 10, MaxZ: 30},
	Limit:  1000,
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Values encodes r in the parameter order used by the endpoint.
func (r Request) Values() url.Values {
	v := url.Values{}
	v.Set("minx", formatFloat(r.Bounds.MinX))
	v.Set("maxx", formatFloat(r.Bounds.MaxX))
	v.Set("miny", formatFloat(r.Bounds.MinY))
	v.Set("maxy", formatFloat(r.Bounds.MaxY))
	v.Set("minz", formatFloat(r.Bounds.MinZ))
	v.Set("maxz", formatFloat(r.Bounds.MaxZ))
	v.Set("limit", strconv.Itoa(r.Limit))
	return v
}

// Query renders the query string with keys in a stable, human order
// (url.Values.Encode would sort them alphabetically).
func (r Request) Query() string {
	v := r.Values()
	keys := []string{"minx", "maxx", "miny", "maxy", "minz", "maxz", "limit"}
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+url.QueryEscape(v.Get(k)))
	}
	return strings.Join(parts, "&")
}

// URL joins endpoint (scheme://host[/prefix]) with Path and the query.
func (r Request) URL(endpoint string) string {
	return strings.TrimRight(endpoint, "/") + Path + "?" + r.Query()
}

// ParseError reports a query parameter that could not be used.
type ParseError struct {
	Param string
	Value string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid %s=%q: %v", e.Param, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Parse reads a Request from query values, taking omitted parameters from
// defaults. Limit must not be negative.
func Parse(v url.Values, defaults Request) (Request, error) {
	r := defaults
	floats := []struct {
		key string
		dst *float64
	}{
		{"minx", &r.Bounds.MinX},
		{"maxx", &r.Bounds.MaxX},
		{"miny", &r.Bounds.MinY},
		{"maxy", &r.Bounds.MaxY},
		{"minz", &r.Bounds.MinZ},
		{"maxz", &r.Bounds.MaxZ},
	}
	for _, f := range floats {
		raw := strings.TrimSpace(v.Get(f.key))
		if raw == "" {
			continue
		}
		x, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return Request{}, &ParseError{Param: f.key, Value: raw, Err: err}
		}
		*f.dst = x
	}
	if raw := strings.TrimSpace(v.Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return Request{}, &ParseError{Param: "limit", Value: raw, Err: err}
		}
		if n < 0 {
			return Request{}, &ParseError{Param: "limit", Value: raw, Err: fmt.Errorf("must not be negative")}
		}
		r.Limit = n
	}
	return r, nil
}

// ParseQuery is Parse over a raw query string such as "minx=0&maxx=90".
func ParseQuery(q string, defaults Request) (Request, error) {
	q = strings.TrimPrefix(strings.TrimSpace(q), "?")
	// accept whitespace or newlines between pairs, as typed in the editor
	q = strings.Join(strings.Fields(strings.ReplaceAll(q, "&", " ")), "&")
	v, err := url.ParseQuery(q)
	if err != nil {
		return Request{}, err
	}
	return Parse(v, defaults)
}
