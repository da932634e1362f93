// Package fetch downloads point tables from the points endpoint.
package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"pointmap/internal/pointsapi"
)

// NetworkError reports a request that did not produce a usable body.
type NetworkError struct {
	URL    string
	Status int // 0 when no response arrived
	Err    error
}

func (e *NetworkError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("GET %s: unexpected status %d: %v", e.URL, e.Status, e.Err)
	}
	return fmt.Sprintf("GET %s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// Config holds configuration for a Fetcher.
type Config struct {
	Endpoint string        // scheme://host[:port] of the points service
	Timeout  time.Duration // zero means no timeout
	Client   *http.Client  // defaults to a client with Timeout
	MaxBody  int64         // response size cap in bytes; zero means DefaultMaxBody
	Logger   *slog.Logger
}

// Fetcher issues one GET per call. It never retries.
type Fetcher struct {
	endpoint string
	client   *http.Client
	maxBody  int64
	logger   *slog.Logger
}

// New creates a Fetcher.
func New(cfg Config) *Fetcher {
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	maxBody := cfg.MaxBody
	if maxBody <= 0 {
		maxBody = DefaultMaxBody
	}
	return &Fetcher{endpoint: cfg.Endpoint, client: client, maxBody: maxBody, logger: logger}
}

// DefaultMaxBody caps the size of a response read into memory.
const DefaultMaxBody = 1 << 30

// Fetch returns the raw response body for req. A 204 No Content response
// returns a nil buffer and no error.
func (f *Fetcher) Fetch(ctx context.Context, req pointsapi.Request) ([]byte, error) {
	u := req.URL(f.endpoint)
	hreq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, &NetworkError{URL: u, Err: err}
	}
	hreq.Header.Set("Accept", pointsapi.ContentType)

	start := time.Now()
	resp, err := f.client.Do(hreq)
	if err != nil {
		return nil, &NetworkError{URL: u, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNoContent {
		f.logger.Debug("points fetched", "url", u, "status", resp.StatusCode, "bytes", 0, "elapsed", time.Since(start))
		return nil, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &NetworkError{URL: u, Status: resp.StatusCode, Err: fmt.Errorf("%s", bytesOrStatus(msg, resp.Status))}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBody+1))
	if err != nil {
		return nil, &NetworkError{URL: u, Status: resp.StatusCode, Err: err}
	}
	if int64(len(body)) > f.maxBody {
		return nil, &NetworkError{URL: u, Status: resp.StatusCode, Err: fmt.Errorf("response exceeds %d bytes", f.maxBody)}
	}
	f.logger.Debug("points fetched", "url", u, "status", resp.StatusCode, "bytes", len(body), "elapsed", time.Since(start))
	return body, nil
}

func bytesOrStatus(b []byte, status string) string {
	if len(b) == 0 {
		return status
	}
	return string(b)
}
