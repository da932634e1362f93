// Package server serves stored points as Arrow IPC streams.
package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/sync/errgroup"

	"pointmap/internal/columnar"
	"pointmap/internal/geom"
	"pointmap/internal/pointsapi"
)

// PointSource answers bounding-box queries.
type PointSource interface {
	QueryPoints(ctx context.Context, req pointsapi.Request) ([]geom.Point, error)
}

// Config holds configuration for the points server.
type Config struct {
	Addr     string
	Source   PointSource
	Defaults pointsapi.Request // applied to absent query parameters
	Logger   *slog.Logger
}

// Server is the points HTTP service.
type Server struct {
	addr     string
	source   PointSource
	defaults pointsapi.Request
	logger   *slog.Logger
}

// New creates a Server.
func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	defaults := cfg.Defaults
	if defaults == (pointsapi.Request{}) {
		defaults = pointsapi.ServerDefaults
	}
	return &Server{addr: cfg.Addr, source: cfg.Source, defaults: defaults, logger: logger}
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewMux()
	r.Use(
		middleware.RequestID,
		middleware.Recoverer,
		s.requestLogger,
		cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodPost},
			AllowedHeaders: []string{"*"},
		}),
	)
	r.Get(pointsapi.Path, s.handlePoints)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	return r
}

// Serve listens on the configured address and blocks until ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.addr, err)
	}
	s.logger.Info("starting points server", "addr", "http://"+ln.Addr().String())

	eg, egctx := errgroup.WithContext(ctx)
	srv := &http.Server{
		Handler: s.Handler(),
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	eg.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Debug("shutting down points server")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

func (s *Server) handlePoints(w http.ResponseWriter, r *http.Request) {
	req, err := pointsapi.Parse(r.URL.Query(), s.defaults)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	pts, err := s.source.QueryPoints(r.Context(), req)
	if err != nil {
		s.logger.Error("query points", "err", err, "request_id", middleware.GetReqID(r.Context()))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if len(pts) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	var buf bytes.Buffer
	if err := columnar.Encode(&buf, pts); err != nil {
		s.logger.Error("encode points", "err", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", pointsapi.ContentType)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"query", r.URL.RawQuery,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"elapsed", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
