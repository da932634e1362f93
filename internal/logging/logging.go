// Package logging builds the structured logger shared by every command.
package logging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	slogseq "github.com/sokkalf/slog-seq"
)

// Options selects where records go and which levels pass.
type Options struct {
	Level  string // debug|info|warn|error
	File   string // append text records here instead of Output
	Output io.Writer
	SeqURL string // optional Seq ingestion endpoint
}

// multiHandler forwards log records to multiple handlers
type multiHandler struct {
	handlers []slog.Handler
}

func (m *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range m.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle passes r to every enabled handler; a failing sink does not stop
// the others.
func (m *multiHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range m.handlers {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	handlers := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		handlers[i] = h.WithAttrs(attrs)
	}
	return &multiHandler{handlers: handlers}
}

func (m *multiHandler) WithGroup(name string) slog.Handler {
	handlers := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		handlers[i] = h.WithGroup(name)
	}
	return &multiHandler{handlers: handlers}
}

// ParseLevel maps a level name to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
	return l, nil
}

// New builds a logger from opts and returns a function that flushes and
// closes whatever sinks it opened.
func New(opts Options) (*slog.Logger, func(), error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, nil, err
	}

	var closers []func()
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	if opts.File != "" {
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		out = f
		closers = append(closers, func() { _ = f.Close() })
	}

	handlers := []slog.Handler{
		slog.NewTextHandler(out, &slog.HandlerOptions{Level: level}),
	}

	if opts.SeqURL != "" {
		_, seqHandler := slogseq.NewLogger(
			opts.SeqURL,
			slogseq.WithBatchSize(50),
			slogseq.WithFlushInterval(500*time.Millisecond),
			slogseq.WithHandlerOptions(&slog.HandlerOptions{Level: level}),
		)
		// If Seq is not available, use the text sink only
		if seqHandler != nil {
			handlers = append(handlers, seqHandler)
			closers = append(closers, func() { seqHandler.Close() })
		}
	}

	closeFn := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	if len(handlers) == 1 {
		return slog.New(handlers[0]), closeFn, nil
	}
	return slog.New(&multiHandler{handlers: handlers}), closeFn, nil
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
