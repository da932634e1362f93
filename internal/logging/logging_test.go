package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLevelGating(t *testing.T) {
	var buf bytes.Buffer
	logger, closeFn, err := New(Options{Level: "warn", Output: &buf})
	require.NoError(t, err)
	defer closeFn()

	logger.Info("hidden")
	logger.Warn("shown", "rows", 2)
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "msg=shown rows=2")
}

func TestNewFileSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pointmap.log")
	logger, closeFn, err := New(Options{Level: "debug", File: path})
	require.NoError(t, err)
	logger.Debug("to file")
	closeFn()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "to file")
}

func TestParseLevel(t *testing.T) {
	l, err := ParseLevel("DEBUG")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, l)

	_, err = ParseLevel("loud")
	assert.Error(t, err)
}

func TestMultiHandlerFansOut(t *testing.T) {
	var a, b bytes.Buffer
	h := &multiHandler{handlers: []slog.Handler{
		slog.NewTextHandler(&a, &slog.HandlerOptions{Level: slog.LevelDebug}),
		slog.NewTextHandler(&b, &slog.HandlerOptions{Level: slog.LevelError}),
	}}
	assert.True(t, h.Enabled(context.Background(), slog.LevelDebug))

	logger := slog.New(h).With("component", "test")
	logger.Info("one")
	logger.Error("two")
	assert.Contains(t, a.String(), "msg=one component=test")
	assert.Contains(t, a.String(), "msg=two")
	assert.NotContains(t, b.String(), "msg=one")
	assert.Contains(t, b.String(), "msg=two component=test")
}

type failWriter struct{ err error }

func (w failWriter) Write([]byte) (int, error) { return 0, w.err }

func TestMultiHandlerKeepsGoingAfterFailure(t *testing.T) {
	boom := errors.New("sink down")
	var ok bytes.Buffer
	h := &multiHandler{handlers: []slog.Handler{
		slog.NewTextHandler(failWriter{err: boom}, nil),
		slog.NewTextHandler(&ok, nil),
		slog.NewTextHandler(failWriter{err: boom}, nil),
	}}

	r := slog.NewRecord(time.Now(), slog.LevelInfo, "delivered", 0)
	err := h.Handle(context.Background(), r)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Len(t, err.(interface{ Unwrap() []error }).Unwrap(), 2)
	assert.Contains(t, ok.String(), "msg=delivered")
}
