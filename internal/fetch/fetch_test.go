package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pointmap/internal/pointsapi"
)

func TestFetch(t *testing.T) {
	var gotQuery, gotAccept string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		gotAccept = r.Header.Get("Accept")
		switch r.URL.Query().Get("limit") {
		case "0":
			w.WriteHeader(http.StatusNoContent)
		case "500":
			http.Error(w, "pipeline failed", http.StatusInternalServerError)
		default:
			w.Header().Set("Content-Type", pointsapi.ContentType)
			_, _ = w.Write([]byte("arrow-bytes"))
		}
	}))
	defer srv.Close()

	f := New(Config{Endpoint: srv.URL, Timeout: 5 * time.Second})

	t.Run("ok", func(t *testing.T) {
		body, err := f.Fetch(context.Background(), pointsapi.ClientDefaults)
		require.NoError(t, err)
		assert.Equal(t, "arrow-bytes", string(body))
		assert.Equal(t, "minx=0&maxx=90&miny=0&maxy=90&minz=0&maxz=4000&limit=100", gotQuery)
		assert.Equal(t, pointsapi.ContentType, gotAccept)
	})

	t.Run("no content", func(t *testing.T) {
		req := pointsapi.ClientDefaults
		req.Limit = 0
		body, err := f.Fetch(context.Background(), req)
		require.NoError(t, err)
		assert.Nil(t, body)
	})

	t.Run("server error", func(t *testing.T) {
		req := pointsapi.ClientDefaults
		req.Limit = 500
		_, err := f.Fetch(context.Background(), req)
		var ne *NetworkError
		require.True(t, errors.As(err, &ne))
		assert.Equal(t, http.StatusInternalServerError, ne.Status)
		assert.Contains(t, ne.Error(), "pipeline failed")
	})
}

func TestFetchConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	endpoint := srv.URL
	srv.Close()

	_, err := New(Config{Endpoint: endpoint}).Fetch(context.Background(), pointsapi.ClientDefaults)
	var ne *NetworkError
	require.True(t, errors.As(err, &ne))
	assert.Zero(t, ne.Status)
}

func TestFetchHonoursContext(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := New(Config{Endpoint: srv.URL}).Fetch(ctx, pointsapi.ClientDefaults)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestFetchBodyLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("arrow-bytes"))
	}))
	defer srv.Close()

	tests := []struct {
		name    string
		max     int64
		wantErr bool
	}{
		{name: "exactly at limit", max: 11},
		{name: "over limit", max: 10, wantErr: true},
		{name: "default limit", max: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, err := New(Config{Endpoint: srv.URL, MaxBody: tt.max}).Fetch(context.Background(), pointsapi.ClientDefaults)
			if !tt.wantErr {
				require.NoError(t, err)
				assert.Equal(t, "arrow-bytes", string(body))
				return
			}
			var ne *NetworkError
			require.True(t, errors.As(err, &ne))
			assert.Equal(t, http.StatusOK, ne.Status)
			assert.Contains(t, ne.Error(), "exceeds 10 bytes")
			assert.Nil(t, body)
		})
	}
}
