package viewer

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pointmap/internal/colormap"
	"pointmap/internal/columnar"
	"pointmap/internal/fetch"
	"pointmap/internal/geom"
	"pointmap/internal/pointsapi"
	"pointmap/internal/scene"
)

type captureRenderer struct {
	calls  int
	colors []colormap.Color
	pos    [][3]float64
	scene  scene.Scene
}

func (c *captureRenderer) Render(_ context.Context, s scene.Scene) error {
	c.calls++
	c.scene = s
	l, ok := s.Layer(scene.PointLayerID)
	if !ok {
		return errors.New("no point layer")
	}
	sl := l.(*scene.ScatterLayer)
	for i := range sl.Len {
		c.colors = append(c.colors, sl.GetFillColor(i))
		c.pos = append(c.pos, sl.GetPosition(i))
	}
	return nil
}

func pointServer(t *testing.T, status int, body []byte) (*httptest.Server, *string) {
	t.Helper()
	var query string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.RawQuery
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		w.Header().Set("Content-Type", pointsapi.ContentType)
		_, _ = w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return srv, &query
}

func source(url string) *HTTPSource {
	return &HTTPSource{Fetcher: fetch.New(fetch.Config{Endpoint: url})}
}

func TestRunTwoPoints(t *testing.T) {
	body, err := columnar.EncodeBytes([]geom.Point{
		{Lon: 1, Lat: 1, Intensity: 0},
		{Lon: 2, Lat: 2, Intensity: 3},
	})
	require.NoError(t, err)
	srv, query := pointServer(t, http.StatusOK, body)

	r := &captureRenderer{}
	err = Run(context.Background(), source(srv.URL), pointsapi.ClientDefaults, scene.DefaultOptions(), r, nil)
	require.NoError(t, err)

	assert.Equal(t, "minx=0&maxx=90&miny=0&maxy=90&minz=0&maxz=4000&limit=100", *query)
	assert.Equal(t, 1, r.calls)
	assert.Equal(t, []colormap.Color{{R: 0, G: 0, B: 255, A: 200}, {R: 255, G: 0, B: 0, A: 200}}, r.colors)
	assert.Equal(t, [][3]float64{{1, 1, 0}, {2, 2, 0}}, r.pos)
	assert.Equal(t, scene.ViewState{Longitude: 20, Latitude: 20, Zoom: 4}, r.scene.InitialViewState)
}

func TestRunEmptyResponse(t *testing.T) {
	srv, _ := pointServer(t, http.StatusNoContent, nil)

	r := &captureRenderer{}
	err := Run(context.Background(), source(srv.URL), pointsapi.ClientDefaults, scene.DefaultOptions(), r, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, r.calls)
	assert.Empty(t, r.colors)
	_, ok := r.scene.Layer(scene.BaseLayerID)
	assert.True(t, ok)
}

func TestRunMissingIntensity(t *testing.T) {
	schema := arrow.NewSchema([]arrow.Field{
		{Name: columnar.FieldGeometry, Type: arrow.FixedSizeListOf(2, arrow.PrimitiveTypes.Float64)},
	}, nil)
	b := array.NewRecordBuilder(memory.DefaultAllocator, schema)
	defer b.Release()
	gb := b.Field(0).(*array.FixedSizeListBuilder)
	vb := gb.ValueBuilder().(*array.Float64Builder)
	gb.Append(true)
	vb.AppendValues([]float64{1, 1}, nil)
	rec := b.NewRecord()
	defer rec.Release()

	var buf bytes.Buffer
	w := ipc.NewWriter(&buf, ipc.WithSchema(schema))
	require.NoError(t, w.Write(rec))
	require.NoError(t, w.Close())

	srv, _ := pointServer(t, http.StatusOK, buf.Bytes())
	r := &captureRenderer{}
	err := Run(context.Background(), source(srv.URL), pointsapi.ClientDefaults, scene.DefaultOptions(), r, nil)

	var missing *columnar.MissingFieldError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, columnar.FieldIntensity, missing.Field)
	assert.Zero(t, r.calls, "nothing rendered")
}

func TestRunServerError(t *testing.T) {
	srv, _ := pointServer(t, http.StatusInternalServerError, nil)
	r := &captureRenderer{}
	err := Run(context.Background(), source(srv.URL), pointsapi.ClientDefaults, scene.DefaultOptions(), r, nil)

	var netErr *fetch.NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.Equal(t, http.StatusInternalServerError, netErr.Status)
	assert.Zero(t, r.calls)
}

func TestRunMalformedBody(t *testing.T) {
	srv, _ := pointServer(t, http.StatusOK, []byte("definitely not arrow"))
	r := &captureRenderer{}
	err := Run(context.Background(), source(srv.URL), pointsapi.ClientDefaults, scene.DefaultOptions(), r, nil)

	var fmtErr *columnar.FormatError
	require.ErrorAs(t, err, &fmtErr)
	assert.Zero(t, r.calls)
}
