package tui

import (
	"context"
	"errors"
	"image"
	"image/color"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/muesli/termenv"
	"github.com/paulmach/orb/maptile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pointmap/internal/colormap"
	"pointmap/internal/columnar"
	"pointmap/internal/geom"
	"pointmap/internal/pointsapi"
	"pointmap/internal/scene"
)

func composeScene(t *testing.T, pts []geom.Point) (scene.Scene, func()) {
	t.Helper()
	buf, err := columnar.EncodeBytes(pts)
	require.NoError(t, err)
	tbl, err := columnar.Decode(buf)
	require.NoError(t, err)
	cols, err := columnar.Resolve(tbl)
	require.NoError(t, err)
	return scene.Compose(cols, scene.DefaultOptions()), tbl.Release
}

var twoPoints = []geom.Point{
	{Lon: 1, Lat: 1, Intensity: 0},
	{Lon: 2, Lat: 2, Intensity: 3},
}

func newTestModel(t *testing.T, opts Options) Model {
	t.Helper()
	s, release := composeScene(t, twoPoints)
	t.Cleanup(release)
	if opts.Request == (pointsapi.Request{}) {
		opts.Request = pointsapi.ClientDefaults
	}
	opts.Profile = termenv.Ascii
	m := New(context.Background(), s, opts)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	return next.(Model)
}

func press(t *testing.T, m Model, keys ...string) (Model, tea.Cmd) {
	t.Helper()
	var cmd tea.Cmd
	for _, k := range keys {
		var msg tea.KeyMsg
		switch k {
		case "enter":
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		case "esc":
			msg = tea.KeyMsg{Type: tea.KeyEsc}
		case "tab":
			msg = tea.KeyMsg{Type: tea.KeyTab}
		case "left":
			msg = tea.KeyMsg{Type: tea.KeyLeft}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		var next tea.Model
		next, cmd = m.Update(msg)
		m = next.(Model)
	}
	return m, cmd
}

func hasBraille(s string) bool {
	return strings.ContainsFunc(s, func(r rune) bool { return r > 0x2800 && r <= 0x28FF })
}

func TestBrailleBits(t *testing.T) {
	red := colormap.Color{R: 255, A: 200}
	tests := []struct {
		name   string
		mx, my int
		want   rune
	}{
		{"top left", 0, 0, 0x2801},
		{"bottom left", 0, 3, 0x2840},
		{"top right", 1, 0, 0x2808},
		{"bottom right", 1, 3, 0x2880},
		{"second cell", 2, 1, 0x2802},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newBrailleBuf(2, 1)
			b.setPixel(tt.mx, tt.my, red)
			assert.Equal(t, tt.want, b.glyph(tt.mx/2, 0))
			assert.Equal(t, red, b.c[0][tt.mx/2])
		})
	}

	b := newBrailleBuf(2, 1)
	b.setPixel(-1, 0, red)
	b.setPixel(4, 0, red)
	assert.Equal(t, "  ", string([]rune{b.glyph(0, 0), b.glyph(1, 0)}), "out of range pixels are dropped")

	b.drawLineMicro(0, 0, 3, 0, red)
	assert.Equal(t, "⠉⠉", string([]rune{b.glyph(0, 0), b.glyph(1, 0)}))
}

func TestZoomAndPan(t *testing.T) {
	m := newTestModel(t, Options{})
	assert.Equal(t, 4.0, m.view.Zoom)

	m, _ = press(t, m, "+", "+")
	assert.Equal(t, 4.5, m.view.Zoom)
	m, _ = press(t, m, "-")
	assert.Equal(t, 4.25, m.view.Zoom)

	before := m.view.Longitude
	m, _ = press(t, m, "left")
	assert.Less(t, m.view.Longitude, before)
	assert.InDelta(t, 20, m.view.Latitude, 1e-9)

	for range 30 {
		m, _ = press(t, m, "-")
	}
	assert.Equal(t, 0.0, m.view.Zoom)
}

func TestQuit(t *testing.T) {
	m := newTestModel(t, Options{})
	_, cmd := press(t, m, "q")
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestFitShowsPoints(t *testing.T) {
	m := newTestModel(t, Options{})
	assert.False(t, hasBraille(m.renderMap(m.mapW, m.mapH)), "points are off screen at the initial view")

	m, _ = press(t, m, "f")
	assert.InDelta(t, 1.5, m.view.Longitude, 1e-9)
	out := m.renderMap(m.mapW, m.mapH)
	assert.True(t, hasBraille(out))
	assert.Len(t, strings.Split(out, "\n"), m.mapH)

	m, _ = press(t, m, "2")
	assert.False(t, m.visible[scene.PointLayerID])
	assert.False(t, hasBraille(m.renderMap(m.mapW, m.mapH)))
}

func TestExtentLayer(t *testing.T) {
	m := newTestModel(t, Options{})
	assert.False(t, hasBraille(m.renderMap(m.mapW, m.mapH)))

	// the 0..90 request box edges are visible from zoom 0
	m, _ = press(t, m, "2", "3")
	assert.True(t, m.visible[extentLayerID])
	m.view.Zoom = 0
	assert.True(t, hasBraille(m.renderMap(m.mapW, m.mapH)))
}

func TestInspectAndAttrs(t *testing.T) {
	m := newTestModel(t, Options{})
	m, _ = press(t, m, "f", "i")
	assert.Contains(t, m.inspectPopup, "row: ")
	assert.Contains(t, m.inspectPopup, "intensity: ")
	assert.Contains(t, m.View(), "crs: EPSG:4326")

	m, _ = press(t, m, "i")
	assert.Empty(t, m.inspectPopup)

	m, _ = press(t, m, "a")
	require.True(t, m.showAttrs)
	rows := m.tbl.Rows()
	require.Len(t, rows, 2)
	assert.Equal(t, "#0000ff", rows[0][5])
	assert.Equal(t, "#ff0000", rows[1][5])
	assert.Equal(t, "3", rows[1][4])
	assert.Equal(t, "2.00000", rows[1][1])
}

func TestHover(t *testing.T) {
	m := newTestModel(t, Options{})
	m, _ = press(t, m, "f")
	lo := m.layout()

	next, _ := m.Update(tea.MouseMsg{X: lo.mapX + lo.mapW/2, Y: lo.mapY + lo.mapH/2, Action: tea.MouseActionMotion})
	m = next.(Model)
	require.True(t, m.hoverHasGeo)
	assert.InDelta(t, 1.5, m.hoverLon, 0.5)
	assert.InDelta(t, 1.5, m.hoverLat, 0.5)

	next, _ = m.Update(tea.MouseMsg{X: 0, Y: 0, Action: tea.MouseActionMotion})
	m = next.(Model)
	assert.False(t, m.hoverHasGeo)
}

func TestQueryEditorReload(t *testing.T) {
	var got pointsapi.Request
	released := 0
	reload := func(_ context.Context, req pointsapi.Request) (scene.Scene, func(), error) {
		got = req
		s, release := composeScene(t, []geom.Point{{Lon: 5, Lat: 5, Intensity: 1}})
		return s, func() { released++; release() }, nil
	}
	m := newTestModel(t, Options{Reload: reload})

	m, _ = press(t, m, "p")
	require.True(t, m.queryMode)
	assert.Equal(t, "minx=0 maxx=90 miny=0 maxy=90 minz=0 maxz=4000 limit=100", m.ta.Value())

	m.ta.SetValue("minx=1 limit=7")
	m, cmd := press(t, m, "enter")
	require.NotNil(t, cmd)
	assert.False(t, m.queryMode)

	next, _ := m.Update(cmd())
	m = next.(Model)
	assert.Equal(t, 7, got.Limit)
	assert.Equal(t, 1.0, got.Bounds.MinX)
	assert.Equal(t, got, m.req)
	assert.Equal(t, 1, m.rows())
	assert.Equal(t, "fetched 1 rows", m.status)

	m, cmd = press(t, m, "r")
	require.NotNil(t, cmd)
	next, _ = m.Update(cmd())
	m = next.(Model)
	assert.Equal(t, 1, released, "previous reload released")
	m.Close()
	assert.Equal(t, 2, released)
}

func TestQueryEditorErrors(t *testing.T) {
	reload := func(context.Context, pointsapi.Request) (scene.Scene, func(), error) {
		return scene.Scene{}, nil, errors.New("server down")
	}
	m := newTestModel(t, Options{Reload: reload})

	m, _ = press(t, m, "p")
	m.ta.SetValue("limit=-3")
	m, cmd := press(t, m, "enter")
	assert.Nil(t, cmd)
	assert.True(t, m.queryMode)
	assert.Contains(t, m.status, "query error")

	m.ta.SetValue("limit=3")
	m, cmd = press(t, m, "enter")
	require.NotNil(t, cmd)
	next, _ := m.Update(cmd())
	m = next.(Model)
	assert.Equal(t, "reload error: server down", m.status)
	assert.Equal(t, 2, m.rows(), "previous scene kept")
}

func TestQueryEditorWaitsForFetch(t *testing.T) {
	calls := 0
	reload := func(context.Context, pointsapi.Request) (scene.Scene, func(), error) {
		calls++
		s, release := composeScene(t, []geom.Point{{Lon: 5, Lat: 5, Intensity: 1}})
		return s, release, nil
	}
	m := newTestModel(t, Options{Reload: reload})

	m, first := press(t, m, "r")
	require.NotNil(t, first)
	require.True(t, m.loading)

	m, _ = press(t, m, "p")
	m.ta.SetValue("limit=5")
	m, cmd := press(t, m, "enter")
	assert.Nil(t, cmd)
	assert.True(t, m.queryMode)
	assert.Equal(t, "fetch in progress", m.status)

	next, _ := m.Update(first())
	m = next.(Model)
	assert.False(t, m.loading)
	m, cmd = press(t, m, "enter")
	require.NotNil(t, cmd)
	assert.False(t, m.queryMode)
	assert.Equal(t, 1, calls)
	m.Close()
}

type fakeLoader struct{}

func (fakeLoader) Load(_ context.Context, _ string, t maptile.Tile) (image.Image, error) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(0, 0, color.RGBA{G: uint8(t.X), A: 255})
	return img, nil
}

func TestTilesLoadThroughCommands(t *testing.T) {
	s, release := composeScene(t, twoPoints)
	defer release()
	m := New(context.Background(), s, Options{Loader: fakeLoader{}, Request: pointsapi.ClientDefaults, Profile: termenv.TrueColor})

	next, cmd := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	m = next.(Model)
	require.NotNil(t, cmd)
	assert.Equal(t, 4, m.tileZoom)
	require.NotEmpty(t, m.pending)

	var msgs []tea.Msg
	switch msg := cmd().(type) {
	case tea.BatchMsg:
		for _, c := range msg {
			msgs = append(msgs, c())
		}
	default:
		msgs = append(msgs, msg)
	}
	for _, msg := range msgs {
		next, _ = m.Update(msg)
		m = next.(Model)
	}
	assert.Empty(t, m.pending)
	assert.Len(t, m.tiles, len(msgs))
	assert.Len(t, m.bitmaps(), len(msgs))

	// a different tile zoom drops the cache
	m, _ = press(t, m, "+", "+", "+")
	assert.Equal(t, 5, m.tileZoom)
	assert.NotEmpty(t, m.pending)
	for key := range m.tiles {
		assert.True(t, strings.HasPrefix(key, "5/"))
	}
}

func TestLayerSidebar(t *testing.T) {
	m := newTestModel(t, Options{})
	full := m.mapW
	m, _ = press(t, m, "tab")
	require.True(t, m.showSidebar)
	assert.Equal(t, full-sidebarWidth, m.mapW)
	require.Len(t, m.l.Items(), 3)

	// base map has no tile source, first item cannot be enabled
	m, _ = press(t, m, "enter")
	assert.False(t, m.visible[scene.BaseLayerID])
	assert.Equal(t, "base map: no tile source", m.status)

	assert.Contains(t, m.View(), "Layers")
}
