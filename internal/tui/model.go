package tui

import (
	"context"
	"image"
	"log/slog"

	list "github.com/charmbracelet/bubbles/list"
	table "github.com/charmbracelet/bubbles/table"
	textarea "github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/muesli/termenv"

	"pointmap/internal/pointsapi"
	"pointmap/internal/scene"
	"pointmap/internal/tiles"
)

// ReloadFunc fetches a fresh scene for req. The returned func releases the
// scene's backing table.
type ReloadFunc func(ctx context.Context, req pointsapi.Request) (scene.Scene, func(), error)

// Options configure a Model.
type Options struct {
	Loader  tiles.Loader // nil disables the base map
	Reload  ReloadFunc   // nil disables the query editor
	Request pointsapi.Request
	Profile termenv.Profile
	Logger  *slog.Logger
}

type Model struct {
	ctx    context.Context
	logger *slog.Logger

	width  int
	height int

	showSidebar bool
	helpVisible bool

	view   scene.ViewState
	status string

	// Scene
	scene   scene.Scene
	base    *scene.TileLayer
	points  *scene.ScatterLayer
	release func()
	visible map[string]bool

	// Layer list
	l list.Model

	// Base map tiles at tileZoom; a nil image marks a failed load
	loader   tiles.Loader
	tileZoom int
	tiles    map[string]image.Image
	pending  map[string]bool
	profile  termenv.Profile

	// last laid out map size in cells
	mapW int
	mapH int

	// query editor
	queryMode bool
	ta        textarea.Model
	req       pointsapi.Request
	reload    ReloadFunc
	loading   bool

	// inspect popup
	inspectPopup string

	// hover state
	hovering    bool
	hoverCellX  int
	hoverCellY  int
	hoverMicX   int
	hoverMicY   int
	hoverPoint  bool
	hoverHasGeo bool
	hoverLon    float64
	hoverLat    float64

	// attributes table
	showAttrs bool
	tbl       table.Model
}

// New builds a Model showing s.
func New(ctx context.Context, s scene.Scene, opts Options) Model {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	m := Model{
		ctx:         ctx,
		logger:      logger,
		helpVisible: true,
		view:        s.InitialViewState,
		status:      "pointmap ready",
		visible: map[string]bool{
			scene.BaseLayerID:  opts.Loader != nil,
			scene.PointLayerID: true,
			extentLayerID:      false,
		},
		loader:   opts.Loader,
		tileZoom: -1,
		tiles:    map[string]image.Image{},
		pending:  map[string]bool{},
		profile:  opts.Profile,
		req:      opts.Request,
		reload:   opts.Reload,
	}
	m.setScene(s)

	// list setup
	d := list.NewDefaultDelegate()
	m.l = list.New(nil, d, 0, 0)
	m.l.Title = "Layers"
	m.l.SetShowHelp(false)
	m.l.SetShowStatusBar(false)
	m.l.SetFilteringEnabled(false)
	m.refreshLayers()
	// textarea setup
	m.ta = textarea.New()
	m.ta.Placeholder = "minx=0 maxx=90 miny=0 maxy=90 minz=0 maxz=4000 limit=100. Enter to fetch; Esc to cancel."
	m.ta.CharLimit = 0
	m.ta.SetWidth(50)
	m.ta.SetHeight(6)
	// attributes table setup
	m.tbl = table.New(table.WithFocused(true))
	m.tbl.SetHeight(12)
	return m
}

// setScene swaps in s, keeping the current camera.
func (m *Model) setScene(s scene.Scene) {
	m.scene = s
	m.base, m.points = nil, nil
	if l, ok := s.Layer(scene.BaseLayerID); ok {
		m.base, _ = l.(*scene.TileLayer)
	}
	if l, ok := s.Layer(scene.PointLayerID); ok {
		m.points, _ = l.(*scene.ScatterLayer)
	}
}

func (m Model) Init() tea.Cmd { return m.requestTiles() }

// Close releases the table behind a reloaded scene.
func (m Model) Close() {
	if m.release != nil {
		m.release()
	}
}
