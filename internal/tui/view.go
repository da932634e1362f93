package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	lo := m.layout()

	// Header
	title := fmt.Sprintf(" pointmap ─ %d points ─ lon %.4f lat %.4f z%.2f ", m.rows(), m.view.Longitude, m.view.Latitude, m.view.Zoom)
	header := lipgloss.NewStyle().Width(lo.contentW).Render(titleStyle.Render(title))

	// Sidebar
	var sidebar string
	if m.showSidebar {
		sidebar = lipgloss.NewStyle().Width(lo.sidebarW).Render(m.l.View())
	}

	// Map viewport
	var mapView string
	switch {
	case m.showAttrs:
		colW := 0
		for _, c := range m.tbl.Columns() {
			colW += c.Width + 3
		}
		maxW := min(lo.mapW, max(32, colW))
		m.tbl.SetWidth(maxW - 4)
		m.tbl.SetHeight(min(lo.mapH-2, 20))
		attrsBox := boxStyle.Width(maxW).Render(m.tbl.View())
		mapView = lipgloss.Place(lo.mapW, lo.mapH, lipgloss.Center, lipgloss.Center, attrsBox)
	case m.queryMode:
		m.ta.SetWidth(lo.mapW)
		m.ta.SetHeight(min(lo.mapH, 12))
		mapView = lipgloss.NewStyle().Width(lo.mapW).Height(lo.mapH).Render(m.ta.View())
	case m.inspectPopup != "":
		maxPopupW := max(20, min(48, lo.contentW/2))
		box := boxStyle.MaxWidth(maxPopupW).Render(m.inspectPopup)
		mapView = lipgloss.Place(lo.mapW, lo.mapH, lipgloss.Left, lipgloss.Center, box)
	default:
		mapView = lipgloss.NewStyle().Width(lo.mapW).Height(lo.mapH).Render(m.renderMap(lo.mapW, lo.mapH))
	}

	var body string
	if m.showSidebar {
		body = lipgloss.JoinHorizontal(lipgloss.Top, sidebar, " ", mapView)
	} else {
		body = mapView
	}

	// Footer / help
	help := m.renderHelp()
	status := dimStyle.Render(" " + m.status + " ")
	coords := ""
	if m.hoverHasGeo {
		coords = dimStyle.Render(fmt.Sprintf("  lon=%.5f lat=%.5f  ", m.hoverLon, m.hoverLat))
	}
	left := lipgloss.JoinVertical(lipgloss.Left, status, help)
	spacerW := max(0, lo.contentW-lipgloss.Width(left)-lipgloss.Width(coords))
	right := lipgloss.Place(spacerW+lipgloss.Width(coords), 1, lipgloss.Right, lipgloss.Center, coords)
	footer := lipgloss.NewStyle().Width(lo.contentW).Render(lipgloss.JoinHorizontal(lipgloss.Top, left, right))

	ui := lipgloss.JoinVertical(lipgloss.Left, header, body, footer)
	return appStyle.Width(lo.contentW).Height(m.height).Render(ui)
}

func (m Model) renderHelp() string {
	if !m.helpVisible {
		return ""
	}
	keys := []string{
		"↑↓←→ pan",
		"+/- zoom",
		"f fit",
		"Tab layers",
		"1/2/3 toggle",
		"p query",
		"r reload",
		"a attrs",
		"i inspect",
		"h help",
		"q quit",
	}
	return dimStyle.Render(" " + strings.Join(keys, "  "))
}
