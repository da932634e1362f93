package tui

import (
	"fmt"
	"strconv"

	table "github.com/charmbracelet/bubbles/table"
)

// maxAttrRows caps the rows copied into the attributes table.
const maxAttrRows = 1000

// refreshAttrsFromCurrent rebuilds the table from the point layer.
func (m *Model) refreshAttrsFromCurrent() {
	rows := m.buildAttributes()
	if len(rows) == 0 {
		m.showAttrs = false
		m.status = "no rows in current table"
		return
	}
	tcols := []table.Column{
		{Title: "#", Width: 6},
		{Title: "lon", Width: 11},
		{Title: "lat", Width: 11},
		{Title: "alt", Width: 9},
		{Title: "intensity", Width: 10},
		{Title: "color", Width: 8},
	}
	// Avoid transient mismatch: clear rows, set columns, then set rows
	m.tbl.SetRows(nil)
	m.tbl.SetColumns(tcols)
	m.tbl.SetRows(rows)
	if m.points.Len > maxAttrRows {
		m.status = fmt.Sprintf("attrs: first %d of %d rows", maxAttrRows, m.points.Len)
	}
}

// buildAttributes formats the leading rows of the point layer.
func (m *Model) buildAttributes() []table.Row {
	if m.points == nil {
		return nil
	}
	n := min(m.points.Len, maxAttrRows)
	rows := make([]table.Row, 0, n)
	for i := range n {
		p := m.points.GetPosition(i)
		c := m.points.GetFillColor(i)
		hex := "-"
		if c.A != 0 {
			hex = c.Hex()
		}
		rows = append(rows, table.Row{
			strconv.Itoa(i),
			formatCoord(p[0]),
			formatCoord(p[1]),
			strconv.FormatFloat(p[2], 'f', 1, 64),
			m.intensityText(i),
			hex,
		})
	}
	return rows
}

// intensityText formats the raw intensity of row i.
func (m *Model) intensityText(i int) string {
	if m.points.GetIntensity == nil {
		return ""
	}
	return strconv.FormatFloat(m.points.GetIntensity(i), 'g', 6, 64)
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', 5, 64)
}
