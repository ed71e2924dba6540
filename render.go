package main

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
)

// RenderMetrics renders the metrics mapping as a two-column text table for
// Slack code blocks.
func RenderMetrics(m Metrics) string {
	values := m.Map()

	t := table.NewWriter()
	t.AppendHeader(table.Row{"Metric", "Value"})
	for _, key := range MetricOrder {
		t.AppendRow(table.Row{key, renderMetricValue(key, values[key])})
	}
	t.SetStyle(table.StyleLight)
	return t.Render()
}

func renderMetricValue(key string, v any) string {
	switch val := v.(type) {
	case float64:
		return formatMoney(val)
	case int:
		return fmt.Sprintf("%d", val)
	default:
		return fmt.Sprintf("%v", val)
	}
}

// RenderTablePreview renders up to maxRows rows of a cleaned table, with a
// footer counting what was cut. Column order follows the board.
func RenderTablePreview(tbl Table, maxRows int) string {
	t := table.NewWriter()

	header := make(table.Row, 0, len(tbl.Columns))
	for _, col := range tbl.Columns {
		header = append(header, col)
	}
	t.AppendHeader(header)

	shown := len(tbl.Rows)
	if maxRows > 0 && shown > maxRows {
		shown = maxRows
	}
	for _, row := range tbl.Rows[:shown] {
		cells := make(table.Row, 0, len(tbl.Columns))
		for _, col := range tbl.Columns {
			cells = append(cells, CellString(row[col]))
		}
		t.AppendRow(cells)
	}
	if shown < len(tbl.Rows) {
		t.AppendFooter(table.Row{fmt.Sprintf("… and %d more rows", len(tbl.Rows)-shown)})
	}

	t.SetStyle(table.StyleLight)
	return t.Render()
}
