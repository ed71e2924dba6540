package main

import "strconv"

// BoardKind tags which Monday.com board a table came from. Both kinds share
// the same normalization rules; the tag is used for logging and storage keys.
type BoardKind string

const (
	BoardDeals      BoardKind = "deals"
	BoardWorkOrders BoardKind = "work_orders"
)

// Reserved column titles present on every fetched row.
const (
	ColItemID   = "Item ID"
	ColItemName = "Item Name"
)

// Sentinel is the canonical placeholder for any missing, empty, or
// unparsable cell. The normalizer fills with it, the aggregator excludes it
// from sector grouping, and the prompt builders fall back to it; all three
// must agree on the value.
const Sentinel = "Unknown"

// Row maps a column title to a cell value. Raw cells are strings (or nil
// when the API returned no value); after normalization, cells in currency
// columns hold float64 and every other cell holds a non-empty string.
type Row map[string]any

// Table is an ordered sequence of rows sharing a column universe. Columns
// preserves board order; any row may be missing any column until normalized.
type Table struct {
	Columns []string
	Rows    []Row
}

func (t Table) Empty() bool {
	return len(t.Rows) == 0
}

// CellString renders a cell for display. Currency cells format without a
// forced decimal count; absent cells render as the sentinel.
func CellString(v any) string {
	switch c := v.(type) {
	case nil:
		return Sentinel
	case string:
		return c
	case float64:
		return strconv.FormatFloat(c, 'f', -1, 64)
	default:
		return Sentinel
	}
}

// CellFloat reads a cell as a number. Normalized currency cells are float64
// already; anything else counts as 0 rather than failing, matching the
// aggregator's best-effort contract.
func CellFloat(v any) float64 {
	f, ok := v.(float64)
	if !ok {
		return 0
	}
	return f
}

// Metrics is the fixed set of summary statistics derived from the two
// cleaned boards. Zero values are the documented defaults for empty or
// degenerate input, except TopSector which defaults to "None".
type Metrics struct {
	TotalPipelineValue float64
	ExpectedRevenue    float64
	TotalWorkOrders    int
	CompletedProjects  int
	ActiveProjects     int
	CompletionRate     string
	TopSector          string
}

// Display keys for the metrics mapping, used by the renderer, the snapshot
// store, and the LLM prompts. The agent prompt embeds these verbatim.
const (
	MetricTotalPipelineValue = "Total Pipeline Value"
	MetricExpectedRevenue    = "Expected Revenue"
	MetricCompletionRate     = "Work Order Completion Rate"
	MetricActiveProjects     = "Active Projects"
	MetricCompletedProjects  = "Completed Projects"
	MetricTotalWorkOrders    = "Total Work Orders"
	MetricTopSector          = "Top Sector"
)

// MetricOrder fixes the presentation order of the mapping.
var MetricOrder = []string{
	MetricTotalPipelineValue,
	MetricExpectedRevenue,
	MetricCompletionRate,
	MetricActiveProjects,
	MetricCompletedProjects,
	MetricTotalWorkOrders,
	MetricTopSector,
}

// Map returns the metrics as the named mapping consumed by display and
// prompt construction.
func (m Metrics) Map() map[string]any {
	return map[string]any{
		MetricTotalPipelineValue: m.TotalPipelineValue,
		MetricExpectedRevenue:    m.ExpectedRevenue,
		MetricCompletionRate:     m.CompletionRate,
		MetricActiveProjects:     m.ActiveProjects,
		MetricCompletedProjects:  m.CompletedProjects,
		MetricTotalWorkOrders:    m.TotalWorkOrders,
		MetricTopSector:          m.TopSector,
	}
}
