package main

import (
	"log"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// Role keyword sets for column classification. Matching is case-insensitive
// substring membership against the column title. The aggregator uses a
// narrower currency list (no "budget") than the normalizer; both lists live
// here so the asymmetry is visible in one place.
var (
	dateKeywords           = []string{"date"}
	currencyKeywords       = []string{"revenue", "value", "amount", "budget"}
	metricCurrencyKeywords = []string{"revenue", "value", "amount"}
	statusKeywords         = []string{"status", "stage"}
	sectorKeywords         = []string{"sector", "industry"}

	// Work-order metrics key off "status" alone; "stage" is a deals term.
	workOrderStatusKeywords = []string{"status"}
)

// statusSynonyms maps title-cased status labels to their canonical form.
var statusSynonyms = map[string]string{
	"In-Progress": "In Progress",
	"Done":        "Completed",
}

// dateLayouts are tried in order when coercing date cells. Lenient on
// single-digit months and days.
var dateLayouts = []string{
	"2006-01-02",
	"2006-1-2",
	"2006/01/02",
	"2006/1/2",
	"01/02/2006",
	"1/2/2006",
	"02.01.2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// Roles holds every column matching each role, in table order. The selected
// column for downstream use is always the first match; that tie-break is a
// fixed convention of the pipeline, not a semantic choice, and it decides
// which of several candidate columns drives every dependent metric.
type Roles struct {
	Date     []string
	Currency []string
	Status   []string
	Sector   []string
}

// DetectRoles classifies column titles into roles in a single pass. A title
// may satisfy more than one keyword set; it is then handled by every
// matching coercion step.
func DetectRoles(columns []string) Roles {
	return Roles{
		Date:     matchColumns(columns, dateKeywords),
		Currency: matchColumns(columns, currencyKeywords),
		Status:   matchColumns(columns, statusKeywords),
		Sector:   matchColumns(columns, sectorKeywords),
	}
}

func matchColumns(columns, keywords []string) []string {
	var out []string
	for _, col := range columns {
		if matchesAny(col, keywords) {
			out = append(out, col)
		}
	}
	return out
}

func matchesAny(s string, keywords []string) bool {
	lower := strings.ToLower(s)
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// firstMatch returns the first column (in table order) whose title contains
// any keyword, or "" when none does.
func firstMatch(columns, keywords []string) string {
	for _, col := range columns {
		if matchesAny(col, keywords) {
			return col
		}
	}
	return ""
}

// Normalize cleans one raw board table: fills every gap with the sentinel,
// coerces date, currency, sector, and status columns to canonical form, and
// drops duplicate Item IDs keeping the first occurrence. An empty table is
// returned unchanged. Malformed cells degrade to defaults; the function
// never fails.
func Normalize(t Table, kind BoardKind) Table {
	if t.Empty() {
		return t
	}

	roles := DetectRoles(t.Columns)
	log.Printf("normalize board=%s rows=%d cols=%d date=%d currency=%d status=%d sector=%d",
		kind, len(t.Rows), len(t.Columns),
		len(roles.Date), len(roles.Currency), len(roles.Status), len(roles.Sector))

	out := Table{Columns: t.Columns, Rows: make([]Row, 0, len(t.Rows))}
	for _, src := range t.Rows {
		row := make(Row, len(t.Columns))
		for _, col := range t.Columns {
			row[col] = fillCell(src[col])
		}
		out.Rows = append(out.Rows, row)
	}

	for _, col := range roles.Date {
		for _, row := range out.Rows {
			row[col] = normalizeDate(CellString(row[col]))
		}
	}
	for _, col := range roles.Currency {
		for _, row := range out.Rows {
			row[col] = cleanCurrency(row[col])
		}
	}
	for _, col := range roles.Sector {
		for _, row := range out.Rows {
			row[col] = titleCase(strings.TrimSpace(CellString(row[col])))
		}
	}
	for _, col := range roles.Status {
		for _, row := range out.Rows {
			label := titleCase(strings.TrimSpace(CellString(row[col])))
			if canonical, ok := statusSynonyms[label]; ok {
				label = canonical
			}
			row[col] = label
		}
	}

	out = dedupeByItemID(out)
	return out
}

// fillCell resolves absent, null, empty, and literal "None" values to the
// sentinel. Already-numeric cells pass through so normalization is a fixed
// point on its own output.
func fillCell(v any) any {
	switch c := v.(type) {
	case nil:
		return Sentinel
	case float64:
		return c
	case string:
		if c == "" || c == "None" {
			return Sentinel
		}
		return c
	default:
		return Sentinel
	}
}

// normalizeDate parses a cell as a calendar date and renders it ISO
// (YYYY-MM-DD). Unparsable cells become the sentinel, never an error.
func normalizeDate(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || s == Sentinel {
		return Sentinel
	}
	for _, layout := range dateLayouts {
		if d, err := time.Parse(layout, s); err == nil {
			return d.Format("2006-01-02")
		}
	}
	return Sentinel
}

// cleanCurrency coerces a cell to a number: strip every rune that is not a
// digit, decimal point, or minus sign, then parse. Lossy by contract —
// multiple decimal points or empty results degrade to 0 rather than failing
// the row. Cells already numeric are kept as-is.
func cleanCurrency(v any) float64 {
	if f, ok := v.(float64); ok {
		return f
	}
	var b strings.Builder
	for _, r := range CellString(v) {
		if unicode.IsDigit(r) || r == '.' || r == '-' {
			b.WriteRune(r)
		}
	}
	f, err := strconv.ParseFloat(b.String(), 64)
	if err != nil {
		return 0
	}
	return f
}

// titleCase capitalizes the first letter of every word and lowercases the
// rest, treating any non-letter as a word boundary ("in-progress" →
// "In-Progress", "TECH" → "Tech").
func titleCase(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	prevLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			if prevLetter {
				b.WriteRune(unicode.ToLower(r))
			} else {
				b.WriteRune(unicode.ToUpper(r))
			}
			prevLetter = true
		} else {
			b.WriteRune(r)
			prevLetter = false
		}
	}
	return b.String()
}

// dedupeByItemID drops every row after the first with a duplicate Item ID,
// preserving the relative order of kept rows. Tables without an Item ID
// column pass through untouched.
func dedupeByItemID(t Table) Table {
	hasID := false
	for _, col := range t.Columns {
		if col == ColItemID {
			hasID = true
			break
		}
	}
	if !hasID {
		return t
	}

	seen := make(map[string]bool, len(t.Rows))
	kept := make([]Row, 0, len(t.Rows))
	for _, row := range t.Rows {
		id := CellString(row[ColItemID])
		if seen[id] {
			continue
		}
		seen[id] = true
		kept = append(kept, row)
	}
	t.Rows = kept
	return t
}
