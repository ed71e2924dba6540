package main

import (
	"fmt"
	"sort"
	"strings"
)

const topDealCount = 5

// The agent never receives raw rows. Sending a hundred rows of board text
// burns thousands of prompt tokens per question; these builders reduce each
// cleaned table to a few grouped aggregates so the model answers from exact
// precomputed figures instead.

// BuildDealsSummary renders the deals table as grouped aggregate text:
// pipeline total, the top deals by value, and revenue grouped by stage and
// by sector.
func BuildDealsSummary(deals Table) string {
	var b strings.Builder
	b.WriteString("Deals Board Stats:\n")
	if deals.Empty() {
		b.WriteString("- No deal data available.\n")
		return b.String()
	}

	valCol := firstMatch(deals.Columns, metricCurrencyKeywords)
	stageCol := firstMatch(deals.Columns, statusKeywords)
	sectorCol := firstMatch(deals.Columns, sectorKeywords)

	if valCol != "" {
		total := 0.0
		for _, row := range deals.Rows {
			total += CellFloat(row[valCol])
		}
		fmt.Fprintf(&b, "- Total Pipeline Sum: %s\n\n", formatMoney(total))

		b.WriteString(fmt.Sprintf("Top %d Deals (Highest Value):\n", topDealCount))
		for _, row := range topDeals(deals, valCol, topDealCount) {
			stage := Sentinel
			if stageCol != "" {
				stage = CellString(row[stageCol])
			}
			sector := Sentinel
			if sectorCol != "" {
				sector = CellString(row[sectorCol])
			}
			fmt.Fprintf(&b, "- Client: %s | Value: %s | Stage: %s | Sector: %s\n",
				CellString(row[ColItemName]), formatMoney(CellFloat(row[valCol])), stage, sector)
		}

		if stageCol != "" {
			b.WriteString("\n- Revenue grouped by Stage:\n")
			writeGroupedSums(&b, deals, stageCol, valCol)
		}
		if sectorCol != "" {
			b.WriteString("- Revenue grouped by Sector:\n")
			writeGroupedSums(&b, deals, sectorCol, valCol)
		}
	}

	return b.String()
}

// BuildWorkOrdersSummary renders the work-order table as project counts
// grouped by status and by sector.
func BuildWorkOrdersSummary(workOrders Table) string {
	var b strings.Builder
	b.WriteString("Work Orders Stats:\n")
	if workOrders.Empty() {
		b.WriteString("- No work order data available.\n")
		return b.String()
	}

	statusCol := firstMatch(workOrders.Columns, workOrderStatusKeywords)
	if statusCol != "" {
		b.WriteString("- Project Count grouped by Status:\n")
		writeGroupedCounts(&b, workOrders, statusCol)
	}
	sectorCol := firstMatch(workOrders.Columns, sectorKeywords)
	if sectorCol != "" {
		b.WriteString("- Project Count grouped by Sector:\n")
		writeGroupedCounts(&b, workOrders, sectorCol)
	}

	return b.String()
}

// topDeals returns up to n rows ordered by descending value. Ties keep the
// original row order.
func topDeals(deals Table, valCol string, n int) []Row {
	rows := make([]Row, len(deals.Rows))
	copy(rows, deals.Rows)
	sort.SliceStable(rows, func(i, j int) bool {
		return CellFloat(rows[i][valCol]) > CellFloat(rows[j][valCol])
	})
	if len(rows) > n {
		rows = rows[:n]
	}
	return rows
}

func writeGroupedSums(b *strings.Builder, t Table, groupCol, valCol string) {
	sums := make(map[string]float64)
	for _, row := range t.Rows {
		sums[CellString(row[groupCol])] += CellFloat(row[valCol])
	}
	for _, key := range sortedKeys(sums) {
		fmt.Fprintf(b, "  %s = %s\n", key, formatMoney(sums[key]))
	}
}

func writeGroupedCounts(b *strings.Builder, t Table, groupCol string) {
	counts := make(map[string]int)
	for _, row := range t.Rows {
		counts[CellString(row[groupCol])]++
	}
	keys := make([]string, 0, len(counts))
	for key := range counts {
		keys = append(keys, key)
	}
	// Largest groups first, name breaks ties.
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})
	for _, key := range keys {
		fmt.Fprintf(b, "  %s = %d\n", key, counts[key])
	}
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// formatMoney renders a dollar amount with thousands separators and two
// decimals ("$1,234.50").
func formatMoney(v float64) string {
	neg := v < 0
	if neg {
		v = -v
	}
	s := fmt.Sprintf("%.2f", v)
	dot := strings.Index(s, ".")
	intPart, fracPart := s[:dot], s[dot:]

	var parts []string
	for len(intPart) > 3 {
		parts = append([]string{intPart[len(intPart)-3:]}, parts...)
		intPart = intPart[:len(intPart)-3]
	}
	parts = append([]string{intPart}, parts...)

	out := "$" + strings.Join(parts, ",") + fracPart
	if neg {
		out = "-" + out
	}
	return out
}
