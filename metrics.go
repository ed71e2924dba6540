package main

import (
	"fmt"
	"strings"
)

// Keyword sets deciding which statuses count toward each metric. Matching is
// lower-cased substring containment, so "Closed Won" and "Not Yet Closed"
// both count as won. Switching to exact matching would silently change every
// historical figure, so the substring match stays. Likewise the done/active
// sets are not mutually exclusive and a single row may increment both
// counters.
var (
	wonKeywords    = []string{"won", "closed", "completed", "signed"}
	doneKeywords   = []string{"done", "completed", "finished"}
	activeKeywords = []string{"working", "in progress", "started", "active"}
)

// CalculateMetrics derives the fixed business-metric set from the two
// cleaned boards. Every metric has a defined default, so the result is
// complete even when either table is empty or lacks the column a metric
// depends on. Pure and idempotent; recomputed in full on every call.
func CalculateMetrics(deals, workOrders Table) Metrics {
	m := Metrics{
		CompletionRate: "0%",
		TopSector:      "None",
	}

	if !deals.Empty() {
		valCol := firstMatch(deals.Columns, metricCurrencyKeywords)
		stageCol := firstMatch(deals.Columns, statusKeywords)
		sectorCol := firstMatch(deals.Columns, sectorKeywords)

		if valCol != "" {
			for _, row := range deals.Rows {
				m.TotalPipelineValue += CellFloat(row[valCol])
			}
			if stageCol != "" {
				for _, row := range deals.Rows {
					if containsAnyKeyword(CellString(row[stageCol]), wonKeywords) {
						m.ExpectedRevenue += CellFloat(row[valCol])
					}
				}
			}
			if sectorCol != "" {
				m.TopSector = topSectorByValue(deals, sectorCol, valCol)
			}
		}
	}

	if !workOrders.Empty() {
		statusCol := firstMatch(workOrders.Columns, workOrderStatusKeywords)
		if statusCol != "" {
			m.TotalWorkOrders = len(workOrders.Rows)
			for _, row := range workOrders.Rows {
				status := CellString(row[statusCol])
				if containsAnyKeyword(status, doneKeywords) {
					m.CompletedProjects++
				}
				if containsAnyKeyword(status, activeKeywords) {
					m.ActiveProjects++
				}
			}
			if m.TotalWorkOrders > 0 {
				rate := float64(m.CompletedProjects) / float64(m.TotalWorkOrders) * 100
				m.CompletionRate = fmt.Sprintf("%.1f%%", rate)
			}
		}
	}

	return m
}

func containsAnyKeyword(s string, keywords []string) bool {
	lower := strings.ToLower(s)
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// topSectorByValue sums the value column per sector, excludes the sentinel
// group, and returns the sector with the largest sum. Ties resolve to the
// sector encountered first in row order. "None" when every sector is the
// sentinel.
func topSectorByValue(deals Table, sectorCol, valCol string) string {
	sums := make(map[string]float64)
	var order []string
	for _, row := range deals.Rows {
		sector := CellString(row[sectorCol])
		if sector == Sentinel {
			continue
		}
		if _, ok := sums[sector]; !ok {
			order = append(order, sector)
		}
		sums[sector] += CellFloat(row[valCol])
	}
	if len(order) == 0 {
		return "None"
	}

	top := order[0]
	for _, sector := range order[1:] {
		if sums[sector] > sums[top] {
			top = sector
		}
	}
	return top
}
