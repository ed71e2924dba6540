package main

import (
	"strings"
	"testing"
)

func dealsFixture() Table {
	raw := Table{
		Columns: []string{"Item ID", "Item Name", "Sector", "Stage", "Deal Value"},
		Rows: []Row{
			{"Item ID": "1", "Item Name": "Acme", "Sector": "Tech", "Stage": "Closed Won", "Deal Value": "$12,000"},
			{"Item ID": "2", "Item Name": "Globex", "Sector": "Retail", "Stage": "Open", "Deal Value": "$3,000"},
			{"Item ID": "3", "Item Name": "Initech", "Sector": "Tech", "Stage": "Open", "Deal Value": "$7,500"},
		},
	}
	return Normalize(raw, BoardDeals)
}

func TestBuildDealsSummaryContent(t *testing.T) {
	summary := BuildDealsSummary(dealsFixture())

	if !strings.Contains(summary, "Total Pipeline Sum: $22,500.00") {
		t.Fatalf("expected pipeline total in summary:\n%s", summary)
	}
	if !strings.Contains(summary, "Client: Acme | Value: $12,000.00 | Stage: Closed Won | Sector: Tech") {
		t.Fatalf("expected top deal line:\n%s", summary)
	}
	// Top deals are ordered by descending value.
	acme := strings.Index(summary, "Client: Acme")
	initech := strings.Index(summary, "Client: Initech")
	globex := strings.Index(summary, "Client: Globex")
	if acme == -1 || initech == -1 || globex == -1 || !(acme < initech && initech < globex) {
		t.Fatalf("expected deals ordered by value desc:\n%s", summary)
	}
	if !strings.Contains(summary, "Revenue grouped by Stage:") {
		t.Fatalf("expected stage grouping:\n%s", summary)
	}
	if !strings.Contains(summary, "Tech = $19,500.00") {
		t.Fatalf("expected sector sum for Tech:\n%s", summary)
	}
}

func TestBuildDealsSummaryCapsTopDeals(t *testing.T) {
	table := Table{Columns: []string{"Item ID", "Item Name", "Deal Value"}}
	for i := 0; i < 8; i++ {
		table.Rows = append(table.Rows, Row{
			"Item ID":    string(rune('1' + i)),
			"Item Name":  "Client",
			"Deal Value": float64(100 * (i + 1)),
		})
	}
	summary := BuildDealsSummary(table)

	if got := strings.Count(summary, "Client:"); got != topDealCount {
		t.Fatalf("expected %d top-deal lines, got %d:\n%s", topDealCount, got, summary)
	}
}

func TestBuildDealsSummaryEmpty(t *testing.T) {
	summary := BuildDealsSummary(Table{})
	if !strings.Contains(summary, "No deal data available") {
		t.Fatalf("expected empty-table notice:\n%s", summary)
	}
}

func TestBuildWorkOrdersSummaryCounts(t *testing.T) {
	workOrders := Table{
		Columns: []string{"Item ID", "Status", "Sector"},
		Rows: []Row{
			{"Item ID": "1", "Status": "Completed", "Sector": "Tech"},
			{"Item ID": "2", "Status": "Completed", "Sector": "Retail"},
			{"Item ID": "3", "Status": "In Progress", "Sector": "Tech"},
		},
	}
	summary := BuildWorkOrdersSummary(workOrders)

	if !strings.Contains(summary, "Project Count grouped by Status:") {
		t.Fatalf("expected status grouping:\n%s", summary)
	}
	if !strings.Contains(summary, "Completed = 2") || !strings.Contains(summary, "In Progress = 1") {
		t.Fatalf("expected status counts:\n%s", summary)
	}
	if !strings.Contains(summary, "Tech = 2") {
		t.Fatalf("expected sector counts:\n%s", summary)
	}
}

func TestFormatMoney(t *testing.T) {
	cases := map[float64]string{
		0:          "$0.00",
		999.5:      "$999.50",
		1000:       "$1,000.00",
		1234567.89: "$1,234,567.89",
		-300:       "-$300.00",
	}
	for in, want := range cases {
		if got := formatMoney(in); got != want {
			t.Fatalf("formatMoney(%v) = %q, want %q", in, got, want)
		}
	}
}
