package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

// mondayTestServer serves both boards, keyed by the boardId variable, and
// counts requests.
func mondayTestServer(t *testing.T, requestCount *int64) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(requestCount, 1)

		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		boardIDs := req["variables"].(map[string]any)["boardId"].([]any)

		switch boardIDs[0] {
		case "deals-board":
			fmt.Fprint(w, mondayPageJSON("",
				mondayItemJSON("1", "Acme", map[string]*string{"Deal Value": strPtr("$1,000")}),
				mondayItemJSON("2", "Globex", map[string]*string{"Deal Value": strPtr("$500")}),
			))
		case "wo-board":
			fmt.Fprint(w, mondayPageJSON("",
				mondayItemJSON("10", "Install", map[string]*string{"Status": strPtr("done")}),
				mondayItemJSON("11", "Audit", map[string]*string{"Status": strPtr("working")}),
			))
		default:
			t.Errorf("unexpected board id %v", boardIDs[0])
		}
	}))
}

func refreshTestConfig(serverURL string) Config {
	return Config{
		MondayAPIToken:    "t",
		MondayAPIURL:      serverURL,
		DealsBoardID:      "deals-board",
		WorkOrdersBoardID: "wo-board",
		CacheTTLMinutes:   5,
	}
}

func TestRefreshBoardsFetchesNormalizesAndPersists(t *testing.T) {
	var requests int64
	server := mondayTestServer(t, &requests)
	defer server.Close()

	db := newTestDB(t)
	cfg := refreshTestConfig(server.URL)

	result, err := RefreshBoards(cfg, db)
	if err != nil {
		t.Fatalf("RefreshBoards failed: %v", err)
	}
	if len(result.Errors) != 0 {
		t.Fatalf("unexpected warnings: %v", result.Errors)
	}

	if result.Metrics.TotalPipelineValue != 1500 {
		t.Fatalf("expected pipeline 1500, got %v", result.Metrics.TotalPipelineValue)
	}
	// Both statuses normalize: "done" → "Completed", "working" stays active.
	if result.Metrics.CompletedProjects != 1 || result.Metrics.ActiveProjects != 1 {
		t.Fatalf("unexpected work-order counters: %+v", result.Metrics)
	}
	if result.Metrics.CompletionRate != "50.0%" {
		t.Fatalf("expected 50.0%%, got %q", result.Metrics.CompletionRate)
	}

	// Snapshots and metrics history were persisted.
	deals, _, ok, err := LoadSnapshot(db, BoardDeals, time.Hour)
	if err != nil || !ok {
		t.Fatalf("deals snapshot missing after refresh: ok=%t err=%v", ok, err)
	}
	if CellFloat(deals.Rows[0]["Deal Value"]) != 1000 {
		t.Fatalf("persisted snapshot should be normalized, got %v", deals.Rows[0]["Deal Value"])
	}
	latest, _, ok, err := LatestMetricsSnapshot(db)
	if err != nil || !ok {
		t.Fatalf("metrics history missing after refresh: ok=%t err=%v", ok, err)
	}
	if latest != result.Metrics {
		t.Fatalf("persisted metrics differ: %+v vs %+v", latest, result.Metrics)
	}
}

func TestLoadOrRefreshUsesFreshSnapshots(t *testing.T) {
	var requests int64
	server := mondayTestServer(t, &requests)
	defer server.Close()

	db := newTestDB(t)
	cfg := refreshTestConfig(server.URL)

	_, _, _, fromCache, err := LoadOrRefresh(cfg, db)
	if err != nil {
		t.Fatalf("first LoadOrRefresh failed: %v", err)
	}
	if fromCache {
		t.Fatalf("first load should hit the API")
	}
	afterFirst := atomic.LoadInt64(&requests)

	deals, workOrders, metrics, fromCache, err := LoadOrRefresh(cfg, db)
	if err != nil {
		t.Fatalf("second LoadOrRefresh failed: %v", err)
	}
	if !fromCache {
		t.Fatalf("second load should come from snapshots")
	}
	if atomic.LoadInt64(&requests) != afterFirst {
		t.Fatalf("cached load should not hit the API")
	}
	if len(deals.Rows) != 2 || len(workOrders.Rows) != 2 {
		t.Fatalf("unexpected cached tables: deals=%d wo=%d", len(deals.Rows), len(workOrders.Rows))
	}
	if metrics.TotalPipelineValue != 1500 {
		t.Fatalf("metrics should be recomputed from cached tables, got %v", metrics.TotalPipelineValue)
	}
}

func TestRefreshBoardsPartialFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		_ = json.NewDecoder(r.Body).Decode(&req)
		boardIDs := req["variables"].(map[string]any)["boardId"].([]any)

		if boardIDs[0] == "deals-board" {
			fmt.Fprint(w, mondayPageJSON("",
				mondayItemJSON("1", "Acme", map[string]*string{"Deal Value": strPtr("$1,000")}),
			))
			return
		}
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	db := newTestDB(t)
	cfg := refreshTestConfig(server.URL)

	result, err := RefreshBoards(cfg, db)
	if err != nil {
		t.Fatalf("one failing board should not fail the refresh: %v", err)
	}
	if len(result.Errors) != 1 || !strings.Contains(result.Errors[0], "work_orders") {
		t.Fatalf("expected one work_orders warning, got %v", result.Errors)
	}
	if result.Metrics.TotalPipelineValue != 1000 {
		t.Fatalf("deal metrics should still compute, got %v", result.Metrics.TotalPipelineValue)
	}
	if result.Metrics.CompletionRate != "0%" {
		t.Fatalf("work-order metrics should stay at defaults, got %q", result.Metrics.CompletionRate)
	}
}

func TestRefreshBoardsAllFail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer server.Close()

	db := newTestDB(t)
	cfg := refreshTestConfig(server.URL)

	_, err := RefreshBoards(cfg, db)
	if err == nil || !strings.Contains(err.Error(), "all board fetches failed") {
		t.Fatalf("expected total failure error, got %v", err)
	}
}

func TestFormatRefreshSummary(t *testing.T) {
	result := RefreshResult{
		Deals:      Table{Rows: []Row{{}, {}}},
		WorkOrders: Table{Rows: []Row{{}}},
		Metrics:    Metrics{TotalPipelineValue: 1500, CompletionRate: "50.0%", TopSector: "Tech"},
	}
	summary := FormatRefreshSummary(result)

	if !strings.Contains(summary, "2 deals, 1 work orders") {
		t.Fatalf("expected row counts in summary: %s", summary)
	}
	if !strings.Contains(summary, "$1,500.00") || !strings.Contains(summary, "50.0%") {
		t.Fatalf("expected headline metrics in summary: %s", summary)
	}

	result.Errors = []string{"work_orders: boom"}
	summary = FormatRefreshSummary(result)
	if !strings.Contains(summary, "Warnings:") || !strings.Contains(summary, "boom") {
		t.Fatalf("expected warnings block: %s", summary)
	}
}
