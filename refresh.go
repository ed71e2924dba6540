package main

import (
	"database/sql"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/slack-go/slack"
)

// RefreshResult tracks the outcome of one full board refresh.
type RefreshResult struct {
	Deals      Table
	WorkOrders Table
	Metrics    Metrics
	FetchedAt  time.Time
	Errors     []string
}

// RefreshBoards fetches both boards concurrently, normalizes each, computes
// the metrics mapping, and persists snapshots plus a metrics-history row.
// One board failing leaves the other usable (its table stays empty and the
// error is recorded); both failing is an error. It has no Slack dependency
// so the slash command and the scheduler share it.
func RefreshBoards(cfg Config, db *sql.DB) (RefreshResult, error) {
	result := RefreshResult{FetchedAt: time.Now()}

	boards := []struct {
		kind BoardKind
		id   string
		dest *Table
	}{
		{BoardDeals, cfg.DealsBoardID, &result.Deals},
		{BoardWorkOrders, cfg.WorkOrdersBoardID, &result.WorkOrders},
	}

	errs := make([]error, len(boards))
	var wg sync.WaitGroup
	for i, b := range boards {
		wg.Add(1)
		go func(idx int, kind BoardKind, boardID string, dest *Table) {
			defer wg.Done()
			raw, err := FetchBoard(cfg, boardID)
			if err != nil {
				errs[idx] = err
				return
			}
			*dest = Normalize(raw, kind)
		}(i, b.kind, b.id, b.dest)
	}
	wg.Wait()

	failed := 0
	for i, err := range errs {
		if err != nil {
			failed++
			log.Printf("refresh board=%s error: %v", boards[i].kind, err)
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", boards[i].kind, err))
		}
	}
	if failed == len(boards) {
		return result, fmt.Errorf("all board fetches failed: %s", strings.Join(result.Errors, "; "))
	}

	result.Metrics = CalculateMetrics(result.Deals, result.WorkOrders)

	for i, b := range boards {
		if errs[i] != nil {
			continue
		}
		if err := SaveSnapshot(db, b.kind, *b.dest, result.FetchedAt); err != nil {
			log.Printf("refresh snapshot save board=%s error: %v", b.kind, err)
			result.Errors = append(result.Errors, fmt.Sprintf("save %s: %v", b.kind, err))
		}
	}
	if err := InsertMetricsSnapshot(db, result.Metrics, result.FetchedAt); err != nil {
		log.Printf("refresh metrics save error: %v", err)
		result.Errors = append(result.Errors, fmt.Sprintf("save metrics: %v", err))
	}

	log.Printf("refresh done deals=%d work_orders=%d errors=%d",
		len(result.Deals.Rows), len(result.WorkOrders.Rows), len(result.Errors))
	return result, nil
}

// LoadOrRefresh serves both cleaned tables and fresh metrics, reusing stored
// snapshots younger than the cache TTL and hitting the API otherwise.
// Metrics are always recomputed from the tables in scope rather than read
// back, so the mapping can never drift from the data shown next to it.
func LoadOrRefresh(cfg Config, db *sql.DB) (Table, Table, Metrics, bool, error) {
	deals, _, dealsOK, err := LoadSnapshot(db, BoardDeals, cfg.CacheTTL())
	if err != nil {
		return Table{}, Table{}, Metrics{}, false, fmt.Errorf("loading deals snapshot: %w", err)
	}
	workOrders, _, woOK, err := LoadSnapshot(db, BoardWorkOrders, cfg.CacheTTL())
	if err != nil {
		return Table{}, Table{}, Metrics{}, false, fmt.Errorf("loading work orders snapshot: %w", err)
	}

	if dealsOK && woOK {
		return deals, workOrders, CalculateMetrics(deals, workOrders), true, nil
	}

	result, err := RefreshBoards(cfg, db)
	if err != nil {
		return Table{}, Table{}, Metrics{}, false, err
	}
	return result.Deals, result.WorkOrders, result.Metrics, false, nil
}

// FormatRefreshSummary returns a human-readable summary of a RefreshResult.
func FormatRefreshSummary(result RefreshResult) string {
	msg := fmt.Sprintf("Refreshed boards: %d deals, %d work orders. %s: %s, %s: %s",
		len(result.Deals.Rows), len(result.WorkOrders.Rows),
		MetricTotalPipelineValue, formatMoney(result.Metrics.TotalPipelineValue),
		MetricCompletionRate, result.Metrics.CompletionRate)
	if len(result.Errors) > 0 {
		msg += fmt.Sprintf("\nWarnings:\n%s", strings.Join(result.Errors, "\n"))
	}
	return msg
}

// StartRefreshScheduler starts a cron-based scheduler that refreshes both
// boards and posts a summary to the report channel. The schedule is a
// standard 5-field cron expression (minute hour day-of-month month
// day-of-week). Examples: "*/15 * * * *" (every 15 min), "0 8 * * 1-5"
// (weekdays 8am).
func StartRefreshScheduler(cfg Config, db *sql.DB, api *slack.Client) {
	schedule := strings.TrimSpace(cfg.RefreshSchedule)
	if schedule == "" {
		log.Println("Scheduled refresh disabled (refresh_schedule not set)")
		return
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	sched, err := parser.Parse(schedule)
	if err != nil {
		log.Printf("Invalid refresh_schedule '%s': %v — scheduled refresh disabled", schedule, err)
		return
	}

	log.Printf("Board refresh scheduled (cron: %s)", schedule)

	go func() {
		for {
			now := time.Now().In(cfg.Location)
			next := sched.Next(now)
			wait := next.Sub(now)
			log.Printf("Next board refresh at %s (in %s)", next.Format("Mon Jan 2 15:04"), wait.Round(time.Minute))

			time.Sleep(wait)

			result, refreshErr := RefreshBoards(cfg, db)
			if refreshErr != nil {
				log.Printf("Scheduled refresh error: %v", refreshErr)
				continue
			}
			summary := FormatRefreshSummary(result)
			log.Printf("Scheduled refresh complete: %s", summary)

			if cfg.ReportChannelID != "" {
				_, _, postErr := api.PostMessage(cfg.ReportChannelID, slack.MsgOptionText(summary, false))
				if postErr != nil {
					log.Printf("Scheduled refresh post error: %v", postErr)
				}
			}
		}
	}()
}
