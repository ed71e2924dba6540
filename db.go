package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// The store keeps the latest cleaned snapshot per board plus an append-only
// metrics history. Snapshots double as the fetch cache: LoadSnapshot treats
// anything older than the configured TTL as stale.

func InitDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	schema := `
	CREATE TABLE IF NOT EXISTS board_snapshots (
		board        TEXT PRIMARY KEY,
		columns_json TEXT NOT NULL,
		rows_json    TEXT NOT NULL,
		row_count    INTEGER NOT NULL,
		fetched_at   DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS metrics_history (
		id                   INTEGER PRIMARY KEY AUTOINCREMENT,
		total_pipeline_value REAL NOT NULL,
		expected_revenue     REAL NOT NULL,
		total_work_orders    INTEGER NOT NULL,
		completed_projects   INTEGER NOT NULL,
		active_projects      INTEGER NOT NULL,
		completion_rate      TEXT NOT NULL,
		top_sector           TEXT NOT NULL,
		computed_at          DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_mh_computed_at ON metrics_history(computed_at);
	`
	_, err = db.Exec(schema)
	if err != nil {
		return nil, err
	}

	return db, nil
}

// SaveSnapshot upserts the latest cleaned table for a board.
func SaveSnapshot(db *sql.DB, board BoardKind, t Table, fetchedAt time.Time) error {
	colsJSON, err := json.Marshal(t.Columns)
	if err != nil {
		return fmt.Errorf("encoding columns: %w", err)
	}
	rowsJSON, err := json.Marshal(t.Rows)
	if err != nil {
		return fmt.Errorf("encoding rows: %w", err)
	}

	_, err = db.Exec(
		`INSERT INTO board_snapshots (board, columns_json, rows_json, row_count, fetched_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(board) DO UPDATE SET
		   columns_json = excluded.columns_json,
		   rows_json    = excluded.rows_json,
		   row_count    = excluded.row_count,
		   fetched_at   = excluded.fetched_at`,
		string(board), string(colsJSON), string(rowsJSON), len(t.Rows), fetchedAt.UTC(),
	)
	return err
}

// LoadSnapshot returns the stored table for a board when one exists and is
// younger than maxAge. ok=false means absent or stale, not an error.
// JSON round-tripping preserves the cleaned cell types: currency cells come
// back as float64, everything else as string.
func LoadSnapshot(db *sql.DB, board BoardKind, maxAge time.Duration) (Table, time.Time, bool, error) {
	var colsJSON, rowsJSON string
	var fetchedAt time.Time
	err := db.QueryRow(
		`SELECT columns_json, rows_json, fetched_at FROM board_snapshots WHERE board = ?`,
		string(board),
	).Scan(&colsJSON, &rowsJSON, &fetchedAt)
	if err == sql.ErrNoRows {
		return Table{}, time.Time{}, false, nil
	}
	if err != nil {
		return Table{}, time.Time{}, false, err
	}

	if maxAge > 0 && time.Since(fetchedAt) > maxAge {
		return Table{}, fetchedAt, false, nil
	}

	var t Table
	if err := json.Unmarshal([]byte(colsJSON), &t.Columns); err != nil {
		return Table{}, fetchedAt, false, fmt.Errorf("decoding columns: %w", err)
	}
	if err := json.Unmarshal([]byte(rowsJSON), &t.Rows); err != nil {
		return Table{}, fetchedAt, false, fmt.Errorf("decoding rows: %w", err)
	}
	return t, fetchedAt, true, nil
}

// InsertMetricsSnapshot appends one metrics row to the history.
func InsertMetricsSnapshot(db *sql.DB, m Metrics, computedAt time.Time) error {
	_, err := db.Exec(
		`INSERT INTO metrics_history
		 (total_pipeline_value, expected_revenue, total_work_orders, completed_projects, active_projects, completion_rate, top_sector, computed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		m.TotalPipelineValue, m.ExpectedRevenue, m.TotalWorkOrders,
		m.CompletedProjects, m.ActiveProjects, m.CompletionRate, m.TopSector,
		computedAt.UTC(),
	)
	return err
}

// LatestMetricsSnapshot returns the most recently computed metrics.
// ok=false when the history is empty.
func LatestMetricsSnapshot(db *sql.DB) (Metrics, time.Time, bool, error) {
	var m Metrics
	var computedAt time.Time
	err := db.QueryRow(
		`SELECT total_pipeline_value, expected_revenue, total_work_orders, completed_projects, active_projects, completion_rate, top_sector, computed_at
		 FROM metrics_history ORDER BY id DESC LIMIT 1`,
	).Scan(&m.TotalPipelineValue, &m.ExpectedRevenue, &m.TotalWorkOrders,
		&m.CompletedProjects, &m.ActiveProjects, &m.CompletionRate, &m.TopSector, &computedAt)
	if err == sql.ErrNoRows {
		return Metrics{}, time.Time{}, false, nil
	}
	if err != nil {
		return Metrics{}, time.Time{}, false, err
	}
	return m, computedAt, true, nil
}

// MetricsHistory returns up to limit recent metric snapshots, newest first.
func MetricsHistory(db *sql.DB, limit int) ([]Metrics, error) {
	rows, err := db.Query(
		`SELECT total_pipeline_value, expected_revenue, total_work_orders, completed_projects, active_projects, completion_rate, top_sector
		 FROM metrics_history ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Metrics
	for rows.Next() {
		var m Metrics
		if err := rows.Scan(&m.TotalPipelineValue, &m.ExpectedRevenue, &m.TotalWorkOrders,
			&m.CompletedProjects, &m.ActiveProjects, &m.CompletionRate, &m.TopSector); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
