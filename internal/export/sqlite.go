// Package export persists aggregated snapshots to SQLite. Raw event records
// never leave the engine's memory; only the derived aggregate view is
// written, and only when export is enabled.
package export

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/anthropics/mcp-pulse/internal/monitor"
)

// Exporter writes snapshots to a SQLite database.
type Exporter struct {
	db *sql.DB
}

// SnapshotRow is a stored snapshot summary.
type SnapshotRow struct {
	ID                 int64
	ServerName         string
	TakenAt            time.Time
	UptimeMs           int64
	TotalRequests      int
	SuccessfulRequests int
	FailedRequests     int
	AvgLatencyMs       float64
	P95LatencyMs       float64
	ErrorRatePct       float64
	Payload            []byte
}

// NewExporter opens (or creates) the snapshot database at dbPath.
func NewExporter(dbPath string) (*Exporter, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	e := &Exporter{db: db}
	if err := e.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}
	return e, nil
}

func (e *Exporter) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS snapshots (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		server_name TEXT NOT NULL,
		taken_at DATETIME NOT NULL,
		uptime_ms INTEGER NOT NULL,
		total_requests INTEGER NOT NULL,
		successful_requests INTEGER NOT NULL,
		failed_requests INTEGER NOT NULL,
		avg_latency_ms REAL NOT NULL,
		p95_latency_ms REAL NOT NULL,
		error_rate_pct REAL NOT NULL,
		payload BLOB
	);

	CREATE INDEX IF NOT EXISTS idx_snapshots_taken ON snapshots(taken_at);

	CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	INSERT OR IGNORE INTO schema_version (version) VALUES (1);
	`
	_, err := e.db.Exec(schema)
	return err
}

// SaveSnapshot stores a snapshot, including its full JSON payload.
func (e *Exporter) SaveSnapshot(ctx context.Context, snap monitor.Snapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}

	_, err = e.db.ExecContext(ctx, `
		INSERT INTO snapshots (server_name, taken_at, uptime_ms, total_requests,
			successful_requests, failed_requests, avg_latency_ms, p95_latency_ms,
			error_rate_pct, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		snap.ServerName, snap.TakenAt, snap.UptimeMs, snap.TotalRequests,
		snap.SuccessfulRequests, snap.FailedRequests, snap.Performance.AvgLatencyMs,
		snap.Performance.P95LatencyMs, snap.Performance.ErrorRatePct, payload)
	if err != nil {
		return fmt.Errorf("inserting snapshot: %w", err)
	}
	return nil
}

// ListSnapshots returns stored snapshots, most recent first.
func (e *Exporter) ListSnapshots(ctx context.Context, limit int) ([]SnapshotRow, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := e.db.QueryContext(ctx, `
		SELECT id, server_name, taken_at, uptime_ms, total_requests,
			successful_requests, failed_requests, avg_latency_ms, p95_latency_ms,
			error_rate_pct, payload
		FROM snapshots
		ORDER BY taken_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying snapshots: %w", err)
	}
	defer rows.Close()

	var out []SnapshotRow
	for rows.Next() {
		var row SnapshotRow
		if err := rows.Scan(&row.ID, &row.ServerName, &row.TakenAt, &row.UptimeMs,
			&row.TotalRequests, &row.SuccessfulRequests, &row.FailedRequests,
			&row.AvgLatencyMs, &row.P95LatencyMs, &row.ErrorRatePct, &row.Payload); err != nil {
			return nil, fmt.Errorf("scanning snapshot: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// Prune deletes snapshots taken before olderThan and returns the count.
func (e *Exporter) Prune(ctx context.Context, olderThan time.Time) (int64, error) {
	result, err := e.db.ExecContext(ctx, `DELETE FROM snapshots WHERE taken_at < ?`, olderThan)
	if err != nil {
		return 0, fmt.Errorf("pruning snapshots: %w", err)
	}
	return result.RowsAffected()
}

// Close closes the database.
func (e *Exporter) Close() error {
	return e.db.Close()
}
