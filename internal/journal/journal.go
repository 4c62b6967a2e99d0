// Package journal keeps a write-only SQLite audit log of terminal
// pipeline events. It is never read back at runtime; trade state does
// not survive restarts. It exists so a session can be inspected after
// the fact. Journal failures are logged by the caller and never fatal.
package journal

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/glebarez/go-sqlite"

	"lia_trading/internal/event"
)

// Journal appends terminal events to a local SQLite database.
type Journal struct {
	db *sql.DB
}

// Open creates (or reuses) the journal database at path with WAL mode.
func Open(path string) (*Journal, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return nil, fmt.Errorf("failed to set pragma %s: %w", pragma, err)
		}
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS trade_events (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			kind        TEXT NOT NULL,
			symbol      TEXT NOT NULL,
			side        TEXT NOT NULL,
			volume      REAL NOT NULL,
			price       REAL NOT NULL,
			fill_time   INTEGER,
			recorded_at INTEGER NOT NULL
		);
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to create trade_events table: %w", err)
	}

	return &Journal{db: db}, nil
}

// RecordExecution appends one market fill.
func (j *Journal) RecordExecution(ctx context.Context, ev event.ExecutionEvent, recordedAtUnixMicro int64) error {
	_, err := j.db.ExecContext(ctx,
		"INSERT INTO trade_events (kind, symbol, side, volume, price, fill_time, recorded_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		event.EvExecution.String(), ev.Symbol, string(ev.Side), ev.Volume, ev.FillPrice, ev.FillTime.UnixMicro(), recordedAtUnixMicro,
	)
	if err != nil {
		return fmt.Errorf("failed to insert execution record: %w", err)
	}
	return nil
}

// RecordPending appends one accepted resting order.
func (j *Journal) RecordPending(ctx context.Context, ev event.PendingPlacedEvent, recordedAtUnixMicro int64) error {
	_, err := j.db.ExecContext(ctx,
		"INSERT INTO trade_events (kind, symbol, side, volume, price, fill_time, recorded_at) VALUES (?, ?, ?, ?, ?, NULL, ?)",
		event.EvPendingPlaced.String(), ev.Symbol, string(ev.Side), ev.Volume, ev.TargetPrice, recordedAtUnixMicro,
	)
	if err != nil {
		return fmt.Errorf("failed to insert pending record: %w", err)
	}
	return nil
}

// Close releases the underlying database handle.
func (j *Journal) Close() error {
	return j.db.Close()
}
