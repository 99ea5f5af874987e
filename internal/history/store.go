package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"runepause/internal/core/timekeeper"
)

// DefaultLimit bounds List when no limit is given.
const DefaultLimit = 20

// Record is one finished phase.
type Record struct {
	ID             string             `json:"id"`
	RunID          string             `json:"run_id"`
	Phase          timekeeper.Phase   `json:"phase"`
	Outcome        timekeeper.Outcome `json:"outcome"`
	Cycle          int                `json:"cycle"`
	PlannedSeconds int                `json:"planned_seconds"`
	ElapsedSeconds int                `json:"elapsed_seconds"`
	EndedAt        time.Time          `json:"ended_at"`
}

// Store reads and writes phase records.
type Store struct {
	DB *sql.DB
}

// Insert stores one record.
func (store Store) Insert(ctx context.Context, record Record) error {
	_, err := store.DB.ExecContext(ctx,
		`INSERT INTO phases(id,run_id,phase,outcome,cycle,planned_seconds,elapsed_seconds,ended_at) VALUES (?,?,?,?,?,?,?,?)`,
		record.ID, record.RunID, string(record.Phase), string(record.Outcome), record.Cycle,
		record.PlannedSeconds, record.ElapsedSeconds, record.EndedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("insert phase record: %w", err)
	}
	return nil
}

// List returns up to limit records, newest first. A limit of zero or less
// uses DefaultLimit.
func (store Store) List(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	rows, err := store.DB.QueryContext(ctx,
		`SELECT id,run_id,phase,outcome,cycle,planned_seconds,elapsed_seconds,ended_at FROM phases ORDER BY ended_at DESC, rowid DESC LIMIT ?`,
		limit)
	if err != nil {
		return nil, fmt.Errorf("list phase records: %w", err)
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		var record Record
		var phase, outcome, endedAt string
		if err := rows.Scan(&record.ID, &record.RunID, &phase, &outcome, &record.Cycle,
			&record.PlannedSeconds, &record.ElapsedSeconds, &endedAt); err != nil {
			return nil, fmt.Errorf("scan phase record: %w", err)
		}
		record.Phase = timekeeper.Phase(phase)
		record.Outcome = timekeeper.Outcome(outcome)
		record.EndedAt, err = time.Parse(time.RFC3339Nano, endedAt)
		if err != nil {
			return nil, fmt.Errorf("parse ended_at: %w", err)
		}
		records = append(records, record)
	}
	return records, rows.Err()
}
