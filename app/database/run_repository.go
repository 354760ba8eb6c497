package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var _ RunRepository = (*Repository)(nil)

// Repository is the SQLite-backed RunRepository.
type Repository struct {
	db *DB
}

func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// timeFmt keeps slot identity comparable as text across processes.
const timeFmt = time.RFC3339

// StartRun claims a (portal, slot) pair and records the run as running.
// When the slot was already claimed by an earlier run the second return is
// true and no new run is created; the caller skips ingestion for this slot.
func (r *Repository) StartRun(portalID string, slotStart time.Time) (string, bool, error) {
	runID := uuid.NewString()

	res, err := r.db.Exec(`
		INSERT INTO portal_runs (id, portal_id, slot_start, status, started_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (portal_id, slot_start) DO NOTHING
	`, runID, portalID, slotStart.UTC().Format(timeFmt), RunStatusRunning,
		time.Now().UTC().Format(timeFmt))
	if err != nil {
		return "", false, fmt.Errorf("failed to start run: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return "", false, fmt.Errorf("failed to check run insert: %w", err)
	}
	if affected == 0 {
		return "", true, nil
	}

	return runID, false, nil
}

// FinishRun records a run's terminal status and row counts.
func (r *Repository) FinishRun(runID string, status string, counts RunCounts, errMsg string) error {
	_, err := r.db.Exec(`
		UPDATE portal_runs
		SET status = ?, rows_total = ?, rows_inserted = ?, rows_duplicate = ?,
		    rows_failed = ?, error = ?, finished_at = ?
		WHERE id = ?
	`, status, counts.Total, counts.Inserted, counts.Duplicate, counts.Failed,
		errMsg, time.Now().UTC().Format(timeFmt), runID)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	return nil
}

// SlotServiced reports whether a run already exists for the slot.
func (r *Repository) SlotServiced(portalID string, slotStart time.Time) (bool, error) {
	var id string
	err := r.db.QueryRow(`
		SELECT id FROM portal_runs WHERE portal_id = ? AND slot_start = ? LIMIT 1
	`, portalID, slotStart.UTC().Format(timeFmt)).Scan(&id)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check slot: %w", err)
	}
	return true, nil
}

// RecentRuns returns the latest runs, newest first.
func (r *Repository) RecentRuns(limit int) ([]Run, error) {
	rows, err := r.db.Query(`
		SELECT id, portal_id, slot_start, status, rows_total, rows_inserted,
		       rows_duplicate, rows_failed, error, started_at, finished_at
		FROM portal_runs
		ORDER BY started_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		var slotStart, startedAt string
		var finishedAt sql.NullString
		err := rows.Scan(&run.ID, &run.PortalID, &slotStart, &run.Status,
			&run.RowsTotal, &run.RowsInserted, &run.RowsDuplicate, &run.RowsFailed,
			&run.Error, &startedAt, &finishedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run row: %w", err)
		}

		if run.SlotStart, err = time.Parse(timeFmt, slotStart); err != nil {
			return nil, fmt.Errorf("failed to parse slot start: %w", err)
		}
		if run.StartedAt, err = time.Parse(timeFmt, startedAt); err != nil {
			return nil, fmt.Errorf("failed to parse started at: %w", err)
		}
		if finishedAt.Valid {
			t, err := time.Parse(timeFmt, finishedAt.String)
			if err != nil {
				return nil, fmt.Errorf("failed to parse finished at: %w", err)
			}
			run.FinishedAt = &t
		}

		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating run rows: %w", err)
	}
	return runs, nil
}

// RunStats returns run counts grouped by status.
func (r *Repository) RunStats() (map[string]int, error) {
	rows, err := r.db.Query(`SELECT status, COUNT(*) FROM portal_runs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to get run stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[string]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan stats row: %w", err)
		}
		stats[status] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating stats rows: %w", err)
	}
	return stats, nil
}
