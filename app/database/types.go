package database

import (
	"time"
)

// Run statuses. "partial" means the run completed but dropped at least one
// row on a store failure.
const (
	RunStatusRunning   = "running"
	RunStatusSucceeded = "succeeded"
	RunStatusPartial   = "partial"
	RunStatusFailed    = "failed"
)

// Run is one portal ingestion run: a (portal, slot) pair plus its outcome.
// The UNIQUE(portal_id, slot_start) constraint is the persisted
// already-ran-this-slot marker; a second invocation inside the same slot
// observes the conflict instead of re-ingesting.
type Run struct {
	ID            string
	PortalID      string
	SlotStart     time.Time
	Status        string
	RowsTotal     int
	RowsInserted  int
	RowsDuplicate int
	RowsFailed    int
	Error         string
	StartedAt     time.Time
	FinishedAt    *time.Time
}

// RunCounts aggregates per-row outcomes for FinishRun.
type RunCounts struct {
	Total     int
	Inserted  int
	Duplicate int
	Failed    int
}
