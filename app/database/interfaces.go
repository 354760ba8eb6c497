package database

import (
	"time"
)

// RunRepository records portal ingestion runs and answers slot-marker
// queries. Used by the task scheduler (to claim slots) and the HTTP API
// (to report run history).
type RunRepository interface {
	StartRun(portalID string, slotStart time.Time) (string, bool, error)
	FinishRun(runID string, status string, counts RunCounts, errMsg string) error
	SlotServiced(portalID string, slotStart time.Time) (bool, error)
	RecentRuns(limit int) ([]Run, error)
	RunStats() (map[string]int, error)
}
