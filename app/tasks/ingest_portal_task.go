package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/breachwatch/breach-comb/app/database"
	"github.com/breachwatch/breach-comb/app/metrics"
	"github.com/breachwatch/breach-comb/app/normalize"
	"github.com/breachwatch/breach-comb/app/portal"
	"github.com/breachwatch/breach-comb/app/schedule"
	"github.com/breachwatch/breach-comb/app/store"
)

// IngestPortalTask runs one portal for one slot: claim the slot, fetch raw
// rows through the portal's adapter, normalize each row, and submit it to
// the store. A row-level store failure drops that row and continues; only
// a fetch failure fails the whole run. Duplicates are counted as success.
type IngestPortalTask struct {
	Task
	Portal   portal.Portal
	Slot     schedule.Slot
	Force    bool
	adapters AdapterResolver
	inserter RowInserter
	runRepo  database.RunRepository
	metrics  *metrics.Metrics
}

func NewIngestPortalTask(p portal.Portal, slot schedule.Slot, force bool,
	adapters AdapterResolver, inserter RowInserter, runRepo database.RunRepository,
	m *metrics.Metrics) *IngestPortalTask {
	return &IngestPortalTask{
		Task:     NewTask(TaskTypeIngestPortal, p.ID),
		Portal:   p,
		Slot:     slot,
		Force:    force,
		adapters: adapters,
		inserter: inserter,
		runRepo:  runRepo,
		metrics:  m,
	}
}

func (t *IngestPortalTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	// Forced runs use the trigger instant as the slot start so they never
	// collide with the current cron slot's marker.
	slotStart := t.Slot.Start
	if t.Force {
		slotStart = time.Now().UTC()
	}

	runID, already, err := t.runRepo.StartRun(t.Portal.ID, slotStart)
	if err != nil {
		return fmt.Errorf("failed to claim slot: %w", err)
	}
	if already {
		slog.Debug("Slot already serviced, skipping", "portal", t.Portal.ID, "slot_start", slotStart)
		return nil
	}

	a, err := t.adapters.Get(t.Portal.Type)
	if err != nil {
		t.finishRun(runID, database.RunStatusFailed, database.RunCounts{}, err.Error())
		return err
	}

	rawRows, err := a.Run(ctx, t.Portal)
	if err != nil {
		t.finishRun(runID, database.RunStatusFailed, database.RunCounts{}, err.Error())
		return fmt.Errorf("failed to fetch portal %s: %w", t.Portal.ID, err)
	}

	counts := database.RunCounts{Total: len(rawRows)}
	for _, raw := range rawRows {
		row := normalize.Normalize(raw, t.Portal)
		switch result := t.inserter.Insert(ctx, row); result.Outcome {
		case store.OutcomeInserted:
			counts.Inserted++
		case store.OutcomeDuplicate:
			counts.Duplicate++
		case store.OutcomeFailed:
			counts.Failed++
			slog.Warn("Row dropped on store failure", "portal", t.Portal.ID,
				"hash", result.Hash, "detail", result.Detail)
		}
	}

	status := database.RunStatusSucceeded
	if counts.Failed > 0 {
		status = database.RunStatusPartial
	}
	t.finishRun(runID, status, counts, "")

	slog.Info("Task completed",
		"type", "IngestPortal",
		"portal", t.Portal.ID,
		"duration", t.GetDuration(),
		"total", counts.Total,
		"inserted", counts.Inserted,
		"duplicates", counts.Duplicate,
		"failed", counts.Failed)

	return nil
}

func (t *IngestPortalTask) finishRun(runID, status string, counts database.RunCounts, errMsg string) {
	if err := t.runRepo.FinishRun(runID, status, counts, errMsg); err != nil {
		slog.Error("Failed to record run outcome", "portal", t.Portal.ID, "run_id", runID, "error", err)
	}
	if t.metrics != nil {
		t.metrics.RecordRun(t.Portal.ID, status, t.GetDuration().Seconds())
	}
}
