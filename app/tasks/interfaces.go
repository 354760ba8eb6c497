package tasks

import (
	"context"
	"time"

	"github.com/breachwatch/breach-comb/app/adapter"
	"github.com/breachwatch/breach-comb/app/normalize"
	"github.com/breachwatch/breach-comb/app/store"
)

type TaskInterface interface {
	Execute(ctx context.Context) error
	GetID() string
	GetType() TaskType
	GetPortalID() string
	Start()
	GetDuration() time.Duration
}

// TaskSchedulerInterface defines the interface for task scheduling
// operations. Used by the main application to run the background worker
// pool and by the HTTP API to trigger manual portal runs.
// Example usage:
//
//	scheduler := NewScheduler(portals, runRepo, adapters, storeClient, m)
//	scheduler.Start()
//	defer scheduler.Stop()
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
	RunPass(ctx context.Context) error
	TriggerPortal(id string) error
}

// AdapterResolver yields the adapter for a portal's declared type.
type AdapterResolver interface {
	Get(portalType string) (adapter.Adapter, error)
}

// RowInserter submits one normalized row to the central store.
type RowInserter interface {
	Insert(ctx context.Context, row normalize.Row) store.Result
}
