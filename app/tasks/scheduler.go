package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/breachwatch/breach-comb/app/cfg"
	"github.com/breachwatch/breach-comb/app/database"
	"github.com/breachwatch/breach-comb/app/metrics"
	"github.com/breachwatch/breach-comb/app/portal"
	"github.com/breachwatch/breach-comb/app/schedule"
)

var _ TaskSchedulerInterface = (*Scheduler)(nil)

type Scheduler struct {
	portals     *portal.Registry
	runRepo     database.RunRepository
	adapters    AdapterResolver
	inserter    RowInserter
	metrics     *metrics.Metrics
	interval    time.Duration
	workerCount int
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	taskQueue   chan TaskInterface
}

func NewScheduler(portals *portal.Registry, runRepo database.RunRepository,
	adapters AdapterResolver, inserter RowInserter, m *metrics.Metrics) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := cfg.Get()

	return &Scheduler{
		portals:     portals,
		runRepo:     runRepo,
		adapters:    adapters,
		inserter:    inserter,
		metrics:     m,
		interval:    time.Duration(cfg.SchedulerInterval) * time.Second,
		workerCount: cfg.WorkerCount,
		ctx:         ctx,
		cancel:      cancel,
		taskQueue:   make(chan TaskInterface, 100),
	}
}

func (s *Scheduler) Start() {
	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.enqueueDuePortals()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.enqueueDuePortals()
			}
		}
	}()
}

func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
	close(s.taskQueue)
}

func (s *Scheduler) EnqueueTask(task TaskInterface) error {
	select {
	case s.taskQueue <- task:
		return nil
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
		return fmt.Errorf("task queue is full")
	}
}

// TriggerPortal enqueues a forced run of one portal outside its cron
// schedule. Used by the HTTP API.
func (s *Scheduler) TriggerPortal(id string) error {
	p, ok := s.portals.Get(id)
	if !ok {
		return fmt.Errorf("unknown portal %q", id)
	}

	task := NewIngestPortalTask(p, schedule.Slot{}, true, s.adapters, s.inserter, s.runRepo, s.metrics)
	if err := s.EnqueueTask(task); err != nil {
		return fmt.Errorf("failed to enqueue forced run: %w", err)
	}

	slog.Info("Forced portal run enqueued", "portal", id, "task_id", task.GetID())
	return nil
}

// RunPass evaluates every portal's current slot once and runs the
// unserviced ones to completion. Portals run concurrently so a slow or
// hung source cannot hold up the rest of the pass; per-portal failures are
// logged and reflected in run records, not returned.
func (s *Scheduler) RunPass(ctx context.Context) error {
	due, err := schedule.Due(time.Now().UTC(), s.portals.All())
	if err != nil {
		slog.Warn("Some portals could not be scheduled", "error", err)
	}

	sem := make(chan struct{}, s.workerCount)
	var wg sync.WaitGroup
	for _, d := range due {
		wg.Add(1)
		sem <- struct{}{}
		go func(d schedule.DuePortal) {
			defer wg.Done()
			defer func() { <-sem }()

			task := NewIngestPortalTask(d.Portal, d.Slot, false, s.adapters, s.inserter, s.runRepo, s.metrics)
			task.Start()
			if err := task.Execute(ctx); err != nil {
				slog.Error("Portal run failed", "portal", d.Portal.ID, "id", task.GetID(), "error", err)
			}
		}(d)
	}
	wg.Wait()

	return nil
}

func (s *Scheduler) enqueueDuePortals() {
	due, err := schedule.Due(time.Now().UTC(), s.portals.All())
	if err != nil {
		slog.Warn("Some portals could not be scheduled", "error", err)
	}
	if len(due) == 0 {
		slog.Debug("No portals configured")
		return
	}

	for _, d := range due {
		// Cheap pre-filter; StartRun's slot claim stays authoritative even
		// when two passes race past this check.
		serviced, err := s.runRepo.SlotServiced(d.Portal.ID, d.Slot.Start)
		if err != nil {
			slog.Warn("Failed to check slot state, skipping", "portal", d.Portal.ID, "error", err)
			continue
		}
		if serviced {
			continue
		}

		task := NewIngestPortalTask(d.Portal, d.Slot, false, s.adapters, s.inserter, s.runRepo, s.metrics)
		if err := s.EnqueueTask(task); err != nil {
			slog.Warn("Failed to enqueue IngestPortalTask", "portal", d.Portal.ID, "error", err)
		}
	}
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case task, ok := <-s.taskQueue:
			if !ok {
				return
			}
			s.executeTask(id, task)

		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Scheduler) executeTask(workerID int, task TaskInterface) {
	task.Start()

	taskCtx, cancel := context.WithTimeout(s.ctx, 30*time.Minute)
	defer cancel()

	if err := task.Execute(taskCtx); err != nil {
		slog.Error("Worker task execution failed", "worker_id", workerID,
			"type", string(task.GetType()), "id", task.GetID(),
			"portal", task.GetPortalID(), "error", err)
	}
}
