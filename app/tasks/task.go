package tasks

import (
	"time"

	"github.com/google/uuid"
)

type TaskType string

const (
	TaskTypeIngestPortal TaskType = "ingest_portal"
)

type Task struct {
	ID        string
	Type      TaskType
	PortalID  string
	StartedAt *time.Time
}

func (t *Task) GetID() string {
	return t.ID
}

func (t *Task) GetType() TaskType {
	return t.Type
}

func (t *Task) GetPortalID() string {
	return t.PortalID
}

func (t *Task) Start() {
	now := time.Now()
	t.StartedAt = &now
}

func (t *Task) GetDuration() time.Duration {
	if t.StartedAt == nil {
		return 0
	}
	return time.Since(*t.StartedAt)
}

func NewTask(taskType TaskType, portalID string) Task {
	return Task{
		ID:       uuid.NewString(),
		Type:     taskType,
		PortalID: portalID,
	}
}
