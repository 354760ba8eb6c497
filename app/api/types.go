package api

import (
	"github.com/breachwatch/breach-comb/app/database"
	"github.com/breachwatch/breach-comb/app/portal"
	"github.com/breachwatch/breach-comb/app/tasks"
)

// Handler holds the dependencies for all HTTP endpoints.
type Handler struct {
	portals   *portal.Registry
	runRepo   database.RunRepository
	scheduler tasks.TaskSchedulerInterface
	version   string
}
