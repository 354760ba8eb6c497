package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/breachwatch/breach-comb/app/database"
	"github.com/breachwatch/breach-comb/app/portal"
	"github.com/breachwatch/breach-comb/app/tasks"
)

func NewHandler(portals *portal.Registry, runRepo database.RunRepository,
	scheduler tasks.TaskSchedulerInterface, version string) *Handler {
	return &Handler{
		portals:   portals,
		runRepo:   runRepo,
		scheduler: scheduler,
		version:   version,
	}
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   h.version,
		"portals":   h.portals.Count(),
	}

	if stats, err := h.runRepo.RunStats(); err == nil {
		health["runs"] = stats
	}

	c.JSON(http.StatusOK, health)
}

func (h *Handler) GetStats(c *gin.Context) {
	stats, err := h.runRepo.RunStats()
	if err != nil {
		slog.Error("Database error", "operation", "run_stats", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	limit := 20
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}

	recent, err := h.runRepo.RecentRuns(limit)
	if err != nil {
		slog.Error("Database error", "operation", "recent_runs", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	runs := make([]map[string]interface{}, 0, len(recent))
	for _, run := range recent {
		runs = append(runs, runInfo(run))
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"runs_by_status": stats,
		"recent_runs":    runs,
	})
}

func (h *Handler) APIListPortals(c *gin.Context) {
	all := h.portals.All()

	portals := make([]map[string]interface{}, 0, len(all))
	for _, p := range all {
		portals = append(portals, map[string]interface{}{
			"id":       p.ID,
			"name":     p.DisplayName(),
			"url":      p.URL,
			"type":     p.Type,
			"schedule": p.Schedule,
		})
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"portals": portals,
		"total":   len(portals),
	})
}

func (h *Handler) APIGetPortalDetails(c *gin.Context) {
	id := c.Param("id")

	p, ok := h.portals.Get(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Portal not found"})
		return
	}

	details := map[string]interface{}{
		"id":       p.ID,
		"name":     p.DisplayName(),
		"url":      p.URL,
		"type":     p.Type,
		"schedule": p.Schedule,
	}
	if p.Selector != "" {
		details["selector"] = p.Selector
	}
	if p.Actor != "" {
		details["actor"] = p.Actor
	}

	if recent, err := h.runRepo.RecentRuns(100); err == nil {
		runs := make([]map[string]interface{}, 0)
		for _, run := range recent {
			if run.PortalID == id {
				runs = append(runs, runInfo(run))
			}
		}
		details["recent_runs"] = runs
	}

	c.JSON(http.StatusOK, details)
}

func (h *Handler) APITriggerPortalRun(c *gin.Context) {
	id := c.Param("id")

	if _, ok := h.portals.Get(id); !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Portal not found"})
		return
	}

	if err := h.scheduler.TriggerPortal(id); err != nil {
		slog.Error("Failed to trigger portal run", "portal", id, "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Failed to enqueue run"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"portal":  id,
		"message": "Run enqueued",
	})
}

func runInfo(run database.Run) map[string]interface{} {
	info := map[string]interface{}{
		"id":         run.ID,
		"portal":     run.PortalID,
		"slot_start": run.SlotStart.Format(time.RFC3339),
		"status":     run.Status,
		"total":      run.RowsTotal,
		"inserted":   run.RowsInserted,
		"duplicates": run.RowsDuplicate,
		"failed":     run.RowsFailed,
		"started_at": run.StartedAt.Format(time.RFC3339),
	}
	if run.Error != "" {
		info["error"] = run.Error
	}
	if run.FinishedAt != nil {
		info["finished_at"] = run.FinishedAt.Format(time.RFC3339)
	}
	return info
}
