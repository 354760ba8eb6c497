package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/breachwatch/breach-comb/app/database"
	"github.com/breachwatch/breach-comb/app/portal"
	"github.com/breachwatch/breach-comb/app/tasks"
)

type stubRunRepo struct {
	runs  []database.Run
	stats map[string]int
}

func (s *stubRunRepo) StartRun(portalID string, slotStart time.Time) (string, bool, error) {
	return "", false, nil
}

func (s *stubRunRepo) FinishRun(runID, status string, counts database.RunCounts, errMsg string) error {
	return nil
}

func (s *stubRunRepo) SlotServiced(portalID string, slotStart time.Time) (bool, error) {
	return false, nil
}

func (s *stubRunRepo) RecentRuns(limit int) ([]database.Run, error) {
	return s.runs, nil
}

func (s *stubRunRepo) RunStats() (map[string]int, error) {
	return s.stats, nil
}

type stubScheduler struct {
	triggered []string
	err       error
}

func (s *stubScheduler) Start()                               {}
func (s *stubScheduler) Stop()                                {}
func (s *stubScheduler) EnqueueTask(tasks.TaskInterface) error { return nil }
func (s *stubScheduler) RunPass(ctx context.Context) error    { return nil }

func (s *stubScheduler) TriggerPortal(id string) error {
	if s.err != nil {
		return s.err
	}
	s.triggered = append(s.triggered, id)
	return nil
}

func testRegistry(t *testing.T) *portal.Registry {
	t.Helper()
	path := filepath.Join(t.TempDir(), "portals.yml")
	yaml := `
hhs:
  name: HHS Breach Portal
  url: https://example.test/hhs
  type: csv
  schedule: "0 9 * * *"
ca_ag:
  name: California AG
  url: https://example.test/ca
  type: html
  selector: "table tr"
  schedule: "30 10 * * *"
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}
	reg, err := portal.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	return reg
}

func newTestServer(t *testing.T, repo *stubRunRepo, sched *stubScheduler, apiKey string) *gin.Engine {
	t.Helper()
	if repo == nil {
		repo = &stubRunRepo{stats: map[string]int{}}
	}
	handler := NewHandler(testRegistry(t), repo, sched, "test")
	return NewServer(handler, apiKey)
}

func doRequest(r *gin.Engine, method, path string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestGetHealth(t *testing.T) {
	repo := &stubRunRepo{stats: map[string]int{"succeeded": 4, "failed": 1}}
	r := newTestServer(t, repo, &stubScheduler{}, "")

	w := doRequest(r, "GET", "/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["portals"] != float64(2) {
		t.Errorf("Expected 2 portals, got %v", body["portals"])
	}
	if body["version"] != "test" {
		t.Errorf("Expected version test, got %v", body["version"])
	}
}

func TestGetStats(t *testing.T) {
	finished := time.Date(2025, 3, 10, 9, 1, 0, 0, time.UTC)
	repo := &stubRunRepo{
		stats: map[string]int{"succeeded": 1},
		runs: []database.Run{{
			ID:           "run-1",
			PortalID:     "hhs",
			SlotStart:    time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC),
			Status:       database.RunStatusSucceeded,
			RowsTotal:    5,
			RowsInserted: 5,
			StartedAt:    finished.Add(-time.Minute),
			FinishedAt:   &finished,
		}},
	}
	r := newTestServer(t, repo, &stubScheduler{}, "")

	w := doRequest(r, "GET", "/stats", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	var body struct {
		RecentRuns []map[string]interface{} `json:"recent_runs"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if len(body.RecentRuns) != 1 {
		t.Fatalf("Expected 1 recent run, got %d", len(body.RecentRuns))
	}
	if body.RecentRuns[0]["portal"] != "hhs" {
		t.Errorf("Expected portal hhs, got %v", body.RecentRuns[0]["portal"])
	}
}

func TestAPIRequiresKey(t *testing.T) {
	r := newTestServer(t, nil, &stubScheduler{}, "secret")

	if w := doRequest(r, "GET", "/api/portals", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 without key, got %d", w.Code)
	}

	headers := map[string]string{"X-API-Key": "wrong"}
	if w := doRequest(r, "GET", "/api/portals", headers); w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 with wrong key, got %d", w.Code)
	}

	headers = map[string]string{"X-API-Key": "secret"}
	if w := doRequest(r, "GET", "/api/portals", headers); w.Code != http.StatusOK {
		t.Errorf("Expected 200 with valid key, got %d", w.Code)
	}

	headers = map[string]string{"Authorization": "Bearer secret"}
	if w := doRequest(r, "GET", "/api/portals", headers); w.Code != http.StatusOK {
		t.Errorf("Expected 200 with bearer token, got %d", w.Code)
	}
}

func TestAPIDisabledWithoutKey(t *testing.T) {
	r := newTestServer(t, nil, &stubScheduler{}, "")

	if w := doRequest(r, "GET", "/api/portals", nil); w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 when API is disabled, got %d", w.Code)
	}
}

func TestAPIListPortals(t *testing.T) {
	r := newTestServer(t, nil, &stubScheduler{}, "secret")

	w := doRequest(r, "GET", "/api/portals", map[string]string{"X-API-Key": "secret"})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	var body struct {
		Portals []map[string]interface{} `json:"portals"`
		Total   int                      `json:"total"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Total != 2 {
		t.Errorf("Expected 2 portals, got %d", body.Total)
	}
}

func TestAPITriggerPortalRun(t *testing.T) {
	sched := &stubScheduler{}
	r := newTestServer(t, nil, sched, "secret")
	headers := map[string]string{"X-API-Key": "secret"}

	w := doRequest(r, "POST", "/api/portals/hhs/run", headers)
	if w.Code != http.StatusAccepted {
		t.Fatalf("Expected 202, got %d", w.Code)
	}
	if len(sched.triggered) != 1 || sched.triggered[0] != "hhs" {
		t.Errorf("Expected hhs to be triggered, got %v", sched.triggered)
	}

	if w := doRequest(r, "POST", "/api/portals/nope/run", headers); w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown portal, got %d", w.Code)
	}
}

func TestAPITriggerPortalRunQueueFull(t *testing.T) {
	sched := &stubScheduler{err: errors.New("task queue is full")}
	r := newTestServer(t, nil, sched, "secret")

	w := doRequest(r, "POST", "/api/portals/hhs/run", map[string]string{"X-API-Key": "secret"})
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503 when the queue is full, got %d", w.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	r := newTestServer(t, nil, &stubScheduler{}, "")

	w := doRequest(r, "GET", "/metrics", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
}
