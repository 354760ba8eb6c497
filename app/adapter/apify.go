package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/breachwatch/breach-comb/app/normalize"
	"github.com/breachwatch/breach-comb/app/portal"
)

// ErrJobTimeout reports that an asynchronous extraction job did not reach
// a terminal state before the configured deadline. It is a distinct failure
// kind so callers can tell a slow job from a failed one.
var ErrJobTimeout = errors.New("extraction job timed out")

const DefaultApifyBaseURL = "https://api.apify.com"

// ApifyAdapter runs portals backed by a hosted browser-automation actor:
// it submits an actor run, polls the run on a fixed interval until a
// terminal status, then downloads the run's dataset items. Polling is
// bounded by a hard deadline; a job that never terminates is reported as a
// timeout, never waited on forever.
type ApifyAdapter struct {
	client       *http.Client
	baseURL      string
	token        string
	pollInterval time.Duration
	pollDeadline time.Duration
}

func NewApifyAdapter(client *http.Client, baseURL, token string, pollInterval, pollDeadline time.Duration) *ApifyAdapter {
	if baseURL == "" {
		baseURL = DefaultApifyBaseURL
	}
	if pollInterval <= 0 {
		pollInterval = 10 * time.Second
	}
	if pollDeadline <= 0 {
		pollDeadline = 10 * time.Minute
	}
	return &ApifyAdapter{
		client:       client,
		baseURL:      baseURL,
		token:        token,
		pollInterval: pollInterval,
		pollDeadline: pollDeadline,
	}
}

func (a *ApifyAdapter) Type() string {
	return "apify"
}

type apifyRun struct {
	Data struct {
		ID               string `json:"id"`
		Status           string `json:"status"`
		DefaultDatasetID string `json:"defaultDatasetId"`
	} `json:"data"`
}

func (a *ApifyAdapter) Run(ctx context.Context, p portal.Portal) ([]normalize.RawRow, error) {
	if a.token == "" {
		return nil, fmt.Errorf("apify token is not configured")
	}

	run, err := a.startRun(ctx, p.Actor)
	if err != nil {
		return nil, err
	}

	finished, err := a.waitForRun(ctx, run.Data.ID)
	if err != nil {
		return nil, err
	}

	return a.fetchItems(ctx, finished.Data.DefaultDatasetID)
}

func (a *ApifyAdapter) startRun(ctx context.Context, actor string) (*apifyRun, error) {
	body, _ := json.Marshal(map[string]any{
		"memory":  1024,
		"timeout": 1200,
		"input":   map[string]any{},
	})

	url := fmt.Sprintf("%s/v2/acts/%s/runs?token=%s", a.baseURL, actor, a.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create actor run request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var run apifyRun
	if err := a.do(req, &run); err != nil {
		return nil, fmt.Errorf("failed to start actor run: %w", err)
	}
	if run.Data.ID == "" {
		return nil, fmt.Errorf("actor run creation returned no run id")
	}
	return &run, nil
}

// waitForRun polls the run until it reaches a terminal status or the
// deadline expires.
func (a *ApifyAdapter) waitForRun(ctx context.Context, runID string) (*apifyRun, error) {
	ctx, cancel := context.WithTimeout(ctx, a.pollDeadline)
	defer cancel()

	ticker := time.NewTicker(a.pollInterval)
	defer ticker.Stop()

	for {
		run, err := a.getRun(ctx, runID)
		if err != nil {
			return nil, err
		}

		switch run.Data.Status {
		case "SUCCEEDED":
			return run, nil
		case "FAILED", "ABORTED", "TIMED-OUT":
			return nil, fmt.Errorf("actor run %s ended with status %s", runID, run.Data.Status)
		}

		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return nil, fmt.Errorf("%w: run %s still %s after %s", ErrJobTimeout, runID, run.Data.Status, a.pollDeadline)
			}
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (a *ApifyAdapter) getRun(ctx context.Context, runID string) (*apifyRun, error) {
	url := fmt.Sprintf("%s/v2/actor-runs/%s?token=%s", a.baseURL, runID, a.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create run status request: %w", err)
	}

	var run apifyRun
	if err := a.do(req, &run); err != nil {
		return nil, fmt.Errorf("failed to poll actor run: %w", err)
	}
	return &run, nil
}

func (a *ApifyAdapter) fetchItems(ctx context.Context, datasetID string) ([]normalize.RawRow, error) {
	if datasetID == "" {
		return nil, fmt.Errorf("actor run finished without a dataset")
	}

	url := fmt.Sprintf("%s/v2/datasets/%s/items?clean=true", a.baseURL, datasetID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create dataset request: %w", err)
	}

	var items []normalize.RawRow
	if err := a.do(req, &items); err != nil {
		return nil, fmt.Errorf("failed to fetch dataset items: %w", err)
	}
	return items, nil
}

func (a *ApifyAdapter) do(req *http.Request, out any) error {
	resp, err := a.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}
	return json.Unmarshal(body, out)
}
