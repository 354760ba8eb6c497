// Package store implements the idempotent-insert protocol against the
// central breach record store. Identity of a stored record is its content
// hash; submitting equal content any number of times has the same
// observable effect as submitting it once. Uniqueness is enforced by the
// store's own constraint on the hash column, so concurrent inserts of the
// same payload still collapse to one record.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/breachwatch/breach-comb/app/metrics"
	"github.com/breachwatch/breach-comb/app/normalize"
)

// InsertedPublisher publishes successfully inserted rows to an event bus.
// Publishing is advisory: a failure never changes an insert's outcome.
type InsertedPublisher interface {
	PublishInserted(ctx context.Context, portalID, hash string, payload []byte) error
}

// Client performs idempotent single-row inserts against the store's REST
// endpoint and fires best-effort post-insert hooks.
type Client struct {
	httpClient *http.Client
	baseURL    string
	key        string
	table      string
	enrichURL  string
	publisher  InsertedPublisher
	seen       *lru.Cache[string, struct{}]
	metrics    *metrics.Metrics
}

// Option configures optional client collaborators.
type Option func(*Client)

// WithEnrichment sets the enrichment hook endpoint.
func WithEnrichment(url string) Option {
	return func(c *Client) { c.enrichURL = url }
}

// WithPublisher sets the inserted-row event publisher.
func WithPublisher(p InsertedPublisher) Option {
	return func(c *Client) { c.publisher = p }
}

// WithMetrics sets the metrics sink for row outcomes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// NewClient creates a store client. seenCacheSize bounds the process-local
// LRU of already-submitted hashes; the cache only short-circuits repeat
// submissions within this process and is not part of the at-most-once
// guarantee, which lives in the store's uniqueness constraint.
func NewClient(httpClient *http.Client, baseURL, key, table string, seenCacheSize int, opts ...Option) (*Client, error) {
	if baseURL == "" || key == "" {
		return nil, fmt.Errorf("store URL and key are required")
	}
	if seenCacheSize <= 0 {
		seenCacheSize = 8192
	}
	seen, err := lru.New[string, struct{}](seenCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create seen-hash cache: %w", err)
	}

	c := &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		key:        key,
		table:      table,
		seen:       seen,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Insert submits one normalized row. The row's content hash is computed
// over the row as normalized, before the hash itself or any store-assigned
// field exists; the insertion timestamp is stamped by the store so wall
// clock time never poisons the fingerprint.
func (c *Client) Insert(ctx context.Context, row normalize.Row) Result {
	portalID, _ := row["_portal"].(string)

	hash, err := Fingerprint(row)
	if err != nil {
		return c.finish(portalID, Result{Outcome: OutcomeFailed, Detail: err.Error()})
	}

	if _, ok := c.seen.Get(hash); ok {
		slog.Debug("Row already submitted this process, skipping", "portal", portalID, "hash", hash)
		return c.finish(portalID, Result{Outcome: OutcomeDuplicate, Hash: hash})
	}

	stored := make(normalize.Row, len(row)+1)
	for k, v := range row {
		stored[k] = v
	}
	stored["hash"] = hash

	payload, err := json.Marshal([]normalize.Row{stored})
	if err != nil {
		return c.finish(portalID, Result{Outcome: OutcomeFailed, Hash: hash, Detail: err.Error()})
	}

	url := fmt.Sprintf("%s/rest/v1/%s?on_conflict=hash&select=hash", c.baseURL, c.table)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return c.finish(portalID, Result{Outcome: OutcomeFailed, Hash: hash, Detail: err.Error()})
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", c.key)
	req.Header.Set("Authorization", "Bearer "+c.key)
	req.Header.Set("Prefer", "resolution=ignore-duplicates,return=representation")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return c.finish(portalID, Result{Outcome: OutcomeFailed, Hash: hash, Detail: err.Error()})
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return c.finish(portalID, Result{Outcome: OutcomeFailed, Hash: hash, Detail: err.Error()})
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		slog.Error("Store insert failed", "portal", portalID, "hash", hash,
			"status", resp.StatusCode, "body", string(body))
		return c.finish(portalID, Result{Outcome: OutcomeFailed, Hash: hash, Detail: string(body)})
	}

	c.seen.Add(hash, struct{}{})

	// With conflict-ignore semantics the representation is empty when the
	// hash already existed: the insert was a no-op, not an error.
	if isEmptyRepresentation(body) {
		return c.finish(portalID, Result{Outcome: OutcomeDuplicate, Hash: hash})
	}

	c.fireHooks(ctx, portalID, hash, stored)

	return c.finish(portalID, Result{Outcome: OutcomeInserted, Hash: hash})
}

func (c *Client) finish(portalID string, r Result) Result {
	if c.metrics != nil {
		c.metrics.RecordRow(portalID, string(r.Outcome))
	}
	return r
}

func isEmptyRepresentation(body []byte) bool {
	var rows []json.RawMessage
	if err := json.Unmarshal(body, &rows); err != nil {
		// Not an array; treat any 2xx body we cannot read as inserted.
		return false
	}
	return len(rows) == 0
}

// fireHooks invokes the post-insert collaborators. Both are fire-and-forget:
// failures are logged and counted, never reflected in the insert outcome.
func (c *Client) fireHooks(ctx context.Context, portalID, hash string, stored normalize.Row) {
	if c.enrichURL != "" {
		if err := c.enrich(ctx, stored); err != nil {
			slog.Warn("Enrichment hook failed", "portal", portalID, "hash", hash, "error", err)
			if c.metrics != nil {
				c.metrics.EnrichErrorsTotal.Inc()
			}
		}
	}

	if c.publisher != nil {
		payload, err := json.Marshal(stored)
		if err == nil {
			err = c.publisher.PublishInserted(ctx, portalID, hash, payload)
		}
		if err != nil {
			slog.Warn("Failed to publish inserted row", "portal", portalID, "hash", hash, "error", err)
			if c.metrics != nil {
				c.metrics.PublishErrorsTotal.Inc()
			}
		}
	}
}

func (c *Client) enrich(ctx context.Context, stored normalize.Row) error {
	payload, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("failed to marshal enrichment payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.enrichURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create enrichment request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.key)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("enrichment request failed: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("enrichment returned HTTP %d", resp.StatusCode)
	}
	return nil
}
