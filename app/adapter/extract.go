package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/breachwatch/breach-comb/app/normalize"
	"github.com/breachwatch/breach-comb/app/portal"
)

// breachRowSchema constrains what the extraction service may hand back.
// The service is an LLM-backed scraper; rows that do not match the schema
// are dropped rather than trusted into the store.
const breachRowSchema = `{
  "type": "object",
  "properties": {
    "entity":      {"type": "string"},
    "breach_date": {"type": "string"},
    "notice_date": {"type": "string"},
    "records":     {"type": ["integer", "string", "null"]},
    "breach_type": {"type": "string"},
    "entity_type": {"type": "string"},
    "state":       {"type": "string"},
    "notice_url":  {"type": ["string", "null"]}
  },
  "required": ["entity", "notice_date"]
}`

// ExtractAdapter delegates scraping to a structured-extraction service:
// it posts the portal URL plus the expected row schema and receives the
// extracted rows back. Each row is validated against the schema before it
// enters the pipeline.
type ExtractAdapter struct {
	client  *http.Client
	baseURL string
	key     string
	schema  gojsonschema.JSONLoader
}

func NewExtractAdapter(client *http.Client, baseURL, key string) *ExtractAdapter {
	return &ExtractAdapter{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		key:     key,
		schema:  gojsonschema.NewStringLoader(breachRowSchema),
	}
}

func (a *ExtractAdapter) Type() string {
	return "extract"
}

type extractRequest struct {
	URL    string          `json:"url"`
	Prompt string          `json:"prompt"`
	Schema json.RawMessage `json:"schema"`
}

type extractResponse struct {
	Data []normalize.RawRow `json:"data"`
}

func (a *ExtractAdapter) Run(ctx context.Context, p portal.Portal) ([]normalize.RawRow, error) {
	if a.baseURL == "" {
		return nil, fmt.Errorf("extraction service URL is not configured")
	}

	payload, err := json.Marshal(extractRequest{
		URL:    p.URL,
		Prompt: p.Param("prompt", "Extract all data breach records from the page."),
		Schema: json.RawMessage(breachRowSchema),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal extraction request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/v1/extract", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create extraction request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if a.key != "" {
		req.Header.Set("Authorization", "Bearer "+a.key)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("extraction request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read extraction response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("extraction service returned HTTP %d: %s", resp.StatusCode, string(body))
	}

	var extracted extractResponse
	if err := json.Unmarshal(body, &extracted); err != nil {
		return nil, fmt.Errorf("failed to decode extraction response: %w", err)
	}

	rows := make([]normalize.RawRow, 0, len(extracted.Data))
	for i, row := range extracted.Data {
		result, err := gojsonschema.Validate(a.schema, gojsonschema.NewGoLoader(row))
		if err != nil {
			slog.Warn("Failed to validate extracted row", "portal", p.ID, "index", i, "error", err)
			continue
		}
		if !result.Valid() {
			slog.Warn("Dropping extracted row failing schema validation",
				"portal", p.ID, "index", i, "errors", schemaErrors(result))
			continue
		}
		rows = append(rows, row)
	}

	return rows, nil
}

func schemaErrors(result *gojsonschema.Result) string {
	var parts []string
	for _, e := range result.Errors() {
		parts = append(parts, e.String())
	}
	return strings.Join(parts, "; ")
}
