package portal

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writePortals(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "portals.yml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadValidRegistry(t *testing.T) {
	path := writePortals(t, `
hhs:
  name: "HHS Breach Portal"
  url: "https://ocrportal.hhs.gov/ocr/breach/breach_report.csv"
  type: csv
  schedule: "0 9 * * *"
  count_field: "Individuals Affected"

ca_ag:
  url: "https://oag.ca.gov/privacy/databreach/list"
  type: html
  schedule: "30 */6 * * *"
  selector: "table tbody tr"
`)

	reg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	if reg.Count() != 2 {
		t.Errorf("Expected 2 portals, got %d", reg.Count())
	}

	p, ok := reg.Get("hhs")
	if !ok {
		t.Fatal("Expected portal 'hhs' to exist")
	}
	if p.ID != "hhs" {
		t.Errorf("Expected id 'hhs', got %q", p.ID)
	}
	if p.Type != "csv" {
		t.Errorf("Expected type 'csv', got %q", p.Type)
	}
	if p.CountField != "Individuals Affected" {
		t.Errorf("Expected count field 'Individuals Affected', got %q", p.CountField)
	}
	if p.DisplayName() != "HHS Breach Portal" {
		t.Errorf("Expected display name from name field, got %q", p.DisplayName())
	}

	all := reg.All()
	if len(all) != 2 || all[0].ID != "ca_ag" || all[1].ID != "hhs" {
		t.Errorf("Expected deterministic id order [ca_ag hhs], got %v", []string{all[0].ID, all[1].ID})
	}
}

func TestLoadRejectsInvalidCron(t *testing.T) {
	path := writePortals(t, `
bad:
  url: "https://example.com"
  type: csv
  schedule: "not a cron"
`)

	_, err := Load(path)
	if err == nil {
		t.Fatal("Expected error for invalid cron expression")
	}
	if !strings.Contains(err.Error(), "invalid cron expression") {
		t.Errorf("Expected cron validation error, got: %v", err)
	}
}

func TestLoadRejectsUnknownType(t *testing.T) {
	path := writePortals(t, `
bad:
  url: "https://example.com"
  type: carrier_pigeon
  schedule: "0 9 * * *"
`)

	if _, err := Load(path); err == nil {
		t.Fatal("Expected error for unknown adapter type")
	}
}

func TestLoadRejectsHTMLWithoutSelector(t *testing.T) {
	path := writePortals(t, `
bad:
  url: "https://example.com"
  type: html
  schedule: "0 9 * * *"
`)

	if _, err := Load(path); err == nil {
		t.Fatal("Expected error for html portal without selector")
	}
}

func TestPortalParam(t *testing.T) {
	p := Portal{Params: map[string]string{"rows_expr": "extractRows()"}}

	if got := p.Param("rows_expr", "x"); got != "extractRows()" {
		t.Errorf("Expected configured param, got %q", got)
	}
	if got := p.Param("missing", "fallback"); got != "fallback" {
		t.Errorf("Expected fallback, got %q", got)
	}
}
