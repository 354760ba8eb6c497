package adapter

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/breachwatch/breach-comb/app/portal"
)

func serveBody(t *testing.T, body string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestCSVAdapterMapsHeaderToRows(t *testing.T) {
	server := serveBody(t, "Name of Covered Entity,State,Individuals Affected\nAcme Health,CA,\"1,234\"\nBeta Clinic,TX,\n")

	a := NewCSVAdapter(NewFetcher(server.Client(), "ua"))
	rows, err := a.Run(context.Background(), portal.Portal{ID: "hhs", URL: server.URL, Type: "csv"})
	if err != nil {
		t.Fatal(err)
	}

	if len(rows) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(rows))
	}
	if rows[0]["Name of Covered Entity"] != "Acme Health" {
		t.Errorf("Expected entity 'Acme Health', got %v", rows[0]["Name of Covered Entity"])
	}
	if rows[0]["Individuals Affected"] != "1,234" {
		t.Errorf("Expected raw count '1,234', got %v", rows[0]["Individuals Affected"])
	}
	if rows[1]["Individuals Affected"] != "" {
		t.Errorf("Expected empty count preserved, got %v", rows[1]["Individuals Affected"])
	}
}

func TestCSVAdapterPipeDelimiter(t *testing.T) {
	server := serveBody(t, "org_name|total_affected\nAcme|500\n")

	a := NewCSVAdapter(NewFetcher(server.Client(), "ua"))
	p := portal.Portal{
		ID: "prc", URL: server.URL, Type: "csv",
		Params: map[string]string{"delimiter": "|"},
	}
	rows, err := a.Run(context.Background(), p)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0]["total_affected"] != "500" {
		t.Fatalf("Expected pipe-delimited parse, got %v", rows)
	}
}

func TestCSVAdapterShortRecordPadsFields(t *testing.T) {
	server := serveBody(t, "a,b,c\n1,2\n")

	a := NewCSVAdapter(NewFetcher(server.Client(), "ua"))
	rows, err := a.Run(context.Background(), portal.Portal{ID: "p", URL: server.URL})
	if err != nil {
		t.Fatal(err)
	}
	if rows[0]["c"] != "" {
		t.Errorf("Expected missing trailing field to default to empty string, got %v", rows[0]["c"])
	}
}

func TestCSVAdapterLatin1Fallback(t *testing.T) {
	// 0xE9 is é in Latin-1 and invalid on its own in UTF-8.
	server := serveBody(t, "entity\nCaf\xe9 Health\n")

	a := NewCSVAdapter(NewFetcher(server.Client(), "ua"))
	rows, err := a.Run(context.Background(), portal.Portal{ID: "p", URL: server.URL})
	if err != nil {
		t.Fatal(err)
	}
	if rows[0]["entity"] != "Café Health" {
		t.Errorf("Expected Latin-1 decoded entity, got %v", rows[0]["entity"])
	}
}

func TestCSVAdapterFetchErrorAbortsPortal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	a := NewCSVAdapter(NewFetcher(server.Client(), "ua"))
	if _, err := a.Run(context.Background(), portal.Portal{ID: "p", URL: server.URL}); err == nil {
		t.Fatal("Expected fetch error to surface")
	}
}
