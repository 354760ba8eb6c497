package adapter

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestFetcherGet(t *testing.T) {
	var gotUA string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Write([]byte("payload"))
	}))
	defer server.Close()

	f := NewFetcher(server.Client(), "Breach Comb/test")
	data, err := f.Get(context.Background(), server.URL)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "payload" {
		t.Errorf("Expected body 'payload', got %q", string(data))
	}
	if gotUA != "Breach Comb/test" {
		t.Errorf("Expected configured user agent, got %q", gotUA)
	}
}

func TestFetcherGetNon200(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	f := NewFetcher(server.Client(), "ua")
	if _, err := f.Get(context.Background(), server.URL); err == nil {
		t.Fatal("Expected error for HTTP 502")
	}
}

func TestFetcherRetriesWithoutVerificationOnTLSFailure(t *testing.T) {
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("insecure ok"))
	}))
	defer server.Close()

	// A default client does not trust the test server's certificate, so
	// the first attempt fails verification and the relaxed retry lands.
	f := NewFetcher(&http.Client{}, "ua")
	data, err := f.Get(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Expected relaxed retry to succeed, got: %v", err)
	}
	if string(data) != "insecure ok" {
		t.Errorf("Expected body from relaxed retry, got %q", string(data))
	}
}

func TestIsTLSError(t *testing.T) {
	if isTLSError(context.DeadlineExceeded) {
		t.Error("Deadline errors must not count as TLS errors")
	}
}
