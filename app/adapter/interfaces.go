// Package adapter contains the source-type-specific fetchers. Every
// adapter maps one portal descriptor to zero or more raw rows; adapters are
// stateless and free to perform arbitrary I/O within the caller's context,
// but a portal failure is theirs to return, never to hide. New source types
// are added by implementing Adapter and registering it, without touching
// the scheduler or the store client.
package adapter

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/breachwatch/breach-comb/app/normalize"
	"github.com/breachwatch/breach-comb/app/portal"
)

// Adapter turns one portal descriptor into raw rows.
type Adapter interface {
	Type() string
	Run(ctx context.Context, p portal.Portal) ([]normalize.RawRow, error)
}

// Options carries the process-level settings adapters share.
type Options struct {
	UserAgent    string
	ApifyBaseURL string
	ApifyToken   string
	ExtractURL   string
	ExtractKey   string
	PollInterval time.Duration
	PollDeadline time.Duration
}

// Registry dispatches portals to adapters by their declared type.
type Registry struct {
	adapters map[string]Adapter
}

// NewRegistry builds the full adapter set.
func NewRegistry(httpClient *http.Client, opts Options) *Registry {
	fetcher := NewFetcher(httpClient, opts.UserAgent)

	adapters := []Adapter{
		NewCSVAdapter(fetcher),
		NewHTMLAdapter(fetcher),
		NewRSSAdapter(fetcher),
		NewApifyAdapter(httpClient, opts.ApifyBaseURL, opts.ApifyToken, opts.PollInterval, opts.PollDeadline),
		NewExtractAdapter(httpClient, opts.ExtractURL, opts.ExtractKey),
		NewBrowserAdapter(opts.UserAgent),
	}

	m := make(map[string]Adapter, len(adapters))
	for _, a := range adapters {
		m[a.Type()] = a
	}
	return &Registry{adapters: m}
}

// Get returns the adapter for a portal's declared type.
func (r *Registry) Get(portalType string) (Adapter, error) {
	a, ok := r.adapters[portalType]
	if !ok {
		return nil, fmt.Errorf("no adapter registered for type %q", portalType)
	}
	return a, nil
}
