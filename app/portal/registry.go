package portal

import (
	"fmt"
	"log/slog"
	"os"
	"sort"

	"github.com/adhocore/gronx"
	"gopkg.in/yaml.v3"
)

// KnownTypes lists the adapter types a portal may declare. The adapter
// registry in app/adapter must provide an implementation for each.
var KnownTypes = map[string]bool{
	"csv":     true,
	"html":    true,
	"rss":     true,
	"apify":   true,
	"extract": true,
	"browser": true,
}

// Registry holds the immutable portal set for this process invocation.
type Registry struct {
	portals map[string]Portal
}

// Load reads the portal registry from a YAML file mapping portal id to
// portal settings. Any invalid entry is a configuration error and fails
// the whole load; the scheduler must not start with a malformed registry.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read portals file: %w", err)
	}

	var raw map[string]Portal
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse portals file: %w", err)
	}

	gron := gronx.New()
	portals := make(map[string]Portal, len(raw))
	for id, p := range raw {
		p.ID = id
		if err := validate(gron, p); err != nil {
			return nil, fmt.Errorf("invalid portal %q: %w", id, err)
		}
		portals[id] = p
		slog.Debug("Loaded portal", "portal", id, "type", p.Type, "schedule", p.Schedule)
	}

	return &Registry{portals: portals}, nil
}

func validate(gron *gronx.Gronx, p Portal) error {
	if p.URL == "" && p.Type != "apify" {
		return fmt.Errorf("url is required")
	}
	if p.Type == "" {
		return fmt.Errorf("type is required")
	}
	if !KnownTypes[p.Type] {
		return fmt.Errorf("unknown adapter type: %s", p.Type)
	}
	if p.Schedule == "" {
		return fmt.Errorf("schedule is required")
	}
	if !gron.IsValid(p.Schedule) {
		return fmt.Errorf("invalid cron expression: %s", p.Schedule)
	}
	if p.Type == "html" && p.Selector == "" {
		return fmt.Errorf("html portal requires a selector")
	}
	if p.Type == "apify" && p.Actor == "" {
		return fmt.Errorf("apify portal requires an actor")
	}
	return nil
}

// All returns the portals ordered by id for deterministic iteration.
func (r *Registry) All() []Portal {
	out := make([]Portal, 0, len(r.portals))
	for _, p := range r.portals {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Get returns the portal with the given id.
func (r *Registry) Get(id string) (Portal, bool) {
	p, ok := r.portals[id]
	return p, ok
}

// Count returns the number of registered portals.
func (r *Registry) Count() int {
	return len(r.portals)
}
