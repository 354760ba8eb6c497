package portal

// Portal describes one external breach-notification source: where to fetch
// it, which adapter understands it, and when it is scheduled to run.
// Portals are loaded once at process start and never mutated afterwards.
type Portal struct {
	// ID is the registry key, derived from the YAML mapping key.
	ID string `yaml:"-"`

	Name     string `yaml:"name"`
	URL      string `yaml:"url"`
	Type     string `yaml:"type"`
	Schedule string `yaml:"schedule"` // 5-field cron expression, UTC

	// Selector is the CSS row selector for the html adapter.
	Selector string `yaml:"selector"`
	// Columns names the column layout for tabular adapters.
	// "breach" selects the 8-column breach-chronology layout; anything
	// else falls back to the generic {notice_date, entity, records} triple.
	Columns string `yaml:"columns"`
	// Actor is the actor identifier for the apify adapter.
	Actor string `yaml:"actor"`
	// CountField names the raw field holding the affected-individuals
	// count. Defaults per adapter type when empty.
	CountField string `yaml:"count_field"`

	// Params carries adapter-specific settings that do not warrant a
	// dedicated field (e.g. wait_selector / rows_expr for the browser
	// adapter).
	Params map[string]string `yaml:"params"`
}

// DisplayName returns the human-readable name, falling back to the id.
func (p Portal) DisplayName() string {
	if p.Name != "" {
		return p.Name
	}
	return p.ID
}

// Param returns an adapter-specific parameter or a default.
func (p Portal) Param(key, fallback string) string {
	if v, ok := p.Params[key]; ok && v != "" {
		return v
	}
	return fallback
}
