package cfg

import (
	"cmp"
	"fmt"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Store configuration. The store key is a bearer credential; both it
	// and the URL are required so a misconfigured process fails at startup
	// instead of failing every insert.
	StoreURL   string `long:"store-url" env:"STORE_URL" description:"Base URL of the ingestion store REST endpoint (required)" required:"true"`
	StoreKey   string `long:"store-key" env:"STORE_KEY" description:"Bearer credential for the ingestion store (required)" required:"true"`
	StoreTable string `long:"store-table" env:"STORE_TABLE" default:"breach_raw" description:"Store table receiving normalized rows"`

	// Downstream collaborators
	EnrichURL   string `long:"enrich-url" env:"ENRICH_URL" description:"Enrichment hook endpoint invoked after successful inserts (optional)"`
	NatsURL     string `long:"nats-url" env:"NATS_URL" description:"NATS server URL for publishing inserted rows (optional)"`
	NatsSubject string `long:"nats-subject" env:"NATS_SUBJECT" default:"breach.ingested" description:"NATS subject for inserted-row events"`

	// Extraction/automation services
	ApifyToken string `long:"apify-token" env:"APIFY_TOKEN" description:"API token for the apify adapter (required by apify portals)"`
	ExtractURL string `long:"extract-url" env:"EXTRACT_URL" description:"Base URL of the structured-extraction service (required by extract portals)"`
	ExtractKey string `long:"extract-key" env:"EXTRACT_KEY" description:"Bearer credential for the structured-extraction service"`

	// Application configuration
	PortalsFile       string `long:"portals-file" env:"PORTALS_FILE" default:"./portals.yml" description:"Portal registry YAML file"`
	StateDBPath       string `long:"state-db" env:"STATE_DB_PATH" default:"./breach-comb.db" description:"Path of the local run-state database"`
	Port              string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	WorkerCount       int    `long:"worker-count" env:"WORKER_COUNT" default:"3" description:"Number of background workers for portal ingestion"`
	SchedulerInterval int    `long:"scheduler-interval" env:"SCHEDULER_INTERVAL" default:"60" description:"Scheduler tick interval in seconds; must not exceed the finest cron granularity"`
	HTTPTimeout       int    `long:"http-timeout" env:"HTTP_TIMEOUT" default:"30" description:"Timeout in seconds for adapter and store HTTP calls"`
	PollInterval      int    `long:"poll-interval" env:"POLL_INTERVAL" default:"10" description:"Poll interval in seconds while waiting on asynchronous extraction jobs"`
	PollDeadline      int    `long:"poll-deadline" env:"POLL_DEADLINE" default:"600" description:"Maximum seconds to wait for an asynchronous extraction job before reporting timeout"`
	SeenCacheSize     int    `long:"seen-cache-size" env:"SEEN_CACHE_SIZE" default:"8192" description:"Process-local LRU size for already-seen content hashes"`
	APIAccessKey      string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for authenticated endpoints (optional)"`
	Once              bool   `long:"once" description:"Run a single scheduler pass and exit"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"Breach Comb/1.0" description:"User agent string for HTTP requests"`
	Timezone  string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (cron schedules are always UTC)"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

func Load() (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		StoreURL:          raw.StoreURL,
		StoreKey:          raw.StoreKey,
		StoreTable:        raw.StoreTable,
		EnrichURL:         raw.EnrichURL,
		NatsURL:           raw.NatsURL,
		NatsSubject:       raw.NatsSubject,
		ApifyToken:        raw.ApifyToken,
		ExtractURL:        raw.ExtractURL,
		ExtractKey:        raw.ExtractKey,
		PortalsFile:       raw.PortalsFile,
		StateDBPath:       raw.StateDBPath,
		Port:              raw.Port,
		WorkerCount:       raw.WorkerCount,
		SchedulerInterval: raw.SchedulerInterval,
		HTTPTimeout:       raw.HTTPTimeout,
		PollInterval:      raw.PollInterval,
		PollDeadline:      raw.PollDeadline,
		SeenCacheSize:     raw.SeenCacheSize,
		APIAccessKey:      raw.APIAccessKey,
		Once:              raw.Once,
		UserAgent:         raw.UserAgent,
		Timezone:          raw.Timezone,
		Debug:             raw.Debug,
		Version:           GetVersion(),
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
		}
	}
	return nil
}
