package cfg

import (
	"testing"
)

func TestGetVersion(t *testing.T) {
	if GetVersion() == "" {
		t.Error("GetVersion should never return empty string")
	}
}

func TestConfigFields(t *testing.T) {
	cfg := &Cfg{
		StoreURL:          "https://store.example.com",
		StoreKey:          "secret",
		StoreTable:        "breach_raw",
		EnrichURL:         "https://enrich.example.com/hook",
		PortalsFile:       "./portals.yml",
		StateDBPath:       "./state.db",
		Port:              "8080",
		WorkerCount:       3,
		SchedulerInterval: 60,
		HTTPTimeout:       30,
		PollInterval:      10,
		PollDeadline:      600,
		UserAgent:         "Test Agent",
		Timezone:          "UTC",
	}

	if cfg.StoreURL != "https://store.example.com" {
		t.Errorf("Expected store URL, got '%s'", cfg.StoreURL)
	}
	if cfg.StoreTable != "breach_raw" {
		t.Errorf("Expected table 'breach_raw', got '%s'", cfg.StoreTable)
	}
	if cfg.WorkerCount != 3 {
		t.Errorf("Expected worker count 3, got %d", cfg.WorkerCount)
	}
	if cfg.SchedulerInterval != 60 {
		t.Errorf("Expected scheduler interval 60, got %d", cfg.SchedulerInterval)
	}
	if cfg.PollDeadline != 600 {
		t.Errorf("Expected poll deadline 600, got %d", cfg.PollDeadline)
	}
}

func TestGetPanicsBeforeLoad(t *testing.T) {
	saved := globalCfg
	globalCfg = nil
	defer func() {
		globalCfg = saved
		if r := recover(); r == nil {
			t.Error("Expected Get to panic before Load")
		}
	}()
	Get()
}
