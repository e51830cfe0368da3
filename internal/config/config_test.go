package config

import (
	"strings"
	"testing"
)

// A fresh install has no config file; the built-in defaults alone must
// produce a usable sqlite storage target.
func TestLoadConfigDefaultStorage(t *testing.T) {
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.Storage.SQLite == nil {
		t.Fatal("default config has no sqlite storage block")
	}
	if cfg.Storage.SQLite.Path == "" {
		t.Fatal("default sqlite path is empty")
	}
	if !strings.HasSuffix(cfg.Storage.SQLite.Path, "data/outpass.db") {
		t.Errorf("unexpected default sqlite path %q", cfg.Storage.SQLite.Path)
	}
}

func TestLoadConfigDefaultValues(t *testing.T) {
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.SessionTTL == 0 {
		t.Error("session TTL default missing")
	}
	if cfg.ScheduleWindowDays == 0 {
		t.Error("schedule window default missing")
	}
	if cfg.ExpiryGraceHours == 0 {
		t.Error("expiry grace default missing")
	}
	if cfg.RBAC.PolicyFile == "" {
		t.Error("RBAC policy file default missing")
	}
}
