package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, "server:\n  port: \"9090\"\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "9090" {
		t.Fatalf("expected port override, got %s", cfg.Server.Port)
	}
	if cfg.Revenue.UserShare != 0.8 || cfg.Revenue.Min != 1 || cfg.Revenue.Max != 6 {
		t.Fatalf("unexpected revenue defaults: %+v", cfg.Revenue)
	}
	if !cfg.Risk.Clamp || cfg.Revenue.PayBlocked {
		t.Fatalf("unexpected policy defaults: clamp=%v payBlocked=%v", cfg.Risk.Clamp, cfg.Revenue.PayBlocked)
	}
}

func TestLoadRejectsInvertedRevenueRange(t *testing.T) {
	path := writeConfig(t, "revenue:\n  min: 5\n  max: 2\n")
	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "Revenue.Max") {
		t.Fatalf("expected revenue range error, got %v", err)
	}
}

func TestLoadRejectsSMTPWithoutSender(t *testing.T) {
	path := writeConfig(t, "smtp:\n  host: smtp.example.com\n")
	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for smtp host without from")
	}
}

func TestTTLDuration(t *testing.T) {
	if d := TTLDuration("", time.Minute); d != time.Minute {
		t.Fatalf("expected fallback, got %v", d)
	}
	if d := TTLDuration("90s", time.Minute); d != 90*time.Second {
		t.Fatalf("expected 90s, got %v", d)
	}
	if d := TTLDuration("soon", time.Minute); d != time.Minute {
		t.Fatalf("expected fallback on bad input, got %v", d)
	}
}
