package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Addr != ":8080" {
		t.Fatalf("expected default addr, got %q", cfg.Server.Addr)
	}
	if cfg.Gesture.LongPress != 600*time.Millisecond {
		t.Fatalf("expected 600ms long press, got %v", cfg.Gesture.LongPress)
	}
	if cfg.Gesture.ModeToggle != 800*time.Millisecond {
		t.Fatalf("expected 800ms mode toggle, got %v", cfg.Gesture.ModeToggle)
	}
	if cfg.Session.IdleTimeout != 30*time.Minute {
		t.Fatalf("expected 30m idle timeout, got %v", cfg.Session.IdleTimeout)
	}
}

func TestLoadYAMLAndEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "forcecalc.yaml")
	data := []byte(`
server:
  addr: ":9090"
history:
  driver: sqlite
  path: /tmp/history.db
gesture:
  long_press: 450ms
session:
  idle_timeout: 5m
`)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	t.Setenv("FORCECALC_GEOCODE_URL", "http://geo.local")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Addr != ":9090" {
		t.Fatalf("expected addr :9090, got %q", cfg.Server.Addr)
	}
	if cfg.History.Driver != "sqlite" || cfg.History.Path != "/tmp/history.db" {
		t.Fatalf("unexpected history config %+v", cfg.History)
	}
	if cfg.Gesture.LongPress != 450*time.Millisecond {
		t.Fatalf("expected 450ms, got %v", cfg.Gesture.LongPress)
	}
	if cfg.Gesture.ModeToggle != 800*time.Millisecond {
		t.Fatalf("expected untouched default 800ms, got %v", cfg.Gesture.ModeToggle)
	}
	if cfg.Session.IdleTimeout != 5*time.Minute || cfg.Session.SweepInterval != time.Minute {
		t.Fatalf("unexpected session config %+v", cfg.Session)
	}
	if cfg.Geocode.BaseURL != "http://geo.local" {
		t.Fatalf("expected env override, got %q", cfg.Geocode.BaseURL)
	}
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	t.Setenv("FORCECALC_HISTORY_DRIVER", "postgres")

	if _, err := Load(""); err == nil {
		t.Fatal("expected error for unknown history driver")
	}
}
