package main

import (
	"os"
	"path/filepath"
	"testing"

	"forcecalc/internal/config"
	"forcecalc/internal/history"
)

func TestOpenHistory(t *testing.T) {
	mem, err := openHistory(config.HistoryConfig{Driver: "memory"})
	if err != nil {
		t.Fatalf("openHistory(memory): %v", err)
	}
	if _, ok := mem.(*history.Memory); !ok {
		t.Fatalf("expected *history.Memory, got %T", mem)
	}

	db, err := openHistory(config.HistoryConfig{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "h.db")})
	if err != nil {
		t.Fatalf("openHistory(sqlite): %v", err)
	}
	defer db.Close()
	if _, ok := db.(*history.SQLite); !ok {
		t.Fatalf("expected *history.SQLite, got %T", db)
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	if err := os.WriteFile(path, []byte("FORCECALC_DOTENV_TEST=from-file\nFORCECALC_DOTENV_KEEP=from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("FORCECALC_DOTENV_KEEP", "from-process")
	t.Cleanup(func() { os.Unsetenv("FORCECALC_DOTENV_TEST") })

	if err := loadDotEnv([]string{path}); err != nil {
		t.Fatalf("loadDotEnv: %v", err)
	}
	if got := os.Getenv("FORCECALC_DOTENV_TEST"); got != "from-file" {
		t.Errorf("FORCECALC_DOTENV_TEST = %q, want from-file", got)
	}
	if got := os.Getenv("FORCECALC_DOTENV_KEEP"); got != "from-process" {
		t.Errorf("FORCECALC_DOTENV_KEEP = %q, want from-process", got)
	}

	if err := loadDotEnv([]string{filepath.Join(dir, "missing.env")}); err == nil {
		t.Error("expected error for a missing named file")
	}
}
