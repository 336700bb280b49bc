package calculator

import (
	"context"
	"errors"
	"testing"
	"time"

	"forcecalc/internal/testutil"
)

func TestSessionsSweepClosesIdleSessions(t *testing.T) {
	clock := testutil.NewClock(testNow)
	reg := NewSessions(Options{Clock: clock})
	t.Cleanup(reg.Close)

	idle := reg.Create(ForceConfig{})
	active := reg.Create(ForceConfig{})

	clock.Advance(20 * time.Minute)
	if _, err := reg.Get(active.ID()); err != nil {
		t.Fatalf("Get(active): %v", err)
	}
	clock.Advance(15 * time.Minute)

	if n := reg.Sweep(30 * time.Minute); n != 1 {
		t.Fatalf("expected 1 session swept, got %d", n)
	}
	if reg.Len() != 1 {
		t.Fatalf("expected 1 live session, got %d", reg.Len())
	}

	if _, err := reg.Get(idle.ID()); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound for swept session, got %v", err)
	}
	if _, err := idle.Press(context.Background(), Digit('1')); !errors.Is(err, ErrSessionClosed) {
		t.Fatalf("expected swept session to be closed, got %v", err)
	}
	if _, err := active.Press(context.Background(), Digit('1')); err != nil {
		t.Fatalf("expected active session to keep working, got %v", err)
	}
}

func TestSessionsRunSweeperStopsWithContext(t *testing.T) {
	reg := NewSessions(Options{})
	t.Cleanup(reg.Close)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		reg.RunSweeper(ctx, time.Millisecond, time.Hour)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after cancel")
	}
}

func TestSessionsDeleteUnknown(t *testing.T) {
	reg := NewSessions(Options{})
	if err := reg.Delete("missing"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}
