package calculator

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrSessionNotFound is returned for unknown session IDs.
var ErrSessionNotFound = errors.New("session not found")

type sessionEntry struct {
	s        *Session
	lastUsed time.Time
}

// Sessions is the set of live calculator sessions.
type Sessions struct {
	opts Options

	mu       sync.Mutex
	sessions map[string]*sessionEntry
}

// NewSessions returns an empty registry whose sessions share opts.
func NewSessions(opts Options) *Sessions {
	return &Sessions{
		opts:     opts.withDefaults(),
		sessions: make(map[string]*sessionEntry),
	}
}

// Create starts a new session.
func (r *Sessions) Create(cfg ForceConfig) *Session {
	s := NewSession(uuid.New().String(), cfg, r.opts)

	r.mu.Lock()
	r.sessions[s.ID()] = &sessionEntry{s: s, lastUsed: r.opts.Clock.Now()}
	r.mu.Unlock()
	return s
}

// Get looks up a session by ID and marks it used.
func (r *Sessions) Get(id string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	e.lastUsed = r.opts.Clock.Now()
	return e.s, nil
}

// Len returns the number of live sessions.
func (r *Sessions) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Delete closes and forgets a session.
func (r *Sessions) Delete(id string) error {
	r.mu.Lock()
	e, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}
	e.s.Close()
	return nil
}

// Sweep closes sessions not looked up within idle and returns how many it
// removed.
func (r *Sessions) Sweep(idle time.Duration) int {
	cutoff := r.opts.Clock.Now().Add(-idle)

	var stale []*Session
	r.mu.Lock()
	for id, e := range r.sessions {
		if e.lastUsed.Before(cutoff) {
			stale = append(stale, e.s)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	for _, s := range stale {
		s.Close()
	}
	return len(stale)
}

// RunSweeper calls Sweep every interval until ctx is done.
func (r *Sessions) RunSweeper(ctx context.Context, interval, idle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Sweep(idle); n > 0 {
				r.opts.Logger.Info("idle sessions closed", zap.Int("sessions", n))
			}
		}
	}
}

// Scratch returns a session that is not registered, for one-shot evaluation.
func (r *Sessions) Scratch(cfg ForceConfig) *Session {
	return NewSession(uuid.New().String(), cfg, r.opts)
}

// Enricher returns the shared background enricher, if configured.
func (r *Sessions) Enricher() *Enricher {
	return r.opts.Enricher
}

// Close closes every session.
func (r *Sessions) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, e := range r.sessions {
		e.s.Close()
		delete(r.sessions, id)
	}
}
