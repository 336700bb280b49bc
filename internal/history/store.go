package history

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when no record has the requested ID.
var ErrNotFound = errors.New("history: record not found")

// Store is the append-only history collaborator. PatchAddress is
// idempotent: a record is patched at most once, and a patch for a record
// that no longer exists is a silent no-op.
type Store interface {
	Add(ctx context.Context, rec Record) error
	PatchAddress(ctx context.Context, patch AddressPatch) (bool, error)
	Get(ctx context.Context, id string) (Record, error)
	// List returns records newest first. limit <= 0 means no limit.
	List(ctx context.Context, limit int) ([]Record, error)
	Clear(ctx context.Context) error
	Close() error
}
