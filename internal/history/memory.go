package history

import (
	"context"
	"slices"
	"sync"
)

// Memory is an in-memory store.
type Memory struct {
	mu      sync.RWMutex
	records []Record
}

// NewMemory creates a new in-memory store.
func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Add(_ context.Context, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, cloneRecord(rec))
	return nil
}

func (m *Memory) PatchAddress(_ context.Context, patch AddressPatch) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := len(m.records) - 1; i >= 0; i-- {
		if patch.matches(m.records[i]) {
			patch.apply(&m.records[i])
			return true, nil
		}
	}
	return false, nil
}

func (m *Memory) Get(_ context.Context, id string) (Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, rec := range m.records {
		if rec.ID == id {
			return cloneRecord(rec), nil
		}
	}
	return Record{}, ErrNotFound
}

func (m *Memory) List(_ context.Context, limit int) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := len(m.records)
	if limit > 0 && limit < n {
		n = limit
	}

	out := make([]Record, 0, n)
	for i := len(m.records) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, cloneRecord(m.records[i]))
	}
	return out, nil
}

func (m *Memory) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = nil
	return nil
}

// Close is a no-op for the memory store.
func (m *Memory) Close() error {
	return nil
}

func cloneRecord(r Record) Record {
	r.Operands = slices.Clone(r.Operands)
	return r
}
