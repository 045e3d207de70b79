package tenant

import (
	"context"
	"sync"

	"github.com/coderisk/gkg/internal/types"
)

// MemoryRegistry is a non-durable Registry, used in tests.
type MemoryRegistry struct {
	mu      sync.RWMutex
	records map[types.TenantID]Record
}

func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{records: make(map[types.TenantID]Record)}
}

func (r *MemoryRegistry) Create(ctx context.Context, rec Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[rec.ID] = rec
	return nil
}

func (r *MemoryRegistry) Get(ctx context.Context, id types.TenantID) (*Record, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[id]
	if !ok {
		return nil, false, nil
	}
	return &rec, true, nil
}

func (r *MemoryRegistry) List(ctx context.Context) ([]Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Record, 0, len(r.records))
	for _, rec := range r.records {
		out = append(out, rec)
	}
	return out, nil
}

func (r *MemoryRegistry) Delete(ctx context.Context, id types.TenantID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.records, id)
	return nil
}
