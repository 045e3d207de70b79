// Package tenant implements the tenant manager: tenant lifecycle,
// isolation-policy selection, and the Scoper hooks that resolve a policy
// into label rewriting and database routing. Of those hooks, only
// Scoper.Database is called by a graph.Store implementation (neo4jstore).
package tenant

import (
	"context"
	"regexp"
	"sync"

	gerrors "github.com/coderisk/gkg/internal/errors"
	"github.com/coderisk/gkg/internal/logging"
	"github.com/coderisk/gkg/internal/types"
)

// Policy selects how a backend isolates one tenant's data from another's.
type Policy string

const (
	// PropertyScoped is the default: a single shared namespace with a
	// tenant field stamped onto every row.
	PropertyScoped Policy = "property_scoped"
	// LabelNamespaced mangles label names per tenant.
	LabelNamespaced Policy = "label_namespaced"
	// DedicatedNamespace routes each tenant to a separate backend
	// namespace/database.
	DedicatedNamespace Policy = "dedicated_namespace"
)

// Record describes a registered tenant.
type Record struct {
	ID     types.TenantID
	Policy Policy
}

// Registry persists tenant records. BoltRegistry and SQLRegistry are the
// two durable implementations (internal/tenant/bolt_registry.go,
// internal/tenant/sql_registry.go); MemoryRegistry is a non-durable one.
type Registry interface {
	Create(ctx context.Context, rec Record) error
	Get(ctx context.Context, id types.TenantID) (*Record, bool, error)
	List(ctx context.Context) ([]Record, error)
	Delete(ctx context.Context, id types.TenantID) error
}

var tenantIDPattern = regexp.MustCompile(`^[\x21-\x7E]+$`) // printable ASCII, no whitespace

// ValidateID enforces the tenant identifier format: non-empty, printable
// ASCII, no whitespace, length <= 128.
func ValidateID(id types.TenantID) error {
	s := string(id)
	if s == "" {
		return gerrors.Validation("tenant id must not be empty")
	}
	if len(s) > 128 {
		return gerrors.Validation("tenant id exceeds 128 characters")
	}
	if !tenantIDPattern.MatchString(s) {
		return gerrors.Validation("tenant id must be printable ASCII with no whitespace")
	}
	return nil
}

// Manager owns tenant lifecycle and resolves each tenant's policy into a
// Scoper a Store adapter applies at its boundary.
type Manager struct {
	mu       sync.RWMutex
	registry Registry
	cache    map[types.TenantID]Record
}

// NewManager creates a manager backed by the given registry.
func NewManager(registry Registry) *Manager {
	return &Manager{registry: registry, cache: make(map[types.TenantID]Record)}
}

// Create registers a new tenant with the chosen isolation policy.
func (m *Manager) Create(ctx context.Context, id types.TenantID, policy Policy) error {
	if err := ValidateID(id); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.cache[id]; ok {
		return gerrors.AlreadyExists("tenant %q already exists", id)
	}
	if _, found, err := m.registry.Get(ctx, id); err != nil {
		return err
	} else if found {
		return gerrors.AlreadyExists("tenant %q already exists", id)
	}

	rec := Record{ID: id, Policy: policy}
	if err := m.registry.Create(ctx, rec); err != nil {
		return err
	}
	m.cache[id] = rec
	logging.Info("tenant created", "tenant", string(id), "policy", string(policy))
	return nil
}

// List returns every registered tenant.
func (m *Manager) List(ctx context.Context) ([]Record, error) {
	return m.registry.List(ctx)
}

// Describe returns a single tenant's record.
func (m *Manager) Describe(ctx context.Context, id types.TenantID) (*Record, error) {
	m.mu.RLock()
	if rec, ok := m.cache[id]; ok {
		m.mu.RUnlock()
		return &rec, nil
	}
	m.mu.RUnlock()

	rec, found, err := m.registry.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, gerrors.NotFound("tenant %q not found", id)
	}
	return rec, nil
}

// Delete removes a tenant's registry entry. force is accepted for callers
// that want to signal an unconditional delete; the caller is responsible
// for invoking the backend's own data-removal path (DedicatedNamespace:
// drop the namespace; PropertyScoped/LabelNamespaced: delete all rows
// bearing the tenant id) before or after this call, since that path is
// backend-specific and the registry itself holds no row data.
func (m *Manager) Delete(ctx context.Context, id types.TenantID, force bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, found, err := m.registry.Get(ctx, id); err != nil {
		return err
	} else if !found {
		return gerrors.NotFound("tenant %q not found", id)
	}
	if err := m.registry.Delete(ctx, id); err != nil {
		return err
	}
	delete(m.cache, id)
	logging.Info("tenant deleted", "tenant", string(id), "force", force)
	return nil
}

// Resolve returns the isolation Policy for a tenant, defaulting to
// PropertyScoped for tenants the manager has no record of yet (lazily
// registered tenants, e.g. in the in-memory store's test paths).
func (m *Manager) Resolve(ctx context.Context, id types.TenantID) Policy {
	rec, err := m.Describe(ctx, id)
	if err != nil || rec == nil {
		return PropertyScoped
	}
	return rec.Policy
}
