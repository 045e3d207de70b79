package tenant

import (
	"fmt"

	"github.com/coderisk/gkg/internal/types"
)

// Scoper resolves a tenant's policy into concrete filter/prefix/routing
// behavior. neo4jstore applies Database through its PolicyResolver;
// ScopeLabel and ScopeQuery are applied only by callers that invoke them —
// neither Manager nor the graph stores call them.
type Scoper interface {
	// ScopeLabel rewrites a label for storage/lookup under this tenant's
	// namespace. PropertyScoped and DedicatedNamespace are no-ops here
	// since they isolate by property or by connection, not by label text.
	ScopeLabel(tenant types.TenantID, label string) string
	// ScopeQuery rewrites a FindNodes query's label set transparently so
	// callers never see namespaced labels.
	ScopeQuery(tenant types.TenantID, query types.GraphQuery) types.GraphQuery
	// Database returns the backend database/keyspace name a tenant's
	// traffic should be routed to, given the adapter's configured default.
	// PropertyScoped and LabelNamespaced share the default database;
	// DedicatedNamespace routes each tenant to its own.
	Database(tenant types.TenantID, defaultDatabase string) string
}

// ResolveScoper returns the Scoper for a policy. Unrecognized policy values
// fall back to identityScoper, the same behavior as PropertyScoped.
func ResolveScoper(p Policy) Scoper {
	switch p {
	case LabelNamespaced:
		return labelNamespacedScoper{}
	case DedicatedNamespace:
		return dedicatedNamespaceScoper{}
	case PropertyScoped:
		return identityScoper{}
	default:
		return identityScoper{}
	}
}

// identityScoper backs PropertyScoped: isolation happens entirely via the
// stamped tenant property, so labels and database routing pass through
// unchanged.
type identityScoper struct{}

func (identityScoper) ScopeLabel(_ types.TenantID, label string) string { return label }
func (identityScoper) ScopeQuery(_ types.TenantID, q types.GraphQuery) types.GraphQuery { return q }
func (identityScoper) Database(_ types.TenantID, defaultDatabase string) string {
	return defaultDatabase
}

type labelNamespacedScoper struct{}

func (labelNamespacedScoper) ScopeLabel(tenant types.TenantID, label string) string {
	return fmt.Sprintf("%s__%s", tenant, label)
}

// ScopeQuery rewrites FindNodes.Labels to carry the tenant's namespace
// prefix before the query reaches the store, so a caller can still write
// FindNodes{Labels: ["Person"]} regardless of policy.
func (s labelNamespacedScoper) ScopeQuery(tenant types.TenantID, q types.GraphQuery) types.GraphQuery {
	switch q.Kind {
	case types.QueryFindNodes:
		out := q
		out.Labels = make([]string, len(q.Labels))
		for i, l := range q.Labels {
			out.Labels[i] = s.ScopeLabel(tenant, l)
		}
		return out
	case types.QueryAsOf, types.QueryAsAt, types.QueryBitemporal:
		if q.Inner == nil {
			return q
		}
		out := q
		inner := s.ScopeQuery(tenant, *q.Inner)
		out.Inner = &inner
		return out
	default:
		return q
	}
}

func (labelNamespacedScoper) Database(_ types.TenantID, defaultDatabase string) string {
	return defaultDatabase
}

// dedicatedNamespaceScoper backs DedicatedNamespace: isolation happens by
// connection routing rather than by label text or a stamped property, so
// ScopeLabel/ScopeQuery are no-ops and Database picks a distinct per-tenant
// database name.
type dedicatedNamespaceScoper struct{}

func (dedicatedNamespaceScoper) ScopeLabel(_ types.TenantID, label string) string { return label }
func (dedicatedNamespaceScoper) ScopeQuery(_ types.TenantID, q types.GraphQuery) types.GraphQuery {
	return q
}

// Database ignores defaultDatabase entirely: each tenant owns its own
// database, named after the tenant id rather than the adapter's default.
func (dedicatedNamespaceScoper) Database(tenant types.TenantID, _ string) string {
	return "tenant_" + sanitizeDatabaseName(string(tenant))
}

// sanitizeDatabaseName keeps a tenant id usable as a Neo4j database name:
// lowercase alphanumerics and underscores only.
func sanitizeDatabaseName(id string) string {
	out := make([]rune, 0, len(id))
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			out = append(out, r)
		case r >= 'A' && r <= 'Z':
			out = append(out, r-'A'+'a')
		default:
			out = append(out, '_')
		}
	}
	return string(out)
}
