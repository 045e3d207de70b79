package tenant

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/coderisk/gkg/internal/types"
)

func TestCreateListDescribeDelete(t *testing.T) {
	ctx := context.Background()
	m := NewManager(NewMemoryRegistry())

	require.NoError(t, m.Create(ctx, "t1", PropertyScoped))
	require.Error(t, m.Create(ctx, "t1", PropertyScoped)) // AlreadyExists

	recs, err := m.List(ctx)
	require.NoError(t, err)
	require.Len(t, recs, 1)

	rec, err := m.Describe(ctx, "t1")
	require.NoError(t, err)
	require.Equal(t, PropertyScoped, rec.Policy)

	require.NoError(t, m.Delete(ctx, "t1", false))
	_, err = m.Describe(ctx, "t1")
	require.Error(t, err)
}

func TestValidateID(t *testing.T) {
	require.NoError(t, ValidateID("tenant-1"))
	require.Error(t, ValidateID(""))
	require.Error(t, ValidateID("has space"))
	require.Error(t, ValidateID(types.TenantID(make([]byte, 200))))
}

func TestLabelNamespacedScopeQuery(t *testing.T) {
	scoper := ResolveScoper(LabelNamespaced)
	q := types.FindNodes([]string{"Person"}, nil, 0)
	scoped := scoper.ScopeQuery("t1", q)
	require.Equal(t, []string{"t1__Person"}, scoped.Labels)
}

func TestPropertyScopedScopeQueryIsNoop(t *testing.T) {
	scoper := ResolveScoper(PropertyScoped)
	q := types.FindNodes([]string{"Person"}, nil, 0)
	scoped := scoper.ScopeQuery("t1", q)
	require.Equal(t, []string{"Person"}, scoped.Labels)
}

func TestDedicatedNamespaceRoutesToItsOwnDatabase(t *testing.T) {
	scoper := ResolveScoper(DedicatedNamespace)
	require.Equal(t, "tenant_acme", scoper.Database("acme", "neo4j"))

	// Unlike DedicatedNamespace, PropertyScoped and LabelNamespaced share
	// the adapter's configured default database.
	require.Equal(t, "neo4j", ResolveScoper(PropertyScoped).Database("acme", "neo4j"))
	require.Equal(t, "neo4j", ResolveScoper(LabelNamespaced).Database("acme", "neo4j"))
}
