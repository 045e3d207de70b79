package graph

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/coderisk/gkg/internal/types"
)

func parseT(t *testing.T, s string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, s)
	require.NoError(t, err)
	return ts.UTC()
}

// Scenario 1: upsert then as-of query.
func TestUpsertThenAsOfQuery(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	tenant := types.TenantID("t1")

	aliceID, err := store.UpsertNode(ctx, tenant, types.Node{IDAlias: "alice", Label: "Person"})
	require.NoError(t, err)
	acmeID, err := store.UpsertNode(ctx, tenant, types.Node{IDAlias: "acme", Label: "Company"})
	require.NoError(t, err)

	validFrom := parseT(t, "2023-01-15T00:00:00Z")
	_, err = store.UpsertEdge(ctx, tenant, types.TimeEdge{
		FromNode: aliceID, ToNode: acmeID, Kind: "WORKS_FOR", ValidFrom: validFrom,
	})
	require.NoError(t, err)

	at := parseT(t, "2023-06-01T00:00:00Z")
	paths, err := store.Query(ctx, tenant, types.FindRelationships(aliceID, "", []string{"WORKS_FOR"}, &at, 0))
	require.NoError(t, err)
	require.Len(t, paths, 1)

	before := parseT(t, "2022-01-01T00:00:00Z")
	paths, err = store.Query(ctx, tenant, types.FindRelationships(aliceID, "", []string{"WORKS_FOR"}, &before, 0))
	require.NoError(t, err)
	require.Len(t, paths, 0)
}

// Scenario 2: bitemporal supersession.
func TestBitemporalSupersession(t *testing.T) {
	ctx := context.Background()
	cur := parseT(t, "2024-01-01T00:00:00Z")
	store := NewMemoryStoreWithClock(func() time.Time { return cur })
	tenant := types.TenantID("t1")

	aliceID, _ := store.UpsertNode(ctx, tenant, types.Node{IDAlias: "alice", Label: "Person"})
	acmeID, _ := store.UpsertNode(ctx, tenant, types.Node{IDAlias: "acme", Label: "Company"})

	validFrom := parseT(t, "2023-01-15T00:00:00Z")
	_, err := store.UpsertEdge(ctx, tenant, types.TimeEdge{
		FromNode: aliceID, ToNode: acmeID, Kind: "WORKS_FOR", ValidFrom: validFrom,
	})
	require.NoError(t, err)

	between := cur
	cur = cur.Add(time.Hour)
	_, err = store.UpsertEdge(ctx, tenant, types.TimeEdge{
		FromNode: aliceID, ToNode: acmeID, Kind: "WORKS_FOR", ValidFrom: validFrom,
		Props: map[string]interface{}{"role": "Senior"},
	})
	require.NoError(t, err)

	paths, err := store.Query(ctx, tenant, types.AsAt(
		types.FindRelationships(aliceID, "", []string{"WORKS_FOR"}, nil, 0), between))
	require.NoError(t, err)
	require.Len(t, paths, 1)
	require.NotContains(t, paths[0].Steps[0].Edge.Props, "role")

	paths, err = store.Query(ctx, tenant, types.AsAt(
		types.FindRelationships(aliceID, "", []string{"WORKS_FOR"}, nil, 0), cur))
	require.NoError(t, err)
	require.Len(t, paths, 1)
	require.Equal(t, "Senior", paths[0].Steps[0].Edge.Props["role"])
}

// Scenario 3: tenant isolation.
func TestTenantIsolation(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	t1, t2 := types.TenantID("t1"), types.TenantID("t2")

	_, err := store.UpsertNode(ctx, t1, types.Node{IDAlias: "alice", Label: "Person"})
	require.NoError(t, err)

	node, err := store.GetNodeByAlias(ctx, t2, "alice")
	require.NoError(t, err)
	require.Nil(t, node)

	paths, err := store.Query(ctx, t2, types.FindNodes([]string{"Person"}, nil, 0))
	require.NoError(t, err)
	require.Len(t, paths, 0)
}

// Scenario 6: delete closes edges.
func TestDeleteNodeClosesIncidentEdges(t *testing.T) {
	ctx := context.Background()
	closeAt := parseT(t, "2024-03-01T00:00:00Z")
	store := NewMemoryStoreWithClock(func() time.Time { return closeAt })
	tenant := types.TenantID("t1")

	aliceID, _ := store.UpsertNode(ctx, tenant, types.Node{IDAlias: "alice", Label: "Person"})
	acmeID, _ := store.UpsertNode(ctx, tenant, types.Node{IDAlias: "acme", Label: "Company"})
	validFrom := parseT(t, "2023-01-15T00:00:00Z")
	_, err := store.UpsertEdge(ctx, tenant, types.TimeEdge{
		FromNode: aliceID, ToNode: acmeID, Kind: "WORKS_FOR", ValidFrom: validFrom,
	})
	require.NoError(t, err)

	deleted, err := store.DeleteNode(ctx, tenant, aliceID)
	require.NoError(t, err)
	require.True(t, deleted)

	after := closeAt.Add(time.Hour)
	paths, err := store.Query(ctx, tenant, types.FindRelationships("", "", []string{"WORKS_FOR"}, &after, 0))
	require.NoError(t, err)
	require.Len(t, paths, 0)
}

func TestUpsertNodeAliasLabelMismatch(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	tenant := types.TenantID("t1")

	_, err := store.UpsertNode(ctx, tenant, types.Node{IDAlias: "alice", Label: "Person"})
	require.NoError(t, err)

	_, err = store.UpsertNode(ctx, tenant, types.Node{IDAlias: "alice", Label: "Animal"})
	require.Error(t, err)
}

func TestUpsertNodeIdempotence(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	tenant := types.TenantID("t1")

	n := types.Node{IDAlias: "alice", Label: "Person", Props: map[string]interface{}{"age": 30}}
	id1, err := store.UpsertNode(ctx, tenant, n)
	require.NoError(t, err)
	id2, err := store.UpsertNode(ctx, tenant, n)
	require.NoError(t, err)
	require.Equal(t, id1, id2)
}

func TestUpsertEdgeNonexistentNode(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	tenant := types.TenantID("t1")

	_, err := store.UpsertEdge(ctx, tenant, types.TimeEdge{
		FromNode: "missing", ToNode: "also-missing", Kind: "X", ValidFrom: time.Now(),
	})
	require.Error(t, err)
}

func TestRawQueryRejected(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	_, err := store.Query(ctx, types.TenantID("t1"), types.Raw("MATCH (n) RETURN n", nil))
	require.Error(t, err)
}
