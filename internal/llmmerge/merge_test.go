package llmmerge

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/coderisk/gkg/internal/graph"
	"github.com/coderisk/gkg/internal/types"
)

func fixedClock(t time.Time) graph.Clock {
	return func() time.Time { return t }
}

func strPtr(s string) *string { return &s }

func TestMergeCreatesNodesAndRelations(t *testing.T) {
	ctx := context.Background()
	store := graph.NewMemoryStore()
	engine := NewEngine(store, fixedClock(mustParseTime(t, "2024-01-01T00:00:00Z")))

	env := types.ExtractionEnvelope{
		Nodes: []types.EnvelopeNode{
			{IDAlias: "alice", Label: "Person"},
			{IDAlias: "acme", Label: "Org"},
		},
		Relations: []types.EnvelopeRelation{
			{FromIDAlias: "alice", ToIDAlias: "acme", TypeLabel: "WORKS_AT"},
		},
	}

	aliases, err := engine.Merge(ctx, "t1", env)
	require.NoError(t, err)
	require.Len(t, aliases, 2)

	paths, err := store.Query(ctx, "t1", types.FindRelationships(aliases["alice"], aliases["acme"], nil, nil, 0))
	require.NoError(t, err)
	require.Len(t, paths, 1)
}

func TestMergeIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := graph.NewMemoryStore()
	engine := NewEngine(store, fixedClock(mustParseTime(t, "2024-01-01T00:00:00Z")))

	env := types.ExtractionEnvelope{
		Nodes: []types.EnvelopeNode{
			{IDAlias: "alice", Label: "Person"},
			{IDAlias: "acme", Label: "Org"},
		},
		Relations: []types.EnvelopeRelation{
			{FromIDAlias: "alice", ToIDAlias: "acme", TypeLabel: "WORKS_AT"},
		},
	}

	first, err := engine.Merge(ctx, "t1", env)
	require.NoError(t, err)
	second, err := engine.Merge(ctx, "t1", env)
	require.NoError(t, err)
	require.Equal(t, first, second)

	paths, err := store.Query(ctx, "t1", types.FindRelationships(first["alice"], first["acme"], nil, nil, 0))
	require.NoError(t, err)
	require.Len(t, paths, 1)
}

func TestMergeRejectsDanglingAlias(t *testing.T) {
	ctx := context.Background()
	store := graph.NewMemoryStore()
	engine := NewEngine(store, nil)

	env := types.ExtractionEnvelope{
		Nodes: []types.EnvelopeNode{
			{IDAlias: "alice", Label: "Person"},
		},
		Relations: []types.EnvelopeRelation{
			{FromIDAlias: "alice", ToIDAlias: "ghost", TypeLabel: "KNOWS"},
		},
	}

	_, err := engine.Merge(ctx, "t1", env)
	require.Error(t, err)

	// No writes should have happened.
	n, err := store.GetNodeByAlias(ctx, "t1", "alice")
	require.NoError(t, err)
	require.Nil(t, n)
}

func TestMergeRejectsDuplicateAlias(t *testing.T) {
	ctx := context.Background()
	store := graph.NewMemoryStore()
	engine := NewEngine(store, nil)

	env := types.ExtractionEnvelope{
		Nodes: []types.EnvelopeNode{
			{IDAlias: "alice", Label: "Person"},
			{IDAlias: "alice", Label: "Org"},
		},
	}

	_, err := engine.Merge(ctx, "t1", env)
	require.Error(t, err)
}

func TestMergeRejectsLabelMismatchAndRollsBack(t *testing.T) {
	ctx := context.Background()
	store := graph.NewMemoryStore()
	engine := NewEngine(store, nil)

	_, err := store.UpsertNode(ctx, "t1", types.Node{IDAlias: "alice", Label: "Person"})
	require.NoError(t, err)

	env := types.ExtractionEnvelope{
		Nodes: []types.EnvelopeNode{
			{IDAlias: "alice", Label: "Org"},
		},
	}
	_, err = engine.Merge(ctx, "t1", env)
	require.Error(t, err)

	node, err := store.GetNodeByAlias(ctx, "t1", "alice")
	require.NoError(t, err)
	require.Equal(t, "Person", node.Label)
}

func TestMergeFanOutAppliesIndependentEnvelopes(t *testing.T) {
	ctx := context.Background()
	store := graph.NewMemoryStore()
	engine := NewEngine(store, nil)

	envs := []types.ExtractionEnvelope{
		{Nodes: []types.EnvelopeNode{{IDAlias: "a1", Label: "Person"}}},
		{Nodes: []types.EnvelopeNode{{IDAlias: "a2", Label: "Person"}}},
	}
	results, err := engine.MergeFanOut(ctx, "t1", envs)
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Contains(t, results[0], "a1")
	require.Contains(t, results[1], "a2")
}

func mustParseTime(t *testing.T, s string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, s)
	require.NoError(t, err)
	return ts.UTC()
}
