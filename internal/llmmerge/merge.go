package llmmerge

import (
	"context"

	"golang.org/x/sync/errgroup"

	gerrors "github.com/coderisk/gkg/internal/errors"
	"github.com/coderisk/gkg/internal/graph"
	"github.com/coderisk/gkg/internal/logging"
	"github.com/coderisk/gkg/internal/temporal"
	"github.com/coderisk/gkg/internal/types"
)

// Engine applies validated extraction envelopes to a graph.Store.
type Engine struct {
	store graph.Store
	clock graph.Clock
}

// NewEngine creates a merge engine writing through store. now defaults to
// temporal.Now when nil.
func NewEngine(store graph.Store, now graph.Clock) *Engine {
	if now == nil {
		now = temporal.Now
	}
	return &Engine{store: store, clock: now}
}

// undoEntry records a node's prior state so Merge can revert it if a later
// step in the same envelope aborts. created nodes are reverted by deletion;
// merged nodes are reverted by restoring their pre-merge props.
type undoEntry struct {
	systemID   string
	created    bool
	priorProps map[string]interface{}
}

// Merge validates env, then writes its nodes and relations into store under
// tenant, returning the node alias→system_id map that resulted. On any
// abort after nodes have started writing, Merge attempts to roll back the
// nodes it wrote in this call before returning the error — this is a
// best-effort undo log, not a transaction: concurrent writers to the same
// aliases during the rollback window can still observe the partial state.
func (e *Engine) Merge(ctx context.Context, tenant types.TenantID, env types.ExtractionEnvelope) (map[string]string, error) {
	if err := validateEnvelope(env); err != nil {
		return nil, err
	}

	aliasToSystemID := make(map[string]string, len(env.Nodes))
	var undo []undoEntry

	for _, n := range env.Nodes {
		select {
		case <-ctx.Done():
			e.rollback(context.Background(), tenant, undo)
			return nil, ctx.Err()
		default:
		}

		existing, err := e.store.GetNodeByAlias(ctx, tenant, n.IDAlias)
		if err != nil {
			e.rollback(context.Background(), tenant, undo)
			return nil, err
		}

		node := types.Node{IDAlias: n.IDAlias, Label: n.Label, Props: n.Props}
		systemID, err := e.store.UpsertNode(ctx, tenant, node)
		if err != nil {
			e.rollback(context.Background(), tenant, undo)
			if gerrors.KindOf(err) == gerrors.KindValidation {
				return nil, gerrors.Validation("envelope node %q conflicts with an existing node of a different label: %v", n.IDAlias, err)
			}
			return nil, err
		}

		if existing == nil {
			undo = append(undo, undoEntry{systemID: systemID, created: true})
		} else {
			undo = append(undo, undoEntry{systemID: systemID, priorProps: existing.Props})
		}
		aliasToSystemID[n.IDAlias] = systemID
	}

	now := e.clock()
	for _, rel := range env.Relations {
		select {
		case <-ctx.Done():
			e.rollback(context.Background(), tenant, undo)
			return nil, ctx.Err()
		default:
		}

		fromID := aliasToSystemID[rel.FromIDAlias]
		toID := aliasToSystemID[rel.ToIDAlias]

		validFrom := now
		if rel.ValidFrom != nil {
			// Already validated as parseable; error is impossible here.
			parsed, _ := parseOptionalUTC(rel.ValidFrom)
			validFrom = *parsed
		}
		edgeValidTo, err := parseOptionalUTC(rel.ValidTo)
		if err != nil {
			// unreachable: validated above
			e.rollback(context.Background(), tenant, undo)
			return nil, err
		}

		edge := types.TimeEdge{
			FromNode:  fromID,
			ToNode:    toID,
			Kind:      rel.TypeLabel,
			Props:     rel.Props,
			ValidFrom: validFrom,
			ValidTo:   edgeValidTo,
		}
		if _, err := e.store.UpsertEdge(ctx, tenant, edge); err != nil {
			e.rollback(context.Background(), tenant, undo)
			return nil, err
		}
	}

	return aliasToSystemID, nil
}

// rollback reverts this call's node writes best-effort; failures are not
// propagated since the original error already determines the outcome.
func (e *Engine) rollback(ctx context.Context, tenant types.TenantID, undo []undoEntry) {
	if len(undo) > 0 {
		logging.Warn("rolling back merge", "tenant", string(tenant), "nodes", len(undo))
	}
	for i := len(undo) - 1; i >= 0; i-- {
		entry := undo[i]
		if entry.created {
			_, _ = e.store.DeleteNode(ctx, tenant, entry.systemID)
			continue
		}
		node, err := e.store.GetNode(ctx, tenant, entry.systemID)
		if err != nil || node == nil {
			continue
		}
		node.Props = entry.priorProps
		_, _ = e.store.UpsertNode(ctx, tenant, *node)
	}
}

// MergeFanOut applies several envelopes concurrently under the same tenant,
// stopping at the first error and cancelling the remaining in-flight
// merges. Each envelope is independent: no alias is assumed to be shared
// across envelopes in the same call.
func (e *Engine) MergeFanOut(ctx context.Context, tenant types.TenantID, envs []types.ExtractionEnvelope) ([]map[string]string, error) {
	results := make([]map[string]string, len(envs))
	g, gctx := errgroup.WithContext(ctx)
	for i, env := range envs {
		i, env := i, env
		g.Go(func() error {
			result, err := e.Merge(gctx, tenant, env)
			if err != nil {
				return err
			}
			results[i] = result
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
