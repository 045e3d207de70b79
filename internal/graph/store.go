// Package graph defines the GraphStore capability contract
// and ships its in-memory reference implementation. A second
// implementation adapting the same contract onto Neo4j lives in
// graph/neo4jstore.
package graph

import (
	"context"
	"time"

	"github.com/coderisk/gkg/internal/types"
)

// Store is the capability set every backend must provide. Every method is
// tenant-scoped and suspendable: implementations must not rely
// on query text alone for isolation — the tenant predicate is applied at
// the adapter boundary.
type Store interface {
	UpsertNode(ctx context.Context, tenant types.TenantID, node types.Node) (string, error)
	GetNode(ctx context.Context, tenant types.TenantID, systemID string) (*types.Node, error)
	GetNodeByAlias(ctx context.Context, tenant types.TenantID, idAlias string) (*types.Node, error)
	DeleteNode(ctx context.Context, tenant types.TenantID, systemID string) (bool, error)

	UpsertEdge(ctx context.Context, tenant types.TenantID, edge types.TimeEdge) (string, error)
	DeleteEdge(ctx context.Context, tenant types.TenantID, systemID string) (bool, error)

	Query(ctx context.Context, tenant types.TenantID, query types.GraphQuery) ([]types.Path, error)

	HealthCheck(ctx context.Context) error
}

// Clock lets callers substitute wall-clock "now" resolution in tests; the
// reference implementation defaults to temporal.Now.
type Clock func() time.Time
