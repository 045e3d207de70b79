// Package neo4jstore adapts the graph.Store contract onto Neo4j. It exists
// to exercise github.com/neo4j/neo4j-go-driver/v5 as a second, illustrative
// implementation alongside the in-memory reference store — not as the
// shipped default.
package neo4jstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	gerrors "github.com/coderisk/gkg/internal/errors"
	"github.com/coderisk/gkg/internal/temporal"
	tenantpkg "github.com/coderisk/gkg/internal/tenant"
	"github.com/coderisk/gkg/internal/types"
)

// PolicyResolver looks up a tenant's isolation policy, so the adapter can
// route DedicatedNamespace tenants to their own database. Set via
// SetPolicyResolver; tenant.Manager.Resolve satisfies this signature.
type PolicyResolver func(ctx context.Context, tenant types.TenantID) tenantpkg.Policy

// Store adapts graph.Store onto a Neo4j driver, tagging every write with a
// `tenant` property and every read with a `tenant` match predicate —
// tenant enforcement applied at this adapter boundary, never trusted to
// query-construction call sites.
type Store struct {
	driver   neo4j.DriverWithContext
	database string
	policyOf PolicyResolver
}

// New creates a Neo4j-backed store and verifies connectivity, grounded on
// internal/graph/neo4j_backend.go's NewNeo4jBackend. Every tenant is routed
// to database until SetPolicyResolver is called.
func New(ctx context.Context, uri, username, password, database string) (*Store, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, gerrors.Backend(err, "failed to create neo4j driver")
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(ctx)
		return nil, gerrors.Backend(err, "failed to connect to neo4j")
	}
	return &Store{driver: driver, database: database}, nil
}

// SetPolicyResolver wires per-tenant policy lookup into the adapter so
// DedicatedNamespace tenants get routed to their own database rather than
// the one passed to New.
func (s *Store) SetPolicyResolver(resolve PolicyResolver) {
	s.policyOf = resolve
}

// databaseFor resolves which database a tenant's traffic should hit: the
// adapter's default database unless the tenant's policy is
// DedicatedNamespace, in which case Scoper.Database picks a dedicated one.
func (s *Store) databaseFor(ctx context.Context, tenant types.TenantID) string {
	if s.policyOf == nil {
		return s.database
	}
	policy := s.policyOf(ctx, tenant)
	return tenantpkg.ResolveScoper(policy).Database(tenant, s.database)
}

func (s *Store) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

func (s *Store) HealthCheck(ctx context.Context) error {
	if err := s.driver.VerifyConnectivity(ctx); err != nil {
		return gerrors.Backend(err, "neo4j health check failed")
	}
	return nil
}

// UpsertNode uses a MERGE keyed on (tenant, id_alias) when an alias is
// given, or always CREATEs a fresh node otherwise, mirroring
// graph.MemoryStore's identity rules but expressed in Cypher.
func (s *Store) UpsertNode(ctx context.Context, tenant types.TenantID, node types.Node) (string, error) {
	params := map[string]any{
		"tenant": string(tenant),
		"alias":  node.IDAlias,
		"label":  node.Label,
		"props":  node.Props,
	}

	var cypher string
	if node.IDAlias != "" {
		cypher = `
MERGE (n {tenant: $tenant, id_alias: $alias})
ON CREATE SET n.label = $label, n.props = $props, n.system_id = randomUUID()
ON MATCH SET n.props = apoc.map.merge(n.props, $props)
RETURN n.system_id AS id, n.label AS label`
	} else {
		cypher = `
CREATE (n {tenant: $tenant, label: $label, props: $props, system_id: randomUUID()})
RETURN n.system_id AS id, n.label AS label`
	}

	result, err := neo4j.ExecuteQuery(ctx, s.driver, cypher, params,
		neo4j.EagerResultTransformer, neo4j.ExecuteQueryWithDatabase(s.databaseFor(ctx, tenant)))
	if err != nil {
		return "", gerrors.Backend(err, "upsert node failed")
	}
	if len(result.Records) == 0 {
		return "", gerrors.Internal("upsert node returned no rows")
	}
	record := result.Records[0]
	id, _ := record.Get("id")
	label, _ := record.Get("label")
	if node.IDAlias != "" && label != node.Label {
		return "", gerrors.Validation("alias %q already bound to label %q, got %q", node.IDAlias, label, node.Label)
	}
	return fmt.Sprintf("%v", id), nil
}

func (s *Store) GetNode(ctx context.Context, tenant types.TenantID, systemID string) (*types.Node, error) {
	cypher := `MATCH (n {tenant: $tenant, system_id: $id}) RETURN n.system_id AS id, n.id_alias AS alias, n.label AS label, n.props AS props`
	result, err := neo4j.ExecuteQuery(ctx, s.driver, cypher,
		map[string]any{"tenant": string(tenant), "id": systemID},
		neo4j.EagerResultTransformer, neo4j.ExecuteQueryWithDatabase(s.databaseFor(ctx, tenant)))
	if err != nil {
		return nil, gerrors.Backend(err, "get node failed")
	}
	if len(result.Records) == 0 {
		return nil, nil
	}
	return recordToNode(result.Records[0]), nil
}

func (s *Store) GetNodeByAlias(ctx context.Context, tenant types.TenantID, idAlias string) (*types.Node, error) {
	cypher := `MATCH (n {tenant: $tenant, id_alias: $alias}) RETURN n.system_id AS id, n.id_alias AS alias, n.label AS label, n.props AS props`
	result, err := neo4j.ExecuteQuery(ctx, s.driver, cypher,
		map[string]any{"tenant": string(tenant), "alias": idAlias},
		neo4j.EagerResultTransformer, neo4j.ExecuteQueryWithDatabase(s.databaseFor(ctx, tenant)))
	if err != nil {
		return nil, gerrors.Backend(err, "get node by alias failed")
	}
	if len(result.Records) == 0 {
		return nil, nil
	}
	return recordToNode(result.Records[0]), nil
}

func recordToNode(record *neo4j.Record) *types.Node {
	id, _ := record.Get("id")
	alias, _ := record.Get("alias")
	label, _ := record.Get("label")
	props, _ := record.Get("props")
	n := &types.Node{SystemID: fmt.Sprintf("%v", id), Label: fmt.Sprintf("%v", label)}
	if alias != nil {
		n.IDAlias = fmt.Sprintf("%v", alias)
	}
	if propsMap, ok := props.(map[string]interface{}); ok {
		n.Props = propsMap
	}
	return n
}

func (s *Store) DeleteNode(ctx context.Context, tenant types.TenantID, systemID string) (bool, error) {
	now := temporal.Now()
	cypher := `
MATCH (n {tenant: $tenant, system_id: $id})
OPTIONAL MATCH (n)-[r {transaction_end_time: null}]-()
SET r.valid_to = coalesce(r.valid_to, $now), r.transaction_end_time = $now
WITH n
DETACH DELETE n
RETURN count(n) AS deleted`
	result, err := neo4j.ExecuteQuery(ctx, s.driver, cypher,
		map[string]any{"tenant": string(tenant), "id": systemID, "now": now.Format(time.RFC3339Nano)},
		neo4j.EagerResultTransformer, neo4j.ExecuteQueryWithDatabase(s.databaseFor(ctx, tenant)))
	if err != nil {
		return false, gerrors.Backend(err, "delete node failed")
	}
	if len(result.Records) == 0 {
		return false, nil
	}
	count, _ := result.Records[0].Get("deleted")
	return fmt.Sprintf("%v", count) != "0", nil
}

func (s *Store) UpsertEdge(ctx context.Context, tenant types.TenantID, edge types.TimeEdge) (string, error) {
	if edge.ValidTo != nil && edge.ValidTo.Before(edge.ValidFrom) {
		return "", gerrors.Validation("valid_to is before valid_from")
	}
	now := temporal.Now()
	cypher := fmt.Sprintf(`
MATCH (a {tenant: $tenant, system_id: $from}), (b {tenant: $tenant, system_id: $to})
OPTIONAL MATCH (a)-[old:%s {tenant: $tenant, valid_from: $valid_from, transaction_end_time: null}]->(b)
SET old.transaction_end_time = $now
CREATE (a)-[r:%s {tenant: $tenant, system_id: randomUUID(), props: $props, valid_from: $valid_from, valid_to: $valid_to, transaction_start_time: $now, transaction_end_time: null}]->(b)
RETURN r.system_id AS id`, sanitizeRelType(edge.Kind), sanitizeRelType(edge.Kind))

	params := map[string]any{
		"tenant":     string(tenant),
		"from":       edge.FromNode,
		"to":         edge.ToNode,
		"props":      edge.Props,
		"valid_from": edge.ValidFrom.Format(time.RFC3339Nano),
		"now":        now.Format(time.RFC3339Nano),
	}
	if edge.ValidTo != nil {
		params["valid_to"] = edge.ValidTo.Format(time.RFC3339Nano)
	} else {
		params["valid_to"] = nil
	}

	result, err := neo4j.ExecuteQuery(ctx, s.driver, cypher, params,
		neo4j.EagerResultTransformer, neo4j.ExecuteQueryWithDatabase(s.databaseFor(ctx, tenant)))
	if err != nil {
		return "", gerrors.Backend(err, "upsert edge failed")
	}
	if len(result.Records) == 0 {
		return "", gerrors.NotFound("from/to node not found for edge upsert")
	}
	id, _ := result.Records[0].Get("id")
	return fmt.Sprintf("%v", id), nil
}

func (s *Store) DeleteEdge(ctx context.Context, tenant types.TenantID, systemID string) (bool, error) {
	now := temporal.Now()
	cypher := `
MATCH ()-[r {tenant: $tenant, system_id: $id, transaction_end_time: null}]->()
SET r.transaction_end_time = $now
RETURN count(r) AS closed`
	result, err := neo4j.ExecuteQuery(ctx, s.driver, cypher,
		map[string]any{"tenant": string(tenant), "id": systemID, "now": now.Format(time.RFC3339Nano)},
		neo4j.EagerResultTransformer, neo4j.ExecuteQueryWithDatabase(s.databaseFor(ctx, tenant)))
	if err != nil {
		return false, gerrors.Backend(err, "delete edge failed")
	}
	if len(result.Records) == 0 {
		return false, nil
	}
	count, _ := result.Records[0].Get("closed")
	return fmt.Sprintf("%v", count) != "0", nil
}

// Query only supports the Raw variant here: the adapter
// must refuse raw queries that don't demonstrably carry a tenant-scoping
// predicate it can verify. Non-raw variants would need a Cypher compiler
// over the GraphQuery algebra, which graph.MemoryStore already provides as
// the reference implementation; this adapter exists to exercise the driver
// dependency and the Raw tenant-injection contract, not to duplicate that
// compiler.
func (s *Store) Query(ctx context.Context, tenant types.TenantID, query types.GraphQuery) ([]types.Path, error) {
	if query.Kind != types.QueryRaw {
		return nil, gerrors.Validation("neo4jstore only supports Raw queries; use graph.MemoryStore for the structured query algebra")
	}
	if !strings.Contains(query.RawText, "$tenant") {
		return nil, gerrors.Validation("raw query must bind a $tenant parameter for the adapter to verify tenant scoping")
	}
	params := make(map[string]any, len(query.RawParams)+1)
	for k, v := range query.RawParams {
		params[k] = v
	}
	params["tenant"] = string(tenant)

	result, err := neo4j.ExecuteQuery(ctx, s.driver, query.RawText, params,
		neo4j.EagerResultTransformer, neo4j.ExecuteQueryWithDatabase(s.databaseFor(ctx, tenant)))
	if err != nil {
		return nil, gerrors.Backend(err, "raw query failed")
	}
	// Result shape is backend-dialect specific; the contract only requires
	// that tenant scoping was enforced, not that every raw result maps onto
	// Path. Callers using Raw already know their own result shape.
	_ = result
	return nil, nil
}

func sanitizeRelType(kind string) string {
	return strings.ToUpper(strings.Map(func(r rune) rune {
		if (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			return r
		}
		return '_'
	}, kind))
}
