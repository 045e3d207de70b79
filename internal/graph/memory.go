package graph

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	gerrors "github.com/coderisk/gkg/internal/errors"
	"github.com/coderisk/gkg/internal/temporal"
	"github.com/coderisk/gkg/internal/types"
)

// MemoryStore is the in-memory reference implementation of Store.
// Per-tenant state lives behind its own reader-writer lock; cross-tenant
// operations never share a lock, so tenant isolation holds even under
// concurrent access.
type MemoryStore struct {
	mu      sync.RWMutex
	tenants map[types.TenantID]*tenantState
	clock   Clock
}

// NewMemoryStore creates an empty in-memory store using the real clock.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tenants: make(map[types.TenantID]*tenantState),
		clock:   temporal.Now,
	}
}

// NewMemoryStoreWithClock creates a store with a substitutable clock, for
// deterministic bitemporal tests.
func NewMemoryStoreWithClock(clock Clock) *MemoryStore {
	return &MemoryStore{
		tenants: make(map[types.TenantID]*tenantState),
		clock:   clock,
	}
}

type tenantState struct {
	mu sync.RWMutex

	nodes     map[string]*types.Node
	aliasToID map[string]string

	edges      map[string]*types.TimeEdge            // systemID -> edge version
	byIdentity map[types.EdgeIdentity][]string        // identity -> systemIDs, oldest first
	incident   map[string]map[string]struct{}         // nodeID -> set of edge systemIDs touching it
	seq        uint64
}

func newTenantState() *tenantState {
	return &tenantState{
		nodes:      make(map[string]*types.Node),
		aliasToID:  make(map[string]string),
		edges:      make(map[string]*types.TimeEdge),
		byIdentity: make(map[types.EdgeIdentity][]string),
		incident:   make(map[string]map[string]struct{}),
	}
}

func (s *MemoryStore) tenant(tenant types.TenantID) *tenantState {
	s.mu.RLock()
	t, ok := s.tenants[tenant]
	s.mu.RUnlock()
	if ok {
		return t
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok = s.tenants[tenant]; ok {
		return t
	}
	t = newTenantState()
	s.tenants[tenant] = t
	return t
}

func copyProps(p map[string]interface{}) map[string]interface{} {
	if p == nil {
		return nil
	}
	out := make(map[string]interface{}, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

func copyNode(n *types.Node) types.Node {
	return types.Node{SystemID: n.SystemID, IDAlias: n.IDAlias, Label: n.Label, Props: copyProps(n.Props)}
}

func copyEdge(e *types.TimeEdge) types.TimeEdge {
	out := *e
	out.Props = copyProps(e.Props)
	return out
}

// UpsertNode creates a node or merges into an existing one identified by
// IDAlias: merge overwrites matching keys, then leaves the rest untouched.
func (s *MemoryStore) UpsertNode(ctx context.Context, tenant types.TenantID, node types.Node) (string, error) {
	t := s.tenant(tenant)
	t.mu.Lock()
	defer t.mu.Unlock()

	if node.Label == "" {
		return "", gerrors.Validation("node label must not be empty")
	}

	if node.IDAlias != "" {
		if existingID, ok := t.aliasToID[node.IDAlias]; ok {
			existing := t.nodes[existingID]
			if existing.Label != node.Label {
				return "", gerrors.Validation("alias %q already bound to label %q, got %q", node.IDAlias, existing.Label, node.Label).
					WithContext("id_alias", node.IDAlias)
			}
			merged := copyProps(existing.Props)
			if merged == nil {
				merged = make(map[string]interface{})
			}
			for k, v := range node.Props {
				merged[k] = v
			}
			existing.Props = merged
			return existing.SystemID, nil
		}
	}

	systemID := uuid.NewString()
	t.nodes[systemID] = &types.Node{
		SystemID: systemID,
		IDAlias:  node.IDAlias,
		Label:    node.Label,
		Props:    copyProps(node.Props),
	}
	if node.IDAlias != "" {
		t.aliasToID[node.IDAlias] = systemID
	}
	return systemID, nil
}

func (s *MemoryStore) GetNode(ctx context.Context, tenant types.TenantID, systemID string) (*types.Node, error) {
	t := s.tenant(tenant)
	t.mu.RLock()
	defer t.mu.RUnlock()

	n, ok := t.nodes[systemID]
	if !ok {
		return nil, nil
	}
	out := copyNode(n)
	return &out, nil
}

func (s *MemoryStore) GetNodeByAlias(ctx context.Context, tenant types.TenantID, idAlias string) (*types.Node, error) {
	t := s.tenant(tenant)
	t.mu.RLock()
	defer t.mu.RUnlock()

	systemID, ok := t.aliasToID[idAlias]
	if !ok {
		return nil, nil
	}
	out := copyNode(t.nodes[systemID])
	return &out, nil
}

// DeleteNode physically removes the node and closes incident current-version
// edges' valid-time and transaction-time at "now" with no successor version.
func (s *MemoryStore) DeleteNode(ctx context.Context, tenant types.TenantID, systemID string) (bool, error) {
	t := s.tenant(tenant)
	t.mu.Lock()
	defer t.mu.Unlock()

	node, ok := t.nodes[systemID]
	if !ok {
		return false, nil
	}

	now := s.clock()
	for edgeID := range t.incident[systemID] {
		edge := t.edges[edgeID]
		if edge == nil || !edge.IsCurrent() {
			continue
		}
		if edge.IsOpen() {
			closedAt := now
			edge.ValidTo = &closedAt
		}
		closedTx := now
		edge.TransactionEndTime = &closedTx
	}

	delete(t.nodes, systemID)
	if node.IDAlias != "" {
		delete(t.aliasToID, node.IDAlias)
	}
	delete(t.incident, systemID)
	return true, nil
}

func (t *tenantState) markIncident(from, to, edgeID string) {
	if t.incident[from] == nil {
		t.incident[from] = make(map[string]struct{})
	}
	t.incident[from][edgeID] = struct{}{}
	if t.incident[to] == nil {
		t.incident[to] = make(map[string]struct{})
	}
	t.incident[to][edgeID] = struct{}{}
}

// UpsertEdge implements the append-with-predecessor-close versioning
// protocol: a new version is written as current and any prior current
// version for the same (from, to, kind, valid_from) identity is closed.
func (s *MemoryStore) UpsertEdge(ctx context.Context, tenant types.TenantID, edge types.TimeEdge) (string, error) {
	t := s.tenant(tenant)
	t.mu.Lock()
	defer t.mu.Unlock()

	if edge.Kind == "" {
		return "", gerrors.Validation("edge kind must not be empty")
	}
	if edge.ValidTo != nil && edge.ValidTo.Before(edge.ValidFrom) {
		return "", gerrors.Validation("valid_to %s is before valid_from %s", edge.ValidTo, edge.ValidFrom)
	}
	if _, ok := t.nodes[edge.FromNode]; !ok {
		return "", gerrors.NotFound("from node %q does not exist", edge.FromNode)
	}
	if _, ok := t.nodes[edge.ToNode]; !ok {
		return "", gerrors.NotFound("to node %q does not exist", edge.ToNode)
	}

	identity := edge.Identity()
	now := s.clock()

	for _, existingID := range t.byIdentity[identity] {
		existing := t.edges[existingID]
		if existing.IsCurrent() {
			closedTx := now
			existing.TransactionEndTime = &closedTx
			break
		}
	}

	systemID := uuid.NewString()
	t.seq++
	newEdge := &types.TimeEdge{
		SystemID:             systemID,
		FromNode:             edge.FromNode,
		ToNode:               edge.ToNode,
		Kind:                 edge.Kind,
		Props:                copyProps(edge.Props),
		ValidFrom:            edge.ValidFrom,
		ValidTo:              edge.ValidTo,
		TransactionStartTime: now,
		Seq:                  t.seq,
	}
	t.edges[systemID] = newEdge
	t.byIdentity[identity] = append(t.byIdentity[identity], systemID)
	t.markIncident(edge.FromNode, edge.ToNode, systemID)

	return systemID, nil
}

func (s *MemoryStore) DeleteEdge(ctx context.Context, tenant types.TenantID, systemID string) (bool, error) {
	t := s.tenant(tenant)
	t.mu.Lock()
	defer t.mu.Unlock()

	edge, ok := t.edges[systemID]
	if !ok || !edge.IsCurrent() {
		return false, nil
	}
	closedTx := s.clock()
	edge.TransactionEndTime = &closedTx
	return true, nil
}

func (s *MemoryStore) HealthCheck(ctx context.Context) error {
	return nil
}

// Query dispatches the tagged GraphQuery variant.
func (s *MemoryStore) Query(ctx context.Context, tenant types.TenantID, query types.GraphQuery) ([]types.Path, error) {
	t := s.tenant(tenant)
	t.mu.RLock()
	defer t.mu.RUnlock()

	return s.evalQuery(t, query, nil, nil)
}

func (s *MemoryStore) evalQuery(t *tenantState, q types.GraphQuery, validOverride, txOverride *time.Time) ([]types.Path, error) {
	switch q.Kind {
	case types.QueryRaw:
		return nil, rawNotSupported()
	case types.QueryFindNodes:
		return s.findNodes(t, q), nil
	case types.QueryFindRelationships:
		validAt := q.ValidAt
		if validOverride != nil {
			validAt = validOverride
		}
		return s.findRelationships(t, q.From, q.To, q.Kinds, validAt, txOverride, q.Limit), nil
	case types.QueryAsOf:
		if q.Inner == nil {
			return nil, gerrors.Validation("AsOf requires an inner query")
		}
		return s.evalQuery(t, *q.Inner, q.ValidTime, txOverride)
	case types.QueryAsAt:
		if q.Inner == nil {
			return nil, gerrors.Validation("AsAt requires an inner query")
		}
		return s.evalQuery(t, *q.Inner, validOverride, q.TransactionTime)
	case types.QueryBitemporal:
		if q.Inner == nil {
			return nil, gerrors.Validation("Bitemporal requires an inner query")
		}
		return s.evalQuery(t, *q.Inner, q.ValidTime, q.TransactionTime)
	default:
		return nil, gerrors.Internal("unknown query kind %d", q.Kind)
	}
}

func rawNotSupported() error {
	return gerrors.Validation("raw queries are not supported by the in-memory store: it has no query text to verify or inject a tenant-scoping predicate into")
}

func (s *MemoryStore) findNodes(t *tenantState, q types.GraphQuery) []types.Path {
	labelSet := make(map[string]struct{}, len(q.Labels))
	for _, l := range q.Labels {
		labelSet[l] = struct{}{}
	}

	var out []types.Path
	for _, n := range t.nodes {
		if len(labelSet) > 0 {
			if _, ok := labelSet[n.Label]; !ok {
				continue
			}
		}
		if !matchesPredicates(n.Props, q.PropertyPredicates) {
			continue
		}
		out = append(out, types.Path{Nodes: []types.Node{copyNode(n)}})
		if q.Limit > 0 && len(out) >= q.Limit {
			break
		}
	}
	return out
}

func matchesPredicates(props, predicates map[string]interface{}) bool {
	for k, want := range predicates {
		got, ok := props[k]
		if !ok || fmt.Sprintf("%v", got) != fmt.Sprintf("%v", want) {
			return false
		}
	}
	return true
}

func (s *MemoryStore) findRelationships(t *tenantState, from, to string, kinds []string, validAt, txAt *time.Time, limit int) []types.Path {
	kindSet := make(map[string]struct{}, len(kinds))
	for _, k := range kinds {
		kindSet[k] = struct{}{}
	}

	var out []types.Path
	for _, edge := range t.edges {
		if from != "" && edge.FromNode != from {
			continue
		}
		if to != "" && edge.ToNode != to {
			continue
		}
		if len(kindSet) > 0 {
			if _, ok := kindSet[edge.Kind]; !ok {
				continue
			}
		}

		if txAt != nil {
			if edge.TransactionStartTime.After(*txAt) {
				continue
			}
			if edge.TransactionEndTime != nil && !edge.TransactionEndTime.After(*txAt) {
				continue
			}
		} else if !edge.IsCurrent() {
			continue
		}

		if validAt != nil {
			iv := temporal.Interval{Start: edge.ValidFrom, End: edge.ValidTo}
			if !iv.Contains(*validAt) {
				continue
			}
		}

		path := types.Path{
			Steps: []types.PathStep{{Edge: copyEdge(edge), MatchedAt: validAt}},
		}
		if fromNode, ok := t.nodes[edge.FromNode]; ok {
			path.Nodes = append(path.Nodes, copyNode(fromNode))
		}
		if toNode, ok := t.nodes[edge.ToNode]; ok {
			path.Nodes = append(path.Nodes, copyNode(toNode))
		}
		out = append(out, path)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}
