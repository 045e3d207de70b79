// Package types defines the bitemporal graph's data model: nodes, time
// edges, tenant identifiers, the query algebra, path results, and the
// extraction envelope the LLM merge engine consumes.
package types

import "time"

// TenantID is an opaque isolation boundary. All data operations are
// parameterized by one; there is no cross-tenant read or write path.
type TenantID string

// Node is a graph vertex. SystemID is assigned by the store on creation;
// IDAlias, when present, is a tenant-unique caller-chosen identifier used
// to make upsert idempotent.
type Node struct {
	SystemID string                 `json:"system_id"`
	IDAlias  string                 `json:"id_alias,omitempty"`
	Label    string                 `json:"label"`
	Props    map[string]interface{} `json:"props,omitempty"`
}

// TimeEdge is the central bitemporal object: a relationship version with
// both a valid-time interval (when the fact held in the world) and a
// transaction-time interval (when the system recorded this version as
// current).
type TimeEdge struct {
	SystemID string                 `json:"system_id"`
	FromNode string                 `json:"from_node"`
	ToNode   string                 `json:"to_node"`
	Kind     string                 `json:"kind"`
	Props    map[string]interface{} `json:"props,omitempty"`

	ValidFrom time.Time  `json:"valid_from"`
	ValidTo   *time.Time `json:"valid_to,omitempty"` // nil = open (still true)

	TransactionStartTime time.Time  `json:"transaction_start_time"`
	TransactionEndTime   *time.Time `json:"transaction_end_time,omitempty"` // nil = current version

	// Seq breaks ties between versions written in the same instant: a
	// monotonic per-tenant sequence counter.
	Seq uint64 `json:"seq"`
}

// IsCurrent reports whether this is the current version (transaction_end_time unset).
func (e *TimeEdge) IsCurrent() bool {
	return e.TransactionEndTime == nil
}

// IsOpen reports whether the edge is still valid (valid_to unset).
func (e *TimeEdge) IsOpen() bool {
	return e.ValidTo == nil
}

// Identity is the dedup key for upsert: (from, to, kind, valid_from).
type EdgeIdentity struct {
	FromNode  string
	ToNode    string
	Kind      string
	ValidFrom time.Time
}

func (e *TimeEdge) Identity() EdgeIdentity {
	return EdgeIdentity{FromNode: e.FromNode, ToNode: e.ToNode, Kind: e.Kind, ValidFrom: e.ValidFrom}
}

// GraphQuery is the tagged-variant query algebra. Exactly one of the
// Find*/AsOf/AsAt/Bitemporal/Raw fields is populated; Kind selects which.
type QueryKind int

const (
	QueryRaw QueryKind = iota
	QueryFindNodes
	QueryFindRelationships
	QueryAsOf
	QueryAsAt
	QueryBitemporal
)

type GraphQuery struct {
	Kind QueryKind

	// Raw
	RawText   string
	RawParams map[string]interface{}

	// FindNodes
	Labels             []string
	PropertyPredicates map[string]interface{}
	Limit              int

	// FindRelationships
	From    string // optional, "" = unset
	To      string // optional, "" = unset
	Kinds   []string
	ValidAt *time.Time // optional

	// AsOf / AsAt / Bitemporal
	Inner           *GraphQuery
	ValidTime       *time.Time
	TransactionTime *time.Time
}

// FindNodes builds a FindNodes query.
func FindNodes(labels []string, predicates map[string]interface{}, limit int) GraphQuery {
	return GraphQuery{Kind: QueryFindNodes, Labels: labels, PropertyPredicates: predicates, Limit: limit}
}

// FindRelationships builds a FindRelationships query.
func FindRelationships(from, to string, kinds []string, validAt *time.Time, limit int) GraphQuery {
	return GraphQuery{Kind: QueryFindRelationships, From: from, To: to, Kinds: kinds, ValidAt: validAt, Limit: limit}
}

// AsOf rewrites inner so every temporal predicate uses validTime.
func AsOf(inner GraphQuery, validTime time.Time) GraphQuery {
	return GraphQuery{Kind: QueryAsOf, Inner: &inner, ValidTime: &validTime}
}

// AsAt restricts inner to edge versions whose transaction interval contains transactionTime.
func AsAt(inner GraphQuery, transactionTime time.Time) GraphQuery {
	return GraphQuery{Kind: QueryAsAt, Inner: &inner, TransactionTime: &transactionTime}
}

// Bitemporal applies both restrictions.
func Bitemporal(inner GraphQuery, validTime, transactionTime time.Time) GraphQuery {
	return GraphQuery{Kind: QueryBitemporal, Inner: &inner, ValidTime: &validTime, TransactionTime: &transactionTime}
}

// Raw is an opaque backend-specific query with parameter bindings.
func Raw(text string, params map[string]interface{}) GraphQuery {
	return GraphQuery{Kind: QueryRaw, RawText: text, RawParams: params}
}

// PathStep is one edge traversal within a Path result row, recording the
// direction it was matched in and the valid interval it was matched over.
type PathStep struct {
	Edge      TimeEdge
	Reversed  bool // true if the edge was traversed To->From
	MatchedAt *time.Time
}

// Path is a query result row: an ordered alternating sequence of nodes and
// edges.
type Path struct {
	Nodes []Node
	Steps []PathStep
}

// RequestContext carries a single request through the pipeline runner, from
// transport entry to response.
type RequestContext struct {
	RequestID string
	TenantID  TenantID
	Method    string
	Path      string
	Headers   map[string]string
	RawBody   []byte

	// OperationInput/Output are the core-operation's input/output slots,
	// set by the transport before/after invoking the operation.
	OperationInput  interface{}
	OperationOutput interface{}

	Response interface{}
	Attrs    map[string]interface{}

	StartedAt time.Time
	Err       error
}

// NewRequestContext creates a context with its attribute bag initialized.
func NewRequestContext(requestID, method, path string) *RequestContext {
	return &RequestContext{
		RequestID: requestID,
		Method:    method,
		Path:      path,
		Headers:   make(map[string]string),
		Attrs:     make(map[string]interface{}),
		StartedAt: time.Now().UTC(),
	}
}

// ExtractionEnvelope is the LLM output contract.
type EnvelopeNode struct {
	IDAlias    string                 `json:"id_alias"`
	Label      string                 `json:"label"`
	Props      map[string]interface{} `json:"props,omitempty"`
	Confidence *float64               `json:"confidence,omitempty"`
}

type EnvelopeRelation struct {
	FromIDAlias string                 `json:"from_id_alias"`
	ToIDAlias   string                 `json:"to_id_alias"`
	TypeLabel   string                 `json:"type_label"`
	Props       map[string]interface{} `json:"props,omitempty"`
	ValidFrom   *string                `json:"valid_from,omitempty"`
	ValidTo     *string                `json:"valid_to,omitempty"`
	Confidence  *float64               `json:"confidence,omitempty"`
}

type EnvelopeMetadata struct {
	Provider      string   `json:"provider"`
	Model         string   `json:"model"`
	LatencyMillis int64    `json:"latency_ms"`
	PromptTokens  int      `json:"prompt_tokens"`
	OutputTokens  int      `json:"output_tokens"`
	EstimatedCost float64  `json:"estimated_cost"`
	Warnings      []string `json:"warnings,omitempty"`
}

type ExtractionEnvelope struct {
	Nodes     []EnvelopeNode     `json:"nodes"`
	Relations []EnvelopeRelation `json:"relations"`
	Metadata  EnvelopeMetadata   `json:"metadata"`
}
