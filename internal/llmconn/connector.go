// Package llmconn is the LLM connector contract: provider-specific prompt
// assembly, response parsing into an ExtractionEnvelope, retry/backoff, and
// rate limiting. Connectors never touch the graph store — merging stays
// the job of internal/llmmerge, which keeps retries safe against
// double-writes. The retry-with-backoff loop and proactive throttling idea
// carry over from this codebase's existing provider clients, reworked onto
// golang.org/x/time/rate instead of a Redis-backed counter, since the
// connector contract has no shared-process requirement to justify Redis.
package llmconn

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	gerrors "github.com/coderisk/gkg/internal/errors"
	"github.com/coderisk/gkg/internal/types"
)

// Kind is the connector-level error taxonomy.
type Kind string

const (
	KindConfigError          Kind = "ConfigError"
	KindNetworkError         Kind = "NetworkError"
	KindAPIError             Kind = "ApiError"
	KindTimeout              Kind = "Timeout"
	KindResponseParseError   Kind = "ResponseParseError"
	KindSchemaValidationError Kind = "SchemaValidationError"
	KindBudgetExceeded       Kind = "BudgetExceeded"
	KindInternalError        Kind = "InternalError"
)

// Error is the error type every Connector returns.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Kind.String() + ": " + e.Message + ": " + e.Cause.Error()
	}
	return e.Kind.String() + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

func (k Kind) String() string { return string(k) }

// Retriable reports which kinds the connector retries itself (up to its
// retry cap) and ToGraphError maps to LlmTransient: network, timeout, and
// API errors. Error carries no HTTP status, so every ApiError counts as
// retriable, 4xx responses included. Everything else is not retriable.
func (k Kind) Retriable() bool {
	return k == KindNetworkError || k == KindTimeout || k == KindAPIError
}

func newError(kind Kind, cause error, message string) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// ToGraphError maps a connector error onto the core's LlmTransient/
// LlmPermanent kinds, per the propagation policy: the merge engine does
// not retry, so a transient connector error still surfaces as a terminal
// failure to its caller even though the connector already exhausted its
// own retry budget.
func ToGraphError(err error) error {
	if err == nil {
		return nil
	}
	connErr, ok := err.(*Error)
	if !ok {
		return gerrors.LlmTransient(err, "llm connector failed")
	}
	if connErr.Kind.Retriable() {
		return gerrors.LlmTransient(connErr, connErr.Message)
	}
	return gerrors.LlmPermanent(connErr, connErr.Message)
}

// Connector is the contract every provider adapter implements.
type Connector interface {
	// Extract builds a prompt embedding the envelope wire schema, sends it,
	// parses the response into an ExtractionEnvelope, and fills in
	// Metadata (provider, model, latency, tokens).
	Extract(ctx context.Context, tenant types.TenantID, promptContext string) (types.ExtractionEnvelope, error)
}

// envelopeSchemaInstructions is embedded verbatim into every provider
// prompt, so a schema change here propagates to every connector.
const envelopeSchemaInstructions = `Respond with ONLY a JSON object matching this schema, no prose, no markdown code fences:
{
  "nodes": [
    {"id_alias": "<tenant-unique string>", "label": "<category>", "props": {...}, "confidence": <0.0-1.0, optional>}
  ],
  "relations": [
    {"from_id_alias": "<node.id_alias>", "to_id_alias": "<node.id_alias>", "type_label": "<relation kind>", "props": {...}, "valid_from": "<RFC3339, optional>", "valid_to": "<RFC3339 or null, optional>", "confidence": <0.0-1.0, optional>}
  ]
}`

// BuildPrompt assembles the system/user prompt pair every connector sends.
func BuildPrompt(promptContext string) (systemPrompt, userPrompt string) {
	systemPrompt = "You are an information extraction engine. Extract entities and relationships from the user's content into a strict JSON envelope. " + envelopeSchemaInstructions
	userPrompt = promptContext
	return systemPrompt, userPrompt
}

// stripCodeFences removes a leading/trailing markdown code fence
// (```json ... ``` or ``` ... ```) some providers wrap JSON responses in
// despite being told not to.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if idx := strings.Index(s, "\n"); idx >= 0 && !strings.HasPrefix(strings.TrimSpace(s[:idx]), "{") {
		s = s[idx+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// ParseEnvelope parses a provider's raw text response into an
// ExtractionEnvelope, stripping markdown fences first. Any malformed JSON
// is a ResponseParseError; a structurally-valid-JSON-but-wrong-shape
// response is a SchemaValidationError.
func ParseEnvelope(raw string) (types.ExtractionEnvelope, error) {
	cleaned := stripCodeFences(raw)

	var wire wireEnvelope
	if err := json.Unmarshal([]byte(cleaned), &wire); err != nil {
		return types.ExtractionEnvelope{}, newError(KindResponseParseError, err, "response is not valid JSON")
	}

	for i, n := range wire.Nodes {
		if n.IDAlias == "" || n.Label == "" {
			return types.ExtractionEnvelope{}, newError(KindSchemaValidationError, nil, "node at index "+strconv.Itoa(i)+" is missing id_alias or label")
		}
	}
	for i, r := range wire.Relations {
		if r.FromIDAlias == "" || r.ToIDAlias == "" || r.TypeLabel == "" {
			return types.ExtractionEnvelope{}, newError(KindSchemaValidationError, nil, "relation at index "+strconv.Itoa(i)+" is missing a required field")
		}
	}

	env := types.ExtractionEnvelope{
		Nodes:     make([]types.EnvelopeNode, len(wire.Nodes)),
		Relations: make([]types.EnvelopeRelation, len(wire.Relations)),
	}
	for i, n := range wire.Nodes {
		env.Nodes[i] = types.EnvelopeNode{IDAlias: n.IDAlias, Label: n.Label, Props: n.Props, Confidence: n.Confidence}
	}
	for i, r := range wire.Relations {
		env.Relations[i] = types.EnvelopeRelation{
			FromIDAlias: r.FromIDAlias, ToIDAlias: r.ToIDAlias, TypeLabel: r.TypeLabel,
			Props: r.Props, ValidFrom: r.ValidFrom, ValidTo: r.ValidTo, Confidence: r.Confidence,
		}
	}
	return env, nil
}

type wireEnvelope struct {
	Nodes     []wireNode     `json:"nodes"`
	Relations []wireRelation `json:"relations"`
}

type wireNode struct {
	IDAlias    string                 `json:"id_alias"`
	Label      string                 `json:"label"`
	Props      map[string]interface{} `json:"props"`
	Confidence *float64               `json:"confidence,omitempty"`
}

type wireRelation struct {
	FromIDAlias string                 `json:"from_id_alias"`
	ToIDAlias   string                 `json:"to_id_alias"`
	TypeLabel   string                 `json:"type_label"`
	Props       map[string]interface{} `json:"props"`
	ValidFrom   *string                `json:"valid_from,omitempty"`
	ValidTo     *string                `json:"valid_to,omitempty"`
	Confidence  *float64               `json:"confidence,omitempty"`
}

// DefaultDeadline is the per-call LLM timeout every connector enforces when
// the caller's context carries no earlier deadline.
const DefaultDeadline = 30 * time.Second

// WithDefaultDeadline returns a context bounded by DefaultDeadline unless
// ctx already carries an earlier deadline.
func WithDefaultDeadline(ctx context.Context) (context.Context, context.CancelFunc) {
	if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) < DefaultDeadline {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, DefaultDeadline)
}
