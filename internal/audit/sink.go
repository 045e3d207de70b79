// Package audit implements the AuditTrail built-in plugin's persistence
// layer: a JSONL append-log sink grounded on the append-only event log this
// codebase already used for override tracking, plus a SQL-backed sink for
// deployments that already run a relational store for the tenant registry.
package audit

import (
	"context"

	"github.com/coderisk/gkg/internal/pipeline"
)

// Sink persists audit events. Failures are logged by the AuditTrail plugin
// but never fail the request the event describes.
type Sink interface {
	Record(ctx context.Context, event pipeline.AuditEvent) error
}

var _ pipeline.AuditSink = (Sink)(nil)
