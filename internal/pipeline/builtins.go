package pipeline

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	gerrors "github.com/coderisk/gkg/internal/errors"
	"github.com/coderisk/gkg/internal/types"
)

// RequestLogging records method, path, request_id at debug level
//. Registered under PreOperation.
type RequestLogging struct {
	logger *logrus.Logger
}

func NewRequestLogging(logger *logrus.Logger) *RequestLogging {
	return &RequestLogging{logger: logger}
}

func (p *RequestLogging) Name() string { return "request_logging" }

func (p *RequestLogging) Init(config map[string]interface{}) error { return nil }

func (p *RequestLogging) Call(ctx context.Context, rc *types.RequestContext) Result {
	p.logger.WithFields(logrus.Fields{
		"method":     rc.Method,
		"path":       rc.Path,
		"request_id": rc.RequestID,
	}).Debug("request received")
	return ContinueResult()
}

func (p *RequestLogging) Teardown() error { return nil }

// TenantValidation requires context.tenant_id for tenant-scoped routes
//. Registered under PreOperation.
type TenantValidation struct {
	// routeSegments identifies path segments that mark a route as
	// tenant-scoped, e.g. "graph", "extraction".
	routeSegments []string
}

func NewTenantValidation(routeSegments ...string) *TenantValidation {
	if len(routeSegments) == 0 {
		routeSegments = []string{"graph", "extraction"}
	}
	return &TenantValidation{routeSegments: routeSegments}
}

func (p *TenantValidation) Name() string { return "tenant_validation" }

func (p *TenantValidation) Init(config map[string]interface{}) error { return nil }

func (p *TenantValidation) Call(ctx context.Context, rc *types.RequestContext) Result {
	if !p.isTenantScoped(rc.Path) {
		return ContinueResult()
	}
	if rc.TenantID == "" {
		return HaltWithErrorResult(gerrors.Validation("Tenant ID required"))
	}
	return ContinueResult()
}

func (p *TenantValidation) isTenantScoped(path string) bool {
	for _, part := range strings.Split(path, "/") {
		for _, seg := range p.routeSegments {
			if part == seg {
				return true
			}
		}
	}
	return false
}

func (p *TenantValidation) Teardown() error { return nil }

// AuditSink receives audit events from the AuditTrail plugin. It is
// implemented by internal/audit.JSONLSink and internal/audit.SQLSink.
type AuditSink interface {
	Record(ctx context.Context, event AuditEvent) error
}

// AuditEvent is one audit-trail record.
type AuditEvent struct {
	Method    string
	Path      string
	TenantID  types.TenantID
	RequestID string
	Elapsed   time.Duration
	LoggedAt  time.Time
}

// AuditTrail records method/path/tenant/request_id/elapsed at info level
// and attaches audit_timestamp/audit_logged to the context attribute bag
//. Registered under PostOperation.
type AuditTrail struct {
	logger *logrus.Logger
	sink   AuditSink
}

func NewAuditTrail(logger *logrus.Logger, sink AuditSink) *AuditTrail {
	return &AuditTrail{logger: logger, sink: sink}
}

func (p *AuditTrail) Name() string { return "audit_trail" }

func (p *AuditTrail) Init(config map[string]interface{}) error { return nil }

func (p *AuditTrail) Call(ctx context.Context, rc *types.RequestContext) Result {
	now := time.Now().UTC()
	elapsed := now.Sub(rc.StartedAt)

	p.logger.WithFields(logrus.Fields{
		"method":     rc.Method,
		"path":       rc.Path,
		"tenant_id":  rc.TenantID,
		"request_id": rc.RequestID,
		"elapsed_ms": elapsed.Milliseconds(),
	}).Info("request completed")

	if p.sink != nil {
		event := AuditEvent{
			Method: rc.Method, Path: rc.Path, TenantID: rc.TenantID,
			RequestID: rc.RequestID, Elapsed: elapsed, LoggedAt: now,
		}
		if err := p.sink.Record(ctx, event); err != nil {
			// Audit sink failures never fail the request: they're
			// diagnostics, not a correctness requirement.
			p.logger.WithError(err).Warn("failed to persist audit event")
		}
	}

	rc.Attrs["audit_timestamp"] = now
	rc.Attrs["audit_logged"] = true
	return ContinueResult()
}

func (p *AuditTrail) Teardown() error { return nil }
