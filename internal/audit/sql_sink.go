package audit

import (
	"context"

	"github.com/google/uuid"

	gerrors "github.com/coderisk/gkg/internal/errors"
	"github.com/coderisk/gkg/internal/pipeline"
	"github.com/coderisk/gkg/internal/storage"
)

// SQLSink persists audit events into the audit_events table internal/storage
// migrates on open, for deployments that want audit history queryable
// alongside the tenant registry rather than tailed from a log file.
type SQLSink struct {
	db *storage.DB
}

func NewSQLSink(db *storage.DB) *SQLSink {
	return &SQLSink{db: db}
}

func (s *SQLSink) Record(ctx context.Context, event pipeline.AuditEvent) error {
	query := `INSERT INTO audit_events (id, tenant_id, method, path, request_id, elapsed_ms, logged_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, s.db.Rebind(query),
		uuid.NewString(), string(event.TenantID), event.Method, event.Path,
		event.RequestID, event.Elapsed.Milliseconds(), event.LoggedAt.UTC())
	if err != nil {
		return gerrors.Backend(err, "failed to persist audit event")
	}
	return nil
}

// Continuation records a PartialCommit/PartialDelete continuation token
// against the audit_events row it describes, so a caller can look up what
// state a partially-applied operation left behind and decide whether to
// replay it.
func (s *SQLSink) Continuation(ctx context.Context, requestID, token string) error {
	query := `UPDATE audit_events SET continuation_token = ? WHERE request_id = ?`
	_, err := s.db.ExecContext(ctx, s.db.Rebind(query), token, requestID)
	if err != nil {
		return gerrors.Backend(err, "failed to record continuation token")
	}
	return nil
}
