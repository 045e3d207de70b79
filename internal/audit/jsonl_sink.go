package audit

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	gerrors "github.com/coderisk/gkg/internal/errors"
	"github.com/coderisk/gkg/internal/pipeline"
)

// JSONLSink appends one JSON object per line to a log file, grounded on
// the override-tracking hook log this codebase wrote before: create the
// parent directory if needed, open in append mode, encode and write.
type JSONLSink struct {
	mu   sync.Mutex
	path string
}

// NewJSONLSink returns a JSONL sink for path without touching the
// filesystem. Each Record call creates the parent directories if needed and
// opens the file in append mode for that one write.
func NewJSONLSink(path string) *JSONLSink {
	return &JSONLSink{path: path}
}

type jsonlRecord struct {
	Method    string `json:"method"`
	Path      string `json:"path"`
	TenantID  string `json:"tenant_id"`
	RequestID string `json:"request_id"`
	ElapsedMs int64  `json:"elapsed_ms"`
	LoggedAt  string `json:"logged_at"`
}

func (s *JSONLSink) Record(ctx context.Context, event pipeline.AuditEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return gerrors.Backend(err, "failed to create audit log directory")
	}

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return gerrors.Backend(err, "failed to open audit log %q", s.path)
	}
	defer f.Close()

	record := jsonlRecord{
		Method:    event.Method,
		Path:      event.Path,
		TenantID:  string(event.TenantID),
		RequestID: event.RequestID,
		ElapsedMs: event.Elapsed.Milliseconds(),
		LoggedAt:  event.LoggedAt.Format("2006-01-02T15:04:05.000Z07:00"),
	}

	encoder := json.NewEncoder(f)
	if err := encoder.Encode(record); err != nil {
		return gerrors.Backend(err, "failed to write audit record")
	}
	return nil
}
