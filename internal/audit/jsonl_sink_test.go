package audit

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/coderisk/gkg/internal/pipeline"
)

func TestJSONLSinkAppendsOneLinePerEvent(t *testing.T) {
	dir := t.TempDir()
	sink := NewJSONLSink(filepath.Join(dir, "nested", "audit.jsonl"))
	ctx := context.Background()

	event := pipeline.AuditEvent{
		Method: "POST", Path: "/graph/nodes", TenantID: "t1",
		RequestID: "req-1", Elapsed: 12 * time.Millisecond, LoggedAt: time.Now().UTC(),
	}
	require.NoError(t, sink.Record(ctx, event))
	require.NoError(t, sink.Record(ctx, event))

	f, err := os.Open(filepath.Join(dir, "nested", "audit.jsonl"))
	require.NoError(t, err)
	defer f.Close()

	scanner := bufio.NewScanner(f)
	lines := 0
	for scanner.Scan() {
		var record jsonlRecord
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &record))
		require.Equal(t, "req-1", record.RequestID)
		lines++
	}
	require.Equal(t, 2, lines)
}
