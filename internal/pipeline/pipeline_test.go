package pipeline

import (
	"context"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	gerrors "github.com/coderisk/gkg/internal/errors"
	"github.com/coderisk/gkg/internal/types"
)

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

type recordingSink struct {
	events []AuditEvent
}

func (s *recordingSink) Record(ctx context.Context, event AuditEvent) error {
	s.events = append(s.events, event)
	return nil
}

func TestRunRequestHappyPath(t *testing.T) {
	r := NewRunner()
	sink := &recordingSink{}
	r.Register(PreOperation, NewRequestLogging(testLogger()))
	r.Register(PreOperation, NewTenantValidation("graph"))
	r.Register(PostOperation, NewAuditTrail(testLogger(), sink))
	require.NoError(t, r.Init(nil))

	rc := types.NewRequestContext("req-1", "GET", "/graph/nodes")
	rc.TenantID = "acme"

	called := false
	err := r.RunRequest(context.Background(), rc, func(ctx context.Context, rc *types.RequestContext) error {
		called = true
		return nil
	})
	require.NoError(t, err)
	require.True(t, called)
	require.Len(t, sink.events, 1)
	require.Equal(t, true, rc.Attrs["audit_logged"])
}

// TestTenantValidationHaltsWithError covers the pipeline-halt case:
// TenantValidation sets context.error and HaltWithErrors; the core
// operation never runs, and post-operation plugins never run.
func TestTenantValidationHaltsWithError(t *testing.T) {
	r := NewRunner()
	sink := &recordingSink{}
	r.Register(PreOperation, NewTenantValidation("graph"))
	r.Register(PostOperation, NewAuditTrail(testLogger(), sink))
	require.NoError(t, r.Init(nil))

	rc := types.NewRequestContext("req-2", "GET", "/graph/nodes")
	// TenantID intentionally left unset.

	called := false
	err := r.RunRequest(context.Background(), rc, func(ctx context.Context, rc *types.RequestContext) error {
		called = true
		return nil
	})
	require.Error(t, err)
	require.False(t, called)
	require.Empty(t, sink.events)

	gerr, ok := gerrors.As(err)
	require.True(t, ok)
	require.Equal(t, gerrors.KindValidation, gerr.Kind)
}

func TestRunRequestSkipsPostOperationOnOperationError(t *testing.T) {
	r := NewRunner()
	sink := &recordingSink{}
	r.Register(PostOperation, NewAuditTrail(testLogger(), sink))
	require.NoError(t, r.Init(nil))

	rc := types.NewRequestContext("req-3", "POST", "/graph/nodes")
	opErr := gerrors.Backend(nil, "write failed")
	err := r.RunRequest(context.Background(), rc, func(ctx context.Context, rc *types.RequestContext) error {
		return opErr
	})
	require.Error(t, err)
	require.Empty(t, sink.events)
}

func TestTeardownRunsInReverseOrder(t *testing.T) {
	r := NewRunner()
	var order []string
	r.Register(PreOperation, &orderPlugin{name: "a", order: &order})
	r.Register(PreOperation, &orderPlugin{name: "b", order: &order})
	require.NoError(t, r.Init(nil))
	require.NoError(t, r.Teardown())
	require.Equal(t, []string{"b", "a"}, order)
}

type orderPlugin struct {
	name  string
	order *[]string
}

func (p *orderPlugin) Name() string                               { return p.name }
func (p *orderPlugin) Init(config map[string]interface{}) error   { return nil }
func (p *orderPlugin) Call(ctx context.Context, rc *types.RequestContext) Result {
	return ContinueResult()
}
func (p *orderPlugin) Teardown() error {
	*p.order = append(*p.order, p.name)
	return nil
}
