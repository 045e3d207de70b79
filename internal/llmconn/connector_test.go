package llmconn

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	gerrors "github.com/coderisk/gkg/internal/errors"
)

func TestParseEnvelopeStripsCodeFences(t *testing.T) {
	raw := "```json\n{\"nodes\":[{\"id_alias\":\"a\",\"label\":\"Person\"}],\"relations\":[]}\n```"
	env, err := ParseEnvelope(raw)
	require.NoError(t, err)
	require.Len(t, env.Nodes, 1)
	require.Equal(t, "a", env.Nodes[0].IDAlias)
}

func TestParseEnvelopeRejectsMalformedJSON(t *testing.T) {
	_, err := ParseEnvelope("not json")
	require.Error(t, err)
	connErr, ok := err.(*Error)
	require.True(t, ok)
	require.Equal(t, KindResponseParseError, connErr.Kind)
}

func TestParseEnvelopeRejectsMissingFields(t *testing.T) {
	_, err := ParseEnvelope(`{"nodes":[{"label":"Person"}],"relations":[]}`)
	require.Error(t, err)
	connErr, ok := err.(*Error)
	require.True(t, ok)
	require.Equal(t, KindSchemaValidationError, connErr.Kind)
}

func TestParseEnvelopeWithRelations(t *testing.T) {
	raw := `{"nodes":[{"id_alias":"a","label":"Person"},{"id_alias":"b","label":"Org"}],"relations":[{"from_id_alias":"a","to_id_alias":"b","type_label":"WORKS_AT"}]}`
	env, err := ParseEnvelope(raw)
	require.NoError(t, err)
	require.Len(t, env.Relations, 1)
	require.Equal(t, "WORKS_AT", env.Relations[0].TypeLabel)
}

func TestToGraphErrorMapsRetriableKinds(t *testing.T) {
	err := ToGraphError(newError(KindNetworkError, nil, "boom"))
	require.Error(t, err)
	require.Equal(t, gerrors.KindLlmTransient, gerrors.KindOf(err))

	err = ToGraphError(newError(KindSchemaValidationError, nil, "boom"))
	require.Error(t, err)
	require.Equal(t, gerrors.KindLlmPermanent, gerrors.KindOf(err))
}

func TestWithRetrySucceedsAfterTransientFailures(t *testing.T) {
	attempts := 0
	cfg := RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond}
	result, err := withRetry(context.Background(), cfg, func(ctx context.Context) (string, error) {
		attempts++
		if attempts < 3 {
			return "", newError(KindNetworkError, nil, "transient")
		}
		return "ok", nil
	})
	require.NoError(t, err)
	require.Equal(t, "ok", result)
	require.Equal(t, 3, attempts)
}

func TestWithRetryStopsOnNonRetriableError(t *testing.T) {
	attempts := 0
	cfg := RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond}
	_, err := withRetry(context.Background(), cfg, func(ctx context.Context) (string, error) {
		attempts++
		return "", newError(KindSchemaValidationError, nil, "permanent")
	})
	require.Error(t, err)
	require.Equal(t, 1, attempts)
}

func TestRateLimiterWaitRespectsCancellation(t *testing.T) {
	limiter := NewRateLimiter(1)
	require.NoError(t, limiter.Wait(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := limiter.Wait(ctx)
	require.True(t, errors.Is(err, context.Canceled))
}
