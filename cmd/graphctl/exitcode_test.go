package main

import (
	"testing"

	"github.com/stretchr/testify/require"

	gerrors "github.com/coderisk/gkg/internal/errors"
)

func TestExitCodeForClassifiesCoreErrorKinds(t *testing.T) {
	require.Equal(t, exitOK, exitCodeFor(nil))
	require.Equal(t, exitUsage, exitCodeFor(usageError("bad flag")))
	require.Equal(t, exitNotFound, exitCodeFor(gerrors.NotFound("tenant %q not found", "acme")))
	require.Equal(t, exitValidation, exitCodeFor(gerrors.Validation("bad timestamp")))
	require.Equal(t, exitValidation, exitCodeFor(gerrors.TenantIsolationViolation("mismatch")))
	require.Equal(t, exitBackend, exitCodeFor(gerrors.Backend(nil, "connection refused")))
	require.Equal(t, exitGeneric, exitCodeFor(gerrors.Internal("contract violation")))
}
