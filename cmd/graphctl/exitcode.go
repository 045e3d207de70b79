package main

import (
	"errors"
	"fmt"

	gerrors "github.com/coderisk/gkg/internal/errors"
)

// Exit codes for the CLI surface: 0 success, 2 usage error, 3 not-found,
// 4 validation error, 5 backend error, 1 generic/unclassified.
const (
	exitOK         = 0
	exitGeneric    = 1
	exitUsage      = 2
	exitNotFound   = 3
	exitValidation = 4
	exitBackend    = 5
)

// errUsage marks an argument/flag combination the command itself rejected
// before doing any work, distinct from a core-level validation failure.
type errUsage struct{ msg string }

func (e *errUsage) Error() string { return e.msg }

func usageError(format string, args ...interface{}) error {
	return &errUsage{msg: fmt.Sprintf(format, args...)}
}

// exitCodeFor maps a command's returned error onto the CLI's exit code
// contract.
func exitCodeFor(err error) int {
	if err == nil {
		return exitOK
	}
	var usageErr *errUsage
	if errors.As(err, &usageErr) {
		return exitUsage
	}
	gerr, ok := gerrors.As(err)
	if !ok {
		return exitGeneric
	}
	switch gerr.Kind {
	case gerrors.KindNotFound:
		return exitNotFound
	case gerrors.KindValidation, gerrors.KindTenantIsolationViolation:
		return exitValidation
	case gerrors.KindBackend, gerrors.KindLlmTransient, gerrors.KindLlmPermanent, gerrors.KindPartialCommit:
		return exitBackend
	default:
		return exitGeneric
	}
}
