// Package exitcodes is the exit status contract of the mobile-clean
// commands, for scripts and service managers.
package exitcodes

import (
	"context"
	"errors"

	"mobile-clean/internal/safety"
)

const (
	Success         = 0 // everything requested was done
	InvalidConfig   = 2 // configuration file invalid or missing
	SafetyViolation = 3 // every failed target was blocked by the safety validator
	RuntimeError    = 4 // scan or clean aborted
	PartialFailure  = 5 // some targets could not be deleted
	Interrupted     = 130
)

// ForError maps an aborting error to an exit code.
func ForError(err error) int {
	switch {
	case err == nil:
		return Success
	case errors.Is(err, context.Canceled):
		return Interrupted
	case isSafety(err):
		return SafetyViolation
	}
	return RuntimeError
}

// ForFailures maps the per-target failures of a finished clean.
func ForFailures(errs []error) int {
	if len(errs) == 0 {
		return Success
	}
	for _, err := range errs {
		if !isSafety(err) {
			return PartialFailure
		}
	}
	return SafetyViolation
}

func isSafety(err error) bool {
	for _, target := range []error{
		safety.ErrProtectedPath,
		safety.ErrOutsideAllowed,
		safety.ErrRootTarget,
		safety.ErrTraversal,
		safety.ErrSymlinkEscape,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
