// Package riskerr defines the error kinds of the risk assessment core.
// Dependency-level failures are converted into these tagged kinds at the
// orchestrator boundary so that no raw driver error crosses into the
// presentation layer.
package riskerr

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks a malformed request. User-caused, surfaced as 4xx,
	// never retried.
	ErrValidation = errors.New("validation error")

	// ErrDependencyUnavailable marks a recoverable dependency failure. It
	// triggers degraded mode and never fails the request on its own.
	ErrDependencyUnavailable = errors.New("dependency unavailable")

	// ErrNotFound marks an entity with no history. Non-fatal: the caller
	// substitutes an empty signal.
	ErrNotFound = errors.New("not found")

	// ErrScoring marks a feature vector the model rejected. Fatal to the
	// single request, surfaced as 5xx, item-scoped in a batch.
	ErrScoring = errors.New("scoring error")

	// ErrTimeout marks the overall assessment ceiling being exceeded. The
	// orchestrator resolves it into a best-effort degraded result.
	ErrTimeout = errors.New("assessment timeout")
)

// Validationf wraps ErrValidation with a formatted message.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrValidation}, args...)...)
}

// Unavailable wraps a dependency error as ErrDependencyUnavailable,
// preserving the cause for logs.
func Unavailable(dep string, cause error) error {
	return fmt.Errorf("%w: %s: %v", ErrDependencyUnavailable, dep, cause)
}

// Scoringf wraps ErrScoring with a formatted message.
func Scoringf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrScoring}, args...)...)
}

// Kind returns the canonical name of the error kind for tagged outcomes.
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return "ValidationError"
	case errors.Is(err, ErrScoring):
		return "ScoringError"
	case errors.Is(err, ErrTimeout):
		return "Timeout"
	case errors.Is(err, ErrDependencyUnavailable):
		return "DependencyUnavailable"
	case errors.Is(err, ErrNotFound):
		return "NotFound"
	default:
		return "Internal"
	}
}
