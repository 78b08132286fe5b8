package errs

import (
	"errors"
	"fmt"
)

// Sentinel failure classes. Usecases wrap these with %w and context; the
// HTTP adapter maps them to status codes with errors.Is.
var (
	// ErrValidation: malformed or missing input; surfaced to the caller verbatim.
	ErrValidation = errors.New("validation error")
	// ErrNotFound: a referenced entity does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict: duplicate wallet or a disallowed state transition.
	ErrConflict = errors.New("conflict")
	// ErrStorageUnavailable: transient storage failure; the caller may retry.
	ErrStorageUnavailable = errors.New("storage unavailable")
	// ErrIntegrityViolation: hash mismatch or broken tier-table invariant.
	// Fatal: aborts the operation and must never be swallowed.
	ErrIntegrityViolation = errors.New("integrity violation")
	// ErrNoMatchingTier: no pricing tier covers the score. A data-integrity
	// problem given the coverage invariant, not a user error.
	ErrNoMatchingTier = errors.New("no matching pricing tier")
)

func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrValidation}, args...)...)
}

func NotFoundf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrNotFound}, args...)...)
}

func Conflictf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrConflict}, args...)...)
}

func Integrityf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrIntegrityViolation}, args...)...)
}

// Storage wraps a storage-layer failure, preserving the cause for logs while
// classifying it as ErrStorageUnavailable for callers.
func Storage(op string, cause error) error {
	return fmt.Errorf("%w: %s: %v", ErrStorageUnavailable, op, cause)
}
