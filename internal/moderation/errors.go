package moderation

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound means the target, report or user does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict means the operation raced a terminal state: resolving an
	// already-resolved group, or re-reporting a resolved target. Callers
	// must treat it as an explicit no-op, never retry blindly.
	ErrConflict = errors.New("already resolved")
)

// ValidationError rejects a malformed report before anything is persisted.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// TransientError marks a failure that must not abort the moderation
// decision, such as notification delivery. It is logged and retried from
// the notification log, never propagated out of a resolve call.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return "transient: " + e.Err.Error()
}

func (e *TransientError) Unwrap() error { return e.Err }
