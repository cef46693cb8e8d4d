package sessions

import (
	"errors"
	"fmt"

	"github.com/jrsteele09/go-travel-session/credentials"
)

var (
	// ErrTransientAuthFailure marks a 401 that is eligible for one refresh and retry.
	// It is absorbed by the gateway and only reaches callers through logs.
	ErrTransientAuthFailure = errors.New("transient authorization failure")

	// ErrRefreshDenied is returned to every waiter of a cycle whose refresh call failed.
	// Callers should treat it as "session ended".
	ErrRefreshDenied = errors.New("refresh denied")

	// ErrRetryExhausted is returned when a request is rejected again after its single retry.
	ErrRetryExhausted = errors.New("retry exhausted")

	ErrUnknownRole      = errors.New("unknown session role")
	ErrDuplicateRole    = errors.New("duplicate session role")
	ErrMissingRefresher = errors.New("session has no refresher")
	ErrMissingStore     = errors.New("session has no credential store")
)

// RefreshError is the failure outcome of one refresh cycle.
// errors.Is matches both ErrRefreshDenied and the underlying cause.
type RefreshError struct {
	Role    credentials.Role
	CycleID string
	Err     error
}

func (e *RefreshError) Error() string {
	return fmt.Sprintf("%s session: %v (cycle %s): %v", e.Role, ErrRefreshDenied, e.CycleID, e.Err)
}

func (e *RefreshError) Unwrap() []error {
	return []error{ErrRefreshDenied, e.Err}
}
