package gateway

import (
	"fmt"

	"github.com/jrsteele09/go-travel-session/credentials"
	"github.com/jrsteele09/go-travel-session/sessions"
)

// RetryExhaustedError is returned when a request is rejected with 401 after
// its one retry. It matches sessions.ErrRetryExhausted.
type RetryExhaustedError struct {
	Role      credentials.Role
	RequestID string
	Method    string
	URL       string
}

func (e *RetryExhaustedError) Error() string {
	return fmt.Sprintf("%s %s (%s session, request %s): %v", e.Method, e.URL, e.Role, e.RequestID, sessions.ErrRetryExhausted)
}

func (e *RetryExhaustedError) Unwrap() error {
	return sessions.ErrRetryExhausted
}
