package refresher

import (
	"errors"
	"fmt"
)

var (
	// ErrRefreshRejected means the server answered and refused to refresh.
	ErrRefreshRejected = errors.New("refresh rejected")

	ErrNoRefreshToken = errors.New("no refresh token")
	ErrNoCookieJar    = errors.New("cookie refresher needs a client with a cookie jar")
)

// RejectedError carries the status and OAuth2 error body of a refused refresh.
type RejectedError struct {
	StatusCode  int
	Code        string
	Description string
}

func (e *RejectedError) Error() string {
	msg := fmt.Sprintf("%v: status %d", ErrRefreshRejected, e.StatusCode)
	if e.Code != "" {
		msg += " " + e.Code
	}
	if e.Description != "" {
		msg += ": " + e.Description
	}
	return msg
}

func (e *RejectedError) Unwrap() error {
	return ErrRefreshRejected
}
