package gateway

import (
	"net/http"

	"github.com/jrsteele09/go-travel-session/credentials"
	"github.com/jrsteele09/go-travel-session/sessions"
)

// Executor sends PendingRequests over the base transport.
type Executor struct {
	base http.RoundTripper
}

func NewExecutor(base http.RoundTripper) *Executor {
	if base == nil {
		base = http.DefaultTransport
	}
	return &Executor{base: base}
}

// Send performs the first attempt of p with whatever credential is current.
func (e *Executor) Send(p *PendingRequest, cred *credentials.Credential) (*http.Response, error) {
	r, err := p.attempt(cred, false)
	if err != nil {
		return nil, err
	}
	return e.base.RoundTrip(r)
}

// Retry resubmits p once with the credential of a successful outcome. A
// failed outcome is returned as its error and nothing is sent.
func (e *Executor) Retry(p *PendingRequest, out sessions.Outcome) (*http.Response, error) {
	if out.Err != nil {
		return nil, out.Err
	}
	if !out.OK() {
		return nil, sessions.ErrRefreshDenied
	}
	r, err := p.attempt(out.Credential, true)
	if err != nil {
		return nil, err
	}
	return e.base.RoundTrip(r)
}
