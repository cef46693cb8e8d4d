package gateway

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-travel-session/credentials"
)

// PendingRequest is one logical call through the gateway. Retried is set at
// most once and never cleared, which is what bounds a request to a single retry.
type PendingRequest struct {
	ID      string
	Role    credentials.Role
	Request *http.Request
	Retried bool

	jar http.CookieJar
}

// NewPendingRequest captures req so it can be sent more than once. A body
// without GetBody is buffered in memory.
func NewPendingRequest(role credentials.Role, req *http.Request) (*PendingRequest, error) {
	if req.Body != nil && req.Body != http.NoBody && req.GetBody == nil {
		b, err := io.ReadAll(req.Body)
		_ = req.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("[gateway NewPendingRequest] buffer body: %w", err)
		}
		req = req.Clone(req.Context())
		req.Body = io.NopCloser(bytes.NewReader(b))
		req.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(b)), nil
		}
	} else if req.Body != nil && req.GetBody != nil {
		// every attempt reads from GetBody
		_ = req.Body.Close()
	}
	return &PendingRequest{
		ID:      uuid.NewString(),
		Role:    role,
		Request: req,
	}, nil
}

// MarkRetried flips Retried and reports whether this call did it. A false
// return means the request already used its retry.
func (p *PendingRequest) MarkRetried() bool {
	if p.Retried {
		return false
	}
	p.Retried = true
	return true
}

func (p *PendingRequest) Context() context.Context {
	return p.Request.Context()
}

// attempt builds a fresh outbound request carrying cred.
func (p *PendingRequest) attempt(cred *credentials.Credential, reloadCookies bool) (*http.Request, error) {
	r := p.Request.Clone(p.Context())
	if p.Request.GetBody != nil {
		body, err := p.Request.GetBody()
		if err != nil {
			return nil, fmt.Errorf("[gateway attempt] rewind body: %w", err)
		}
		r.Body = body
	}

	if cred != nil && cred.AccessToken != "" {
		r.Header.Set("Authorization", cred.AuthorizationHeader())
	}

	if p.jar != nil && (reloadCookies || r.Header.Get("Cookie") == "") {
		r.Header.Del("Cookie")
		for _, c := range p.jar.Cookies(r.URL) {
			r.AddCookie(c)
		}
	}
	return r, nil
}
