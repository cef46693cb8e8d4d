package gateway

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/jrsteele09/go-travel-session/credentials"
	"github.com/jrsteele09/go-travel-session/sessions"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Retry results reported to a RetryObserver.
const (
	RetrySucceeded = "succeeded"
	RetryExhausted = "exhausted"
	RetryDenied    = "denied"
	RetryAbandoned = "abandoned"
)

// maxDrainBytes bounds how much of a 401 body is read before it is discarded.
const maxDrainBytes = 64 << 10

// RetryObserver is told how each refresh-and-retry ended.
type RetryObserver interface {
	RetryFinished(role credentials.Role, result string)
}

type nopRetryObserver struct{}

func (nopRetryObserver) RetryFinished(credentials.Role, string) {}

// Gateway sends authenticated requests for any registered role. A 401 is
// handed to the role's Session; once it has a fresh credential the request is
// sent again, exactly once.
type Gateway struct {
	registry *sessions.Registry
	exec     *Executor
	jars     map[credentials.Role]http.CookieJar
	observer RetryObserver
	logger   zerolog.Logger
}

type Option func(*Gateway)

// WithBaseTransport sets the transport that actually sends requests.
func WithBaseTransport(rt http.RoundTripper) Option {
	return func(g *Gateway) {
		g.exec = NewExecutor(rt)
	}
}

// WithCookieJar attaches the cookie jar of a cookie based role. Retries pick
// up cookies rotated by the refresh.
func WithCookieJar(role credentials.Role, jar http.CookieJar) Option {
	return func(g *Gateway) {
		g.jars[role] = jar
	}
}

func WithRetryObserver(o RetryObserver) Option {
	return func(g *Gateway) {
		if o != nil {
			g.observer = o
		}
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(g *Gateway) {
		g.logger = l
	}
}

// New creates a Gateway over the sessions in registry.
func New(registry *sessions.Registry, opts ...Option) *Gateway {
	g := &Gateway{
		registry: registry,
		exec:     NewExecutor(nil),
		jars:     make(map[credentials.Role]http.CookieJar),
		observer: nopRetryObserver{},
		logger:   log.Logger,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Send performs req for role, bound to ctx.
func (g *Gateway) Send(ctx context.Context, role credentials.Role, req *http.Request) (*http.Response, error) {
	return g.roundTrip(role, req.WithContext(ctx))
}

// Transport returns an http.RoundTripper bound to role.
func (g *Gateway) Transport(role credentials.Role) http.RoundTripper {
	return &Transport{gateway: g, role: role}
}

// Client returns an http.Client for role. Cookie based roles share the jar
// configured with WithCookieJar.
func (g *Gateway) Client(role credentials.Role) *http.Client {
	return &http.Client{
		Transport: g.Transport(role),
		Jar:       g.jars[role],
	}
}

// Transport is the http.RoundTripper form of the gateway for one role.
type Transport struct {
	gateway *Gateway
	role    credentials.Role
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	return t.gateway.roundTrip(t.role, req)
}

func (g *Gateway) roundTrip(role credentials.Role, req *http.Request) (*http.Response, error) {
	session, err := g.registry.Get(role)
	if err != nil {
		if req.Body != nil {
			_ = req.Body.Close()
		}
		return nil, err
	}

	p, err := NewPendingRequest(role, req)
	if err != nil {
		return nil, err
	}
	p.jar = g.jars[role]

	logger := g.logger.With().
		Str("role", role.String()).
		Str("request_id", p.ID).
		Str("method", req.Method).
		Str("path", req.URL.Path).
		Logger()

	resp, err := g.exec.Send(p, g.currentCredential(p.Context(), session, logger))
	if err != nil || resp.StatusCode != http.StatusUnauthorized {
		return resp, err
	}
	return g.handleUnauthorized(session, p, resp, logger)
}

func (g *Gateway) handleUnauthorized(session *sessions.Session, p *PendingRequest, resp *http.Response, logger zerolog.Logger) (*http.Response, error) {
	drain(resp)

	if !p.MarkRetried() {
		g.observer.RetryFinished(p.Role, RetryExhausted)
		return nil, g.exhausted(p, logger)
	}
	logger.Debug().Err(sessions.ErrTransientAuthFailure).Msg("Awaiting refreshed credential")

	cred, err := session.AwaitRefreshedCredential(p.Context())
	var refreshErr *sessions.RefreshError
	if err != nil && !errors.As(err, &refreshErr) {
		// the caller's context ended while waiting
		g.observer.RetryFinished(p.Role, RetryAbandoned)
		return nil, err
	}

	resp, err = g.exec.Retry(p, sessions.Outcome{Credential: cred, Err: err})
	if err != nil {
		if errors.Is(err, sessions.ErrRefreshDenied) {
			g.observer.RetryFinished(p.Role, RetryDenied)
			logger.Info().Err(err).Msg("Request failed, session refresh denied")
		}
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		// p.Retried is already set, so this is terminal
		drain(resp)
		g.observer.RetryFinished(p.Role, RetryExhausted)
		return nil, g.exhausted(p, logger)
	}

	g.observer.RetryFinished(p.Role, RetrySucceeded)
	return resp, nil
}

func (g *Gateway) exhausted(p *PendingRequest, logger zerolog.Logger) error {
	err := &RetryExhaustedError{
		Role:      p.Role,
		RequestID: p.ID,
		Method:    p.Request.Method,
		URL:       p.Request.URL.Redacted(),
	}
	logger.Warn().Err(err).Msg("Refreshed credential rejected")
	return err
}

// currentCredential returns the credential to attach, or nil. Store read errors
// are logged and the request goes out unauthenticated, which ends in a 401 and
// a refresh.
func (g *Gateway) currentCredential(ctx context.Context, session *sessions.Session, logger zerolog.Logger) *credentials.Credential {
	cred, err := session.Credential(ctx)
	if err != nil {
		if !errors.Is(err, credentials.ErrNoCredential) {
			logger.Warn().Err(err).Msg("Could not read credential")
		}
		return nil
	}
	return cred
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrainBytes))
	_ = resp.Body.Close()
}
