package sessions

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-travel-session/credentials"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

const defaultRefreshTimeout = 15 * time.Second

// State of a Session's refresh coordinator.
type State int

const (
	StateIdle State = iota
	StateRefreshing
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateRefreshing:
		return "REFRESHING"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Refresher performs the remote "refresh credential for role R" call.
// current is nil when the store holds no credential. Implementations must not
// retry internally: a returned error ends the cycle for every waiter.
type Refresher interface {
	Refresh(ctx context.Context, current *credentials.Credential) (*credentials.Credential, error)
}

// RefresherFunc adapts a function to Refresher.
type RefresherFunc func(ctx context.Context, current *credentials.Credential) (*credentials.Credential, error)

func (f RefresherFunc) Refresh(ctx context.Context, current *credentials.Credential) (*credentials.Credential, error) {
	return f(ctx, current)
}

// Outcome is the published result of one refresh cycle.
type Outcome struct {
	CycleID    string
	Credential *credentials.Credential
	Err        error
}

// OK reports whether the cycle produced a credential.
func (o Outcome) OK() bool {
	return o.Err == nil && o.Credential != nil
}

// Snapshot is a point in time view of a Session, for metrics and diagnostics.
type Snapshot struct {
	Role            credentials.Role
	State           State
	CycleID         string
	Waiters         int
	CompletedCycles uint64
}

type waiter struct {
	ch chan Outcome
}

// cycle is one refresh attempt and the callers attached to it.
type cycle struct {
	id      string
	started time.Time
	waiters []*waiter
}

// Session owns the credential and refresh coordination for a single role.
//
// The first caller of AwaitRefreshedCredential while IDLE opens a cycle and
// becomes its leader; callers arriving while REFRESHING join that cycle as
// waiters. When the refresh finishes, the outcome is sent to every waiter
// still attached and the session returns to IDLE. state, current and the
// waiter list are only touched with mu held.
type Session struct {
	role           credentials.Role
	store          credentials.Store
	refresher      Refresher
	observer       Observer
	logger         zerolog.Logger
	refreshTimeout time.Duration

	mu        sync.Mutex
	state     State
	current   *cycle
	completed uint64

	inflight sync.WaitGroup
}

// Option configures a Session.
type Option func(*Session)

// WithObserver reports refresh lifecycle events, typically to metrics.
func WithObserver(o Observer) Option {
	return func(s *Session) {
		if o != nil {
			s.observer = o
		}
	}
}

// WithLogger sets the logger. The role is added as a field.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Session) {
		s.logger = l
	}
}

// WithRefreshTimeout bounds a single refresh call. It applies even when the
// leader's own context has no deadline.
func WithRefreshTimeout(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.refreshTimeout = d
		}
	}
}

// New creates the Session for role.
func New(role credentials.Role, store credentials.Store, refresher Refresher, opts ...Option) (*Session, error) {
	if store == nil {
		return nil, fmt.Errorf("[sessions New] %s: %w", role, ErrMissingStore)
	}
	if refresher == nil {
		return nil, fmt.Errorf("[sessions New] %s: %w", role, ErrMissingRefresher)
	}

	s := &Session{
		role:           role,
		store:          store,
		refresher:      refresher,
		observer:       nopObserver{},
		logger:         log.Logger,
		refreshTimeout: defaultRefreshTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With().Str("role", role.String()).Logger()
	return s, nil
}

func (s *Session) Role() credentials.Role {
	return s.role
}

// Credential returns the current credential, or credentials.ErrNoCredential.
func (s *Session) Credential(ctx context.Context) (*credentials.Credential, error) {
	return s.store.Get(ctx)
}

// EndSession clears the stored credential. Callers use it after ErrRefreshDenied.
func (s *Session) EndSession(ctx context.Context) error {
	if err := s.store.Clear(ctx); err != nil {
		return fmt.Errorf("[Session EndSession] %s: %w", s.role, err)
	}
	s.logger.Info().Msg("Session ended, credential cleared")
	return nil
}

// AwaitRefreshedCredential blocks until a refresh cycle for this session
// completes and returns its credential, or the cycle's *RefreshError.
// If no cycle is running the caller starts one. At most one refresh call is in
// flight per Session. If ctx ends first the caller detaches and gets ctx.Err();
// the cycle and its other waiters carry on.
func (s *Session) AwaitRefreshedCredential(ctx context.Context) (*credentials.Credential, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	w := &waiter{ch: make(chan Outcome, 1)}

	s.mu.Lock()
	leader := s.state == StateIdle
	if leader {
		s.state = StateRefreshing
		s.current = &cycle{id: uuid.NewString(), started: NowTimeFunc()}
		s.inflight.Add(1)
	}
	c := s.current
	c.waiters = append(c.waiters, w)
	s.observer.WaitersChanged(s.role, len(c.waiters))
	s.mu.Unlock()

	if leader {
		s.logger.Debug().Str("cycle_id", c.id).Msg("Refresh cycle started")
		// The refresh must outlive the leader: other waiters depend on it.
		go s.refresh(context.WithoutCancel(ctx), c)
	} else {
		s.logger.Debug().Str("cycle_id", c.id).Msg("Joined refresh cycle")
	}

	select {
	case out := <-w.ch:
		return out.Credential, out.Err
	case <-ctx.Done():
		if s.detach(c, w) {
			s.logger.Debug().Str("cycle_id", c.id).Msg("Waiter cancelled before refresh completed")
		}
		return nil, ctx.Err()
	}
}

// Snapshot returns the current coordinator state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Role:            s.role,
		State:           s.state,
		CompletedCycles: s.completed,
	}
	if s.current != nil {
		snap.CycleID = s.current.id
		snap.Waiters = len(s.current.waiters)
	}
	return snap
}

// Wait blocks until any in-flight refresh has published its outcome.
func (s *Session) Wait() {
	s.inflight.Wait()
}

func (s *Session) refresh(ctx context.Context, c *cycle) {
	defer s.inflight.Done()

	ctx, cancel := context.WithTimeout(ctx, s.refreshTimeout)
	defer cancel()

	s.observer.RefreshStarted(s.role)
	cred, err := s.performRefresh(ctx)
	elapsed := NowTimeFunc().Sub(c.started)
	s.observer.RefreshCompleted(s.role, err, elapsed)

	out := Outcome{CycleID: c.id, Credential: cred}
	if err != nil {
		out = Outcome{CycleID: c.id, Err: &RefreshError{Role: s.role, CycleID: c.id, Err: err}}
		s.logger.Warn().Err(err).Str("cycle_id", c.id).Dur("elapsed", elapsed).Msg("Refresh denied")
	} else {
		s.logger.Info().Str("cycle_id", c.id).Dur("elapsed", elapsed).Time("expiry", cred.Expiry).Msg("Credential refreshed")
	}

	s.publish(c, out)
}

// performRefresh calls the refresher and installs the result. A panic in the
// refresher is turned into an error so no waiter is left hanging.
func (s *Session) performRefresh(ctx context.Context) (cred *credentials.Credential, err error) {
	defer func() {
		if r := recover(); r != nil {
			cred, err = nil, fmt.Errorf("refresher panic: %v", r)
		}
	}()

	current, err := s.store.Get(ctx)
	if err != nil {
		if !errors.Is(err, credentials.ErrNoCredential) {
			s.logger.Warn().Err(err).Msg("Could not read current credential, refreshing without it")
		}
		current = nil
	}

	cred, err = s.refresher.Refresh(ctx, current)
	if err != nil {
		return nil, err
	}
	if cred == nil || cred.AccessToken == "" {
		return nil, errors.New("refresher returned an empty credential")
	}

	// Only the leader's refresh goroutine ever writes the store.
	if err := s.store.Set(ctx, *cred); err != nil {
		return nil, fmt.Errorf("store refreshed credential: %w", err)
	}
	return cred, nil
}

// publish releases every waiter of c with out and returns the session to IDLE.
// The store write in performRefresh happens before this, so no waiter can
// resume and read a stale credential.
func (s *Session) publish(c *cycle, out Outcome) {
	s.mu.Lock()
	waiters := c.waiters
	c.waiters = nil
	if s.current == c {
		s.current = nil
		s.state = StateIdle
	}
	s.completed++
	s.observer.WaitersChanged(s.role, 0)
	s.mu.Unlock()

	for _, w := range waiters {
		o := out
		if out.Credential != nil {
			cred := *out.Credential
			o.Credential = &cred
		}
		// Buffered with capacity one and sent once, so this never blocks.
		w.ch <- o
	}
}

// detach removes w from c if the outcome has not been published yet.
func (s *Session) detach(c *cycle, w *waiter) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, x := range c.waiters {
		if x == w {
			c.waiters = append(c.waiters[:i], c.waiters[i+1:]...)
			s.observer.WaitersChanged(s.role, len(c.waiters))
			return true
		}
	}
	return false
}
