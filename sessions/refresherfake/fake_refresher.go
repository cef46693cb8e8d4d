package refresherfake

import (
	"context"
	"fmt"
	"sync"

	"github.com/jrsteele09/go-travel-session/credentials"
	"github.com/jrsteele09/go-travel-session/sessions"
)

var _ sessions.Refresher = (*FakeRefresher)(nil)

// FakeRefresher issues "<prefix>-<n>" access tokens and counts calls.
// Hold makes subsequent calls block until Release, so tests can pile waiters
// onto a cycle before it completes.
type FakeRefresher struct {
	prefix string

	lock     sync.Mutex
	calls    int
	gate     chan struct{}
	err      error
	panicMsg string
	seen     []*credentials.Credential
}

func NewFakeRefresher(prefix string) *FakeRefresher {
	return &FakeRefresher{prefix: prefix}
}

// Hold blocks every Refresh call until Release is called.
func (f *FakeRefresher) Hold() {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.gate = make(chan struct{})
}

// Release unblocks calls waiting since the last Hold.
func (f *FakeRefresher) Release() {
	f.lock.Lock()
	defer f.lock.Unlock()
	if f.gate != nil {
		close(f.gate)
		f.gate = nil
	}
}

// FailWith makes subsequent calls return err. nil restores success.
func (f *FakeRefresher) FailWith(err error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.err = err
}

// PanicWith makes subsequent calls panic.
func (f *FakeRefresher) PanicWith(msg string) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.panicMsg = msg
}

// Calls returns how many times Refresh has been entered.
func (f *FakeRefresher) Calls() int {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.calls
}

// Seen returns the credential passed to each call, in call order.
func (f *FakeRefresher) Seen() []*credentials.Credential {
	f.lock.Lock()
	defer f.lock.Unlock()
	return append([]*credentials.Credential(nil), f.seen...)
}

func (f *FakeRefresher) Refresh(ctx context.Context, current *credentials.Credential) (*credentials.Credential, error) {
	f.lock.Lock()
	f.calls++
	n := f.calls
	gate := f.gate
	f.seen = append(f.seen, current)
	f.lock.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	// read after the gate so tests can change the result while a call is held
	f.lock.Lock()
	err := f.err
	panicMsg := f.panicMsg
	f.lock.Unlock()
	if panicMsg != "" {
		panic(panicMsg)
	}
	if err != nil {
		return nil, err
	}
	return &credentials.Credential{
		AccessToken: fmt.Sprintf("%s-%d", f.prefix, n),
		TokenType:   "Bearer",
	}, nil
}
