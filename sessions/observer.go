package sessions

import (
	"time"

	"github.com/jrsteele09/go-travel-session/credentials"
)

// Observer receives refresh lifecycle events. Calls may happen while the
// session lock is held, so implementations must be fast and must not call
// back into the Session.
type Observer interface {
	RefreshStarted(role credentials.Role)
	RefreshCompleted(role credentials.Role, err error, elapsed time.Duration)
	WaitersChanged(role credentials.Role, waiters int)
}

type nopObserver struct{}

func (nopObserver) RefreshStarted(credentials.Role) {}

func (nopObserver) RefreshCompleted(credentials.Role, error, time.Duration) {}

func (nopObserver) WaitersChanged(credentials.Role, int) {}
