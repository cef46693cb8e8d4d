package sessions_test

import (
	"context"
	"testing"

	"github.com/jrsteele09/go-travel-session/credentials"
	"github.com/jrsteele09/go-travel-session/sessions"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	user, _, _ := newSession(t, credentials.RoleUser, nil)
	admin, _, _ := newSession(t, credentials.RoleAdmin, nil)

	r, err := sessions.NewRegistry(user, admin)
	require.NoError(t, err)
	require.Equal(t, []credentials.Role{credentials.RoleAdmin, credentials.RoleUser}, r.Roles())

	got, err := r.Get(credentials.RoleUser)
	require.NoError(t, err)
	require.Same(t, user, got)

	_, err = r.Get(credentials.Role("guide"))
	require.ErrorIs(t, err, sessions.ErrUnknownRole)

	_, err = user.AwaitRefreshedCredential(context.Background())
	require.NoError(t, err)
	r.Wait()

	snaps := r.Snapshot()
	require.Len(t, snaps, 2)
	require.Equal(t, credentials.RoleAdmin, snaps[0].Role)
	require.Zero(t, snaps[0].CompletedCycles)
	require.Equal(t, uint64(1), snaps[1].CompletedCycles)
}

func TestRegistryRejectsDuplicateRoles(t *testing.T) {
	a, _, _ := newSession(t, credentials.RoleUser, nil)
	b, _, _ := newSession(t, credentials.RoleUser, nil)

	_, err := sessions.NewRegistry(a, b)
	require.ErrorIs(t, err, sessions.ErrDuplicateRole)
}
