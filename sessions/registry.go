package sessions

import (
	"fmt"
	"sort"

	"github.com/jrsteele09/go-travel-session/credentials"
)

// Registry holds exactly one Session per role for the lifetime of the process.
type Registry struct {
	sessions map[credentials.Role]*Session
}

// NewRegistry builds a registry. Two sessions for the same role are rejected:
// roles must never share refresh state.
func NewRegistry(sessions ...*Session) (*Registry, error) {
	r := &Registry{sessions: make(map[credentials.Role]*Session, len(sessions))}
	for _, s := range sessions {
		if s == nil {
			continue
		}
		if _, exists := r.sessions[s.Role()]; exists {
			return nil, fmt.Errorf("[sessions NewRegistry] %s: %w", s.Role(), ErrDuplicateRole)
		}
		r.sessions[s.Role()] = s
	}
	return r, nil
}

// Get returns the Session for role.
func (r *Registry) Get(role credentials.Role) (*Session, error) {
	s, ok := r.sessions[role]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRole, role)
	}
	return s, nil
}

// Roles lists the registered roles in a stable order.
func (r *Registry) Roles() []credentials.Role {
	roles := make([]credentials.Role, 0, len(r.sessions))
	for role := range r.sessions {
		roles = append(roles, role)
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i] < roles[j] })
	return roles
}

// Snapshot returns a snapshot of every session, ordered by role.
func (r *Registry) Snapshot() []Snapshot {
	roles := r.Roles()
	snaps := make([]Snapshot, 0, len(roles))
	for _, role := range roles {
		snaps = append(snaps, r.sessions[role].Snapshot())
	}
	return snaps
}

// Wait blocks until no session has a refresh in flight.
func (r *Registry) Wait() {
	for _, s := range r.sessions {
		s.Wait()
	}
}
