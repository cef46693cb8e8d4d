package credentials

import (
	"context"
	"sync"
)

// Store holds the current credential of one session. It does no coordination
// of its own: the session coordinator is the only writer.
type Store interface {
	// Get returns the current credential, or ErrNoCredential
	Get(ctx context.Context) (*Credential, error)

	// Set replaces the current credential
	Set(ctx context.Context, c Credential) error

	// Clear removes the current credential. Clearing an empty store is not an error.
	Clear(ctx context.Context) error
}

var _ Store = (*MemoryStore)(nil)

// MemoryStore is a process local Store. Cookie based roles use it as a cache
// only, because the authority for their session lives server side.
type MemoryStore struct {
	mu   sync.RWMutex
	cred *Credential
}

// NewMemoryStore creates an empty store, optionally seeded with a credential.
func NewMemoryStore(seed *Credential) *MemoryStore {
	s := &MemoryStore{}
	if seed != nil {
		c := *seed
		s.cred = &c
	}
	return s
}

func (s *MemoryStore) Get(_ context.Context) (*Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.cred == nil {
		return nil, ErrNoCredential
	}
	c := *s.cred
	return &c, nil
}

func (s *MemoryStore) Set(_ context.Context, c Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cred = &c
	return nil
}

func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cred = nil
	return nil
}
