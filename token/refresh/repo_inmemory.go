package refresh

import (
	"fmt"
	"sort"
	"sync"

	apperrors "github.com/jrsteele09/go-travel-session/internal/errors"
)

var _ Repo = (*InMemoryRepo)(nil)

// InMemoryRepo is a thread-safe in-memory implementation of Repo
type InMemoryRepo struct {
	tokens map[string]*StoredRefreshToken
	lock   sync.RWMutex
}

func NewInMemoryRepo() *InMemoryRepo {
	return &InMemoryRepo{
		tokens: make(map[string]*StoredRefreshToken),
	}
}

func (r *InMemoryRepo) Upsert(refreshToken *StoredRefreshToken) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	stored := *refreshToken
	r.tokens[refreshToken.Token] = &stored
	return nil
}

// Get returns a copy, so callers must Upsert to change the record.
func (r *InMemoryRepo) Get(token string) (*StoredRefreshToken, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	rt, ok := r.tokens[token]
	if !ok {
		return nil, fmt.Errorf("[InMemoryRepo Get] %w", apperrors.ErrNotFound)
	}
	stored := *rt
	return &stored, nil
}

func (r *InMemoryRepo) Delete(token string) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	if _, ok := r.tokens[token]; !ok {
		return fmt.Errorf("[InMemoryRepo Delete] %w", apperrors.ErrNotFound)
	}
	delete(r.tokens, token)
	return nil
}

func (r *InMemoryRepo) DeleteFamily(familyID string) (int, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	deleted := 0
	for token, rt := range r.tokens {
		if rt.FamilyID == familyID {
			delete(r.tokens, token)
			deleted++
		}
	}
	return deleted, nil
}

// List returns records ordered by issue time.
func (r *InMemoryRepo) List(offset, limit int) ([]*StoredRefreshToken, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	tokens := make([]*StoredRefreshToken, 0, len(r.tokens))
	for _, v := range r.tokens {
		stored := *v
		tokens = append(tokens, &stored)
	}

	sort.Slice(tokens, func(i, j int) bool {
		return tokens[i].Iat.Before(tokens[j].Iat)
	})

	if offset >= len(tokens) {
		return nil, nil
	}
	end := offset + limit
	if limit <= 0 || end > len(tokens) {
		end = len(tokens)
	}
	return tokens[offset:end], nil
}
