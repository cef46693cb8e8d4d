package fakeclientrepo

import (
	"fmt"
	"sync"

	"github.com/jrsteele09/go-travel-session/clients"
)

var _ clients.Repo = (*FakeClientRepo)(nil)

type FakeClientRepo struct {
	clients map[string]*clients.Client
	lock    sync.RWMutex
}

func NewFakeClientRepo() *FakeClientRepo {
	return &FakeClientRepo{
		clients: make(map[string]*clients.Client),
	}
}

func (r *FakeClientRepo) Upsert(clientData *clients.Client) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.clients[clientData.ID] = clientData
	return nil
}

func (r *FakeClientRepo) Get(clientID string) (*clients.Client, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	c, ok := r.clients[clientID]
	if !ok {
		return nil, fmt.Errorf("[FakeClientRepo Get] %s: %w", clientID, clients.ErrClientNotFound)
	}
	return c, nil
}
