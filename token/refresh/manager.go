package refresh

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-travel-session/credentials"
	"github.com/jrsteele09/go-travel-session/internal/config"
	apperrors "github.com/jrsteele09/go-travel-session/internal/errors"
	"github.com/rs/zerolog/log"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

// Manager handles refresh token creation, validation and rotation.
// Every successful Rotate retires the presented token. Presenting a retired
// token again revokes its whole family.
type Manager struct {
	repo   Repo
	config config.TokenConfig

	// serialises Rotate so a token can only be exchanged once
	lock sync.Mutex
}

func NewManager(repo Repo, cfg config.TokenConfig) *Manager {
	return &Manager{
		repo:   repo,
		config: cfg,
	}
}

// Create starts a new token family for a login.
func (m *Manager) Create(subject, clientID string, role credentials.Role) (*StoredRefreshToken, error) {
	return m.issue(uuid.NewString(), subject, clientID, role)
}

// Rotate exchanges token for a new one in the same family. clientID must match
// the client the token was issued to; an empty clientID skips that check (the
// cookie endpoint has no client).
func (m *Manager) Rotate(token, clientID string) (*StoredRefreshToken, error) {
	m.lock.Lock()
	defer m.lock.Unlock()

	rt, err := m.repo.Get(token)
	if err != nil {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidRefreshToken, "[Manager Rotate] %v", err)
	}

	if rt.Used {
		revoked, _ := m.repo.DeleteFamily(rt.FamilyID)
		log.Warn().Str("family_id", rt.FamilyID).Str("subject", rt.Subject).Int("revoked", revoked).Msg("Refresh token reused, family revoked")
		return nil, fmt.Errorf("[Manager Rotate] %w", apperrors.ErrRefreshTokenReused)
	}
	if m.IsExpired(rt) {
		_ = m.repo.Delete(rt.Token)
		return nil, fmt.Errorf("[Manager Rotate] %w", apperrors.ErrRefreshTokenExpired)
	}
	if clientID != "" && rt.ClientID != clientID {
		return nil, fmt.Errorf("[Manager Rotate] token issued to %q: %w", rt.ClientID, apperrors.ErrInvalidClient)
	}

	rt.Used = true
	if err := m.repo.Upsert(rt); err != nil {
		return nil, fmt.Errorf("[Manager Rotate] failed to retire refresh token: %w", err)
	}
	return m.issue(rt.FamilyID, rt.Subject, rt.ClientID, rt.Role)
}

// Revoke deletes the family token belongs to. Unknown tokens are ignored.
func (m *Manager) Revoke(token string) error {
	rt, err := m.repo.Get(token)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrNotFound) {
			return nil
		}
		return err
	}
	_, err = m.repo.DeleteFamily(rt.FamilyID)
	return err
}

func (m *Manager) IsExpired(rt *StoredRefreshToken) bool {
	return NowTimeFunc().Sub(rt.Iat) > m.config.GetRefreshTokenTTL()
}

func (m *Manager) issue(familyID, subject, clientID string, role credentials.Role) (*StoredRefreshToken, error) {
	tokenBytes := make([]byte, m.config.GetRefreshTokenLength())
	if _, err := rand.Read(tokenBytes); err != nil {
		return nil, fmt.Errorf("failed to generate random bytes: %w", err)
	}

	rt := &StoredRefreshToken{
		Token:    hex.EncodeToString(tokenBytes),
		FamilyID: familyID,
		Subject:  subject,
		ClientID: clientID,
		Role:     role,
		Iat:      NowTimeFunc(),
	}
	if err := m.repo.Upsert(rt); err != nil {
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}
	return rt, nil
}
