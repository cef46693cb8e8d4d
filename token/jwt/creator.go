package jwt

import (
	"fmt"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jrsteele09/go-travel-session/credentials"
	"github.com/jrsteele09/go-travel-session/internal/config"
	"github.com/jrsteele09/go-travel-session/token/keys"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

// AccessClaims are the claims of an access token issued by the dev server.
type AccessClaims struct {
	jwtlib.RegisteredClaims
	ClientID string `json:"client_id,omitempty"`
	Role     string `json:"role"`
}

// Creator issues short lived access tokens
type Creator struct {
	issuer string
	config config.TokenConfig
	signer keys.Signer
}

func NewCreator(issuer string, cfg config.TokenConfig, signer keys.Signer) *Creator {
	return &Creator{
		issuer: issuer,
		config: cfg,
		signer: signer,
	}
}

// CreateAccessToken signs a token for subject acting in role. It returns the
// token and its lifetime.
func (c *Creator) CreateAccessToken(subject, clientID string, role credentials.Role) (string, time.Duration, error) {
	now := NowTimeFunc()
	ttl := c.config.GetAccessTokenTTL()
	claims := AccessClaims{
		RegisteredClaims: jwtlib.RegisteredClaims{
			Issuer:    c.issuer,
			Subject:   subject,
			IssuedAt:  jwtlib.NewNumericDate(now),
			ExpiresAt: jwtlib.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
		ClientID: clientID,
		Role:     role.String(),
	}

	signed, err := c.signer.Sign(claims)
	if err != nil {
		return "", 0, fmt.Errorf("[Creator CreateAccessToken] %w", err)
	}
	return signed, ttl, nil
}
