package jwt

import (
	"fmt"
	"strings"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/go-travel-session/credentials"
	apperrors "github.com/jrsteele09/go-travel-session/internal/errors"
	"github.com/jrsteele09/go-travel-session/token/keys"
)

// Inspector validates access tokens issued by a Creator with the same signer.
type Inspector struct {
	issuer string
	signer keys.Signer
}

func NewInspector(issuer string, signer keys.Signer) *Inspector {
	return &Inspector{
		issuer: issuer,
		signer: signer,
	}
}

// Inspect verifies the signature, issuer and expiry of rawToken.
// Expired tokens return apperrors.ErrTokenExpired, anything else apperrors.ErrInvalidToken.
func (i *Inspector) Inspect(rawToken string) (*AccessClaims, error) {
	if strings.TrimSpace(rawToken) == "" {
		return nil, fmt.Errorf("[Inspector Inspect] empty token: %w", apperrors.ErrInvalidToken)
	}

	claims := &AccessClaims{}
	token, err := jwtlib.ParseWithClaims(rawToken, claims, i.signer.GetVerificationKey,
		jwtlib.WithIssuer(i.issuer),
		jwtlib.WithValidMethods([]string{i.signer.GetSigningMethod().Alg()}),
		jwtlib.WithTimeFunc(NowTimeFunc),
		jwtlib.WithExpirationRequired(),
	)
	if err != nil {
		if apperrors.Is(err, jwtlib.ErrTokenExpired) {
			return nil, apperrors.Wrapf(apperrors.ErrTokenExpired, "[Inspector Inspect] %v", err)
		}
		return nil, apperrors.Wrapf(apperrors.ErrInvalidToken, "[Inspector Inspect] %v", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("[Inspector Inspect] %w", apperrors.ErrInvalidToken)
	}
	if _, err := credentials.ParseRole(claims.Role); err != nil {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidToken, "[Inspector Inspect] %v", err)
	}
	return claims, nil
}
