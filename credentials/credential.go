package credentials

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	apioauth2 "github.com/jrsteele09/go-travel-session/oauth2"
	"golang.org/x/oauth2"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

// Role selects which session a request belongs to. Each role has its own
// credential, its own store and its own refresh state.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

func (r Role) String() string {
	return string(r)
}

// ParseRole accepts "user" or "admin" in any case.
func ParseRole(s string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleUser:
		return RoleUser, nil
	case RoleAdmin:
		return RoleAdmin, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// ErrNoCredential is returned by a Store when it holds no credential.
var ErrNoCredential = errors.New("no credential")

// Credential is the access credential of one session.
// Cookie based roles never see their refresh token; RefreshToken is empty for them.
type Credential struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	TokenType    string    `json:"token_type,omitempty"`
	Expiry       time.Time `json:"expiry,omitzero"`
}

// Type returns the authorization scheme, defaulting to Bearer.
func (c Credential) Type() string {
	if c.TokenType == "" || strings.EqualFold(c.TokenType, "bearer") {
		return apioauth2.BearerTokenType
	}
	return c.TokenType
}

// AuthorizationHeader is the value for the Authorization request header.
func (c Credential) AuthorizationHeader() string {
	return c.Type() + " " + c.AccessToken
}

// Expired reports whether the access token is known to be past its expiry.
// A zero expiry means unknown, which is treated as not expired: the server decides.
func (c Credential) Expired() bool {
	if c.Expiry.IsZero() {
		return false
	}
	return !NowTimeFunc().Before(c.Expiry)
}

// FromTokenResponse converts a refresh endpoint response into a Credential.
// When expires_in is missing the JWT exp claim is used instead.
func FromTokenResponse(tr apioauth2.TokenResponse) (*Credential, error) {
	if tr.AccessToken == "" {
		return nil, errors.New("token response has no access_token")
	}
	c := &Credential{
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
		TokenType:    tr.TokenType,
	}
	if tr.ExpiresIn > 0 {
		c.Expiry = NowTimeFunc().Add(time.Duration(tr.ExpiresIn) * time.Second)
	} else if exp, ok := JWTExpiry(tr.AccessToken); ok {
		c.Expiry = exp
	}
	return c, nil
}

// FromOAuth2Token converts an x/oauth2 token.
func FromOAuth2Token(t *oauth2.Token) *Credential {
	c := &Credential{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		TokenType:    t.TokenType,
		Expiry:       t.Expiry,
	}
	if c.Expiry.IsZero() {
		if exp, ok := JWTExpiry(t.AccessToken); ok {
			c.Expiry = exp
		}
	}
	return c
}

// OAuth2Token converts back to an x/oauth2 token, for use with a TokenSource.
func (c Credential) OAuth2Token() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  c.AccessToken,
		RefreshToken: c.RefreshToken,
		TokenType:    c.TokenType,
		Expiry:       c.Expiry,
	}
}

// JWTExpiry reads the exp claim without verifying the signature.
// The client never validates tokens; it only uses exp as a display and logging hint.
func JWTExpiry(token string) (time.Time, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}
