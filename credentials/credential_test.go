package credentials_test

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/go-travel-session/credentials"
	apioauth2 "github.com/jrsteele09/go-travel-session/oauth2"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "traveller-1",
		"exp": exp.Unix(),
	})
	s, err := tok.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return s
}

func TestParseRole(t *testing.T) {
	r, err := credentials.ParseRole(" Admin ")
	require.NoError(t, err)
	require.Equal(t, credentials.RoleAdmin, r)

	_, err = credentials.ParseRole("guide")
	require.Error(t, err)
}

func TestAuthorizationHeader(t *testing.T) {
	require.Equal(t, "Bearer abc", credentials.Credential{AccessToken: "abc"}.AuthorizationHeader())
	require.Equal(t, "Bearer abc", credentials.Credential{AccessToken: "abc", TokenType: "bearer"}.AuthorizationHeader())
	require.Equal(t, "DPoP abc", credentials.Credential{AccessToken: "abc", TokenType: "DPoP"}.AuthorizationHeader())
}

func TestFromTokenResponseUsesExpiresIn(t *testing.T) {
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	credentials.NowTimeFunc = func() time.Time { return now }
	t.Cleanup(func() { credentials.NowTimeFunc = time.Now })

	c, err := credentials.FromTokenResponse(apioauth2.TokenResponse{
		AccessToken: "opaque",
		ExpiresIn:   300,
	})
	require.NoError(t, err)
	require.Equal(t, now.Add(5*time.Minute), c.Expiry)
}

func TestFromTokenResponseFallsBackToJWTExpiry(t *testing.T) {
	exp := time.Now().Add(10 * time.Minute).Truncate(time.Second)

	c, err := credentials.FromTokenResponse(apioauth2.TokenResponse{AccessToken: signedToken(t, exp)})
	require.NoError(t, err)
	require.True(t, exp.Equal(c.Expiry))
	require.False(t, c.Expired())
}

func TestFromTokenResponseRequiresAccessToken(t *testing.T) {
	_, err := credentials.FromTokenResponse(apioauth2.TokenResponse{RefreshToken: "r"})
	require.Error(t, err)
}

func TestJWTExpiryRejectsOpaqueTokens(t *testing.T) {
	_, ok := credentials.JWTExpiry("not-a-jwt")
	require.False(t, ok)
}

func TestExpired(t *testing.T) {
	require.False(t, credentials.Credential{}.Expired())
	require.True(t, credentials.Credential{Expiry: time.Now().Add(-time.Second)}.Expired())
}

func TestOAuth2Conversion(t *testing.T) {
	exp := time.Now().Add(time.Hour)
	c := credentials.FromOAuth2Token(&oauth2.Token{AccessToken: "a", RefreshToken: "r", TokenType: "Bearer", Expiry: exp})
	require.Equal(t, "r", c.RefreshToken)
	require.Equal(t, exp, c.OAuth2Token().Expiry)
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := credentials.NewMemoryStore(nil)

	_, err := s.Get(ctx)
	require.ErrorIs(t, err, credentials.ErrNoCredential)

	require.NoError(t, s.Set(ctx, credentials.Credential{AccessToken: "one"}))
	got, err := s.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, "one", got.AccessToken)

	// callers get a copy
	got.AccessToken = "mutated"
	again, err := s.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, "one", again.AccessToken)

	require.NoError(t, s.Clear(ctx))
	_, err = s.Get(ctx)
	require.ErrorIs(t, err, credentials.ErrNoCredential)
}

func TestMemoryStoreSeed(t *testing.T) {
	s := credentials.NewMemoryStore(&credentials.Credential{AccessToken: "seed"})
	got, err := s.Get(context.Background())
	require.NoError(t, err)
	require.Equal(t, "seed", got.AccessToken)
}
