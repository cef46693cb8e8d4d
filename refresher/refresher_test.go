package refresher_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"

	"github.com/jrsteele09/go-travel-session/credentials"
	apioauth2 "github.com/jrsteele09/go-travel-session/oauth2"
	"github.com/jrsteele09/go-travel-session/refresher"
	"github.com/stretchr/testify/require"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func newJarClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{Jar: jar}
}

func TestCookieRefresherRotatesCookie(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		require.Equal(t, http.MethodPost, r.Method)
		c, err := r.Cookie("refresh_token")
		if err != nil || c.Value != fmt.Sprintf("cookie-%d", n-1) {
			writeJSON(w, http.StatusUnauthorized, apioauth2.ErrorResponse{Error: apioauth2.ErrCodeInvalidGrant})
			return
		}
		http.SetCookie(w, &http.Cookie{Name: "refresh_token", Value: fmt.Sprintf("cookie-%d", n), Path: "/"})
		writeJSON(w, http.StatusOK, apioauth2.TokenResponse{AccessToken: "access", TokenType: "Bearer", ExpiresIn: 300})
	}))
	defer srv.Close()

	client := newJarClient(t)
	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	client.Jar.SetCookies(u, []*http.Cookie{{Name: "refresh_token", Value: "cookie-0", Path: "/"}})

	r, err := refresher.NewCookieRefresher(srv.URL+"/auth/refresh", client)
	require.NoError(t, err)

	cred, err := r.Refresh(context.Background(), nil)
	require.NoError(t, err)
	require.Equal(t, "access", cred.AccessToken)
	require.Empty(t, cred.RefreshToken)
	require.False(t, cred.Expiry.IsZero())

	// the rotated cookie is used by the next refresh
	_, err = r.Refresh(context.Background(), cred)
	require.NoError(t, err)
	require.Equal(t, int64(2), calls.Load())
}

func TestCookieRefresherRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, apioauth2.ErrorResponse{
			Error:            apioauth2.ErrCodeInvalidGrant,
			ErrorDescription: "refresh token expired",
		})
	}))
	defer srv.Close()

	r, err := refresher.NewCookieRefresher(srv.URL, newJarClient(t))
	require.NoError(t, err)

	_, err = r.Refresh(context.Background(), nil)
	require.ErrorIs(t, err, refresher.ErrRefreshRejected)

	var rejected *refresher.RejectedError
	require.ErrorAs(t, err, &rejected)
	require.Equal(t, http.StatusUnauthorized, rejected.StatusCode)
	require.Equal(t, apioauth2.ErrCodeInvalidGrant, rejected.Code)
	require.Equal(t, "refresh token expired", rejected.Description)
}

func TestCookieRefresherNeedsJar(t *testing.T) {
	_, err := refresher.NewCookieRefresher("http://localhost/auth/refresh", &http.Client{})
	require.ErrorIs(t, err, refresher.ErrNoCookieJar)
}

func TestCookieRefresherEmptyAccessToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, apioauth2.TokenResponse{})
	}))
	defer srv.Close()

	r, err := refresher.NewCookieRefresher(srv.URL, newJarClient(t))
	require.NoError(t, err)
	_, err = r.Refresh(context.Background(), nil)
	require.Error(t, err)
}

func TestCookieLogin(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		if r.PostForm.Get("username") != "ana" || r.PostForm.Get("password") != "pw" {
			writeJSON(w, http.StatusUnauthorized, apioauth2.ErrorResponse{Error: apioauth2.ErrCodeUnauthorized})
			return
		}
		http.SetCookie(w, &http.Cookie{Name: "refresh_token", Value: "c1", Path: "/"})
		writeJSON(w, http.StatusOK, apioauth2.TokenResponse{AccessToken: "first", ExpiresIn: 60})
	}))
	defer srv.Close()

	client := newJarClient(t)
	cred, err := refresher.CookieLogin(context.Background(), client, srv.URL+"/auth/login", "ana", "pw")
	require.NoError(t, err)
	require.Equal(t, "first", cred.AccessToken)

	u, _ := url.Parse(srv.URL)
	require.Len(t, client.Jar.Cookies(u), 1)

	_, err = refresher.CookieLogin(context.Background(), client, srv.URL+"/auth/login", "ana", "wrong")
	require.ErrorIs(t, err, refresher.ErrRefreshRejected)
}

// tokenServer is a minimal refresh_token grant endpoint that rotates on every call.
func tokenServer(t *testing.T, refreshToken *string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	var srv *httptest.Server
	mux.HandleFunc("/.well-known/openid-configuration", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"issuer":                 srv.URL,
			"authorization_endpoint": srv.URL + "/oauth2/authorize",
			"token_endpoint":         srv.URL + "/oauth2/token",
			"jwks_uri":               srv.URL + "/.well-known/jwks.json",
		})
	})
	mux.HandleFunc("/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		id, secret, ok := r.BasicAuth()
		if !ok || id != "travel-admin" || secret != "s3cret" {
			writeJSON(w, http.StatusUnauthorized, apioauth2.ErrorResponse{Error: apioauth2.ErrCodeInvalidClient})
			return
		}
		if r.PostForm.Get("grant_type") != string(apioauth2.RefreshTokenGrant) || r.PostForm.Get("refresh_token") != *refreshToken {
			writeJSON(w, http.StatusBadRequest, apioauth2.ErrorResponse{Error: apioauth2.ErrCodeInvalidGrant, ErrorDescription: "refresh token reused"})
			return
		}
		*refreshToken += "+"
		writeJSON(w, http.StatusOK, apioauth2.TokenResponse{
			AccessToken:  "admin-access",
			TokenType:    "Bearer",
			ExpiresIn:    300,
			RefreshToken: *refreshToken,
		})
	})
	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestOAuth2RefresherRotation(t *testing.T) {
	current := "r0"
	srv := tokenServer(t, &current)

	r := refresher.NewOAuth2Refresher(refresher.StaticConfig(srv.URL+"/oauth2/token", "travel-admin", "s3cret"), srv.Client())

	cred, err := r.Refresh(context.Background(), &credentials.Credential{AccessToken: "old", RefreshToken: "r0"})
	require.NoError(t, err)
	require.Equal(t, "admin-access", cred.AccessToken)
	require.Equal(t, "r0+", cred.RefreshToken)
	require.False(t, cred.Expiry.IsZero())

	// the old refresh token is dead after rotation
	_, err = r.Refresh(context.Background(), &credentials.Credential{RefreshToken: "r0"})
	require.ErrorIs(t, err, refresher.ErrRefreshRejected)

	var rejected *refresher.RejectedError
	require.ErrorAs(t, err, &rejected)
	require.Equal(t, http.StatusBadRequest, rejected.StatusCode)
	require.Equal(t, apioauth2.ErrCodeInvalidGrant, rejected.Code)
}

func TestOAuth2RefresherWithoutRefreshToken(t *testing.T) {
	r := refresher.NewOAuth2Refresher(refresher.StaticConfig("http://localhost/token", "c", "s"), nil)

	_, err := r.Refresh(context.Background(), nil)
	require.ErrorIs(t, err, refresher.ErrNoRefreshToken)

	_, err = r.Refresh(context.Background(), &credentials.Credential{AccessToken: "a"})
	require.ErrorIs(t, err, refresher.ErrNoRefreshToken)
}

func TestDiscoverConfig(t *testing.T) {
	current := "r0"
	srv := tokenServer(t, &current)

	cfg, err := refresher.DiscoverConfig(context.Background(), srv.URL, "travel-admin", "s3cret", srv.Client())
	require.NoError(t, err)
	require.Equal(t, srv.URL+"/oauth2/token", cfg.Endpoint.TokenURL)

	cred, err := refresher.NewOAuth2Refresher(cfg, srv.Client()).Refresh(context.Background(), &credentials.Credential{RefreshToken: "r0"})
	require.NoError(t, err)
	require.Equal(t, "r0+", cred.RefreshToken)
}

func TestDiscoverConfigIssuerMismatch(t *testing.T) {
	current := "r0"
	srv := tokenServer(t, &current)

	_, err := refresher.DiscoverConfig(context.Background(), srv.URL+"/other", "travel-admin", "s3cret", srv.Client())
	require.Error(t, err)
}
