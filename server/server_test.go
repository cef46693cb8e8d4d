package server_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jrsteele09/go-travel-session/credentials"
	"github.com/jrsteele09/go-travel-session/gateway"
	"github.com/jrsteele09/go-travel-session/internal/config"
	apioauth2 "github.com/jrsteele09/go-travel-session/oauth2"
	"github.com/jrsteele09/go-travel-session/refresher"
	"github.com/jrsteele09/go-travel-session/server"
	"github.com/jrsteele09/go-travel-session/sessions"
	"github.com/jrsteele09/go-travel-session/token/jwt"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

const (
	devPassword  = "travel-dev"
	adminClient  = "travel-admin"
	adminSecret  = "travel-admin-dev"
	clockForward = 10 * time.Minute
)

func newTestServer(t *testing.T) (*server.Server, *httptest.Server) {
	t.Helper()
	t.Setenv("ENV", "TEST")

	var handler http.Handler
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handler.ServeHTTP(w, r)
	}))
	t.Cleanup(ts.Close)

	s, err := server.New(config.New(), server.WithIssuer(ts.URL), server.WithMetricsRegistry(prometheus.NewRegistry()))
	require.NoError(t, err)
	handler = s
	return s, ts
}

// advanceClock moves the token clock forward so every issued access token is expired.
func advanceClock(t *testing.T, d time.Duration) {
	t.Helper()
	prev := jwt.NowTimeFunc
	jwt.NowTimeFunc = func() time.Time { return prev().Add(d) }
	t.Cleanup(func() { jwt.NowTimeFunc = time.Now })
}

func postForm(t *testing.T, client *http.Client, target string, form url.Values, basicUser, basicPass string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if basicUser != "" {
		req.SetBasicAuth(basicUser, basicPass)
	}
	resp, err := client.Do(req)
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func getWithToken(t *testing.T, target, token string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, target, nil)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func TestDiscoveryAndJWKS(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + server.RouteWellKnownOpenIDConfig)
	require.NoError(t, err)
	doc := decode[map[string]any](t, resp)
	require.Equal(t, ts.URL, doc["issuer"])
	require.Equal(t, ts.URL+server.RouteOAuth2Token, doc["token_endpoint"])

	resp, err = http.Get(ts.URL + server.RouteWellKnownJWKS)
	require.NoError(t, err)
	jwks := decode[map[string][]map[string]string](t, resp)
	require.Len(t, jwks["keys"], 1)
	require.Equal(t, "RS256", jwks["keys"][0]["alg"])
}

func TestTokenEndpointPasswordAndRotation(t *testing.T) {
	_, ts := newTestServer(t)
	tokenURL := ts.URL + server.RouteOAuth2Token

	resp := postForm(t, http.DefaultClient, tokenURL, url.Values{
		"grant_type": {"password"}, "username": {server.DevAdminUsername}, "password": {devPassword},
	}, adminClient, adminSecret)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	first := decode[apioauth2.TokenResponse](t, resp)
	require.NotEmpty(t, first.RefreshToken)
	require.Equal(t, "admin", first.Role)
	require.Equal(t, 300, first.ExpiresIn)

	resp = postForm(t, http.DefaultClient, tokenURL, url.Values{
		"grant_type": {"refresh_token"}, "refresh_token": {first.RefreshToken},
	}, adminClient, adminSecret)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	second := decode[apioauth2.TokenResponse](t, resp)
	require.NotEqual(t, first.RefreshToken, second.RefreshToken)

	// replaying the first token is reuse: rejected, and the family is revoked
	resp = postForm(t, http.DefaultClient, tokenURL, url.Values{
		"grant_type": {"refresh_token"}, "refresh_token": {first.RefreshToken},
	}, adminClient, adminSecret)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, apioauth2.ErrCodeInvalidGrant, decode[apioauth2.ErrorResponse](t, resp).Error)

	resp = postForm(t, http.DefaultClient, tokenURL, url.Values{
		"grant_type": {"refresh_token"}, "refresh_token": {second.RefreshToken},
	}, adminClient, adminSecret)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestTokenEndpointRejects(t *testing.T) {
	_, ts := newTestServer(t)
	tokenURL := ts.URL + server.RouteOAuth2Token

	tests := []struct {
		name       string
		form       url.Values
		user, pass string
		status     int
		code       string
	}{
		{"no client", url.Values{"grant_type": {"refresh_token"}}, "", "", http.StatusUnauthorized, apioauth2.ErrCodeInvalidClient},
		{"wrong secret", url.Values{"grant_type": {"refresh_token"}}, adminClient, "nope", http.StatusUnauthorized, apioauth2.ErrCodeInvalidClient},
		{"unsupported grant", url.Values{"grant_type": {"client_credentials"}}, adminClient, adminSecret, http.StatusBadRequest, apioauth2.ErrCodeUnsupported},
		{"unknown refresh token", url.Values{"grant_type": {"refresh_token"}, "refresh_token": {"abc"}}, adminClient, adminSecret, http.StatusBadRequest, apioauth2.ErrCodeInvalidGrant},
		{"customer via admin client", url.Values{"grant_type": {"password"}, "username": {server.DevCustomerUsername}, "password": {devPassword}}, adminClient, adminSecret, http.StatusBadRequest, apioauth2.ErrCodeInvalidGrant},
		{"bad password", url.Values{"grant_type": {"password"}, "username": {server.DevAdminUsername}, "password": {"x"}}, adminClient, adminSecret, http.StatusBadRequest, apioauth2.ErrCodeInvalidGrant},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postForm(t, http.DefaultClient, tokenURL, tt.form, tt.user, tt.pass)
			require.Equal(t, tt.status, resp.StatusCode)
			require.Equal(t, tt.code, decode[apioauth2.ErrorResponse](t, resp).Error)
		})
	}
}

func TestCookieLoginRefreshAndLogout(t *testing.T) {
	_, ts := newTestServer(t)
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	client := &http.Client{Jar: jar}

	resp := postForm(t, client, ts.URL+server.RouteAuthLogin, url.Values{
		"username": {server.DevCustomerUsername}, "password": {devPassword},
	}, "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	login := decode[apioauth2.TokenResponse](t, resp)
	require.Empty(t, login.RefreshToken, "customer refresh token stays in the cookie")
	require.Equal(t, "user", login.Role)

	refreshURL, _ := url.Parse(ts.URL + server.RouteAuthRefresh)
	cookies := jar.Cookies(refreshURL)
	require.Len(t, cookies, 1)
	before := cookies[0].Value

	resp = postForm(t, client, refreshURL.String(), nil, "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotEmpty(t, decode[apioauth2.TokenResponse](t, resp).AccessToken)
	require.NotEqual(t, before, jar.Cookies(refreshURL)[0].Value)

	resp = postForm(t, client, ts.URL+server.RouteAuthLogout, nil, "", "")
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()
	require.Empty(t, jar.Cookies(refreshURL))

	resp = postForm(t, client, refreshURL.String(), nil, "", "")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}

func TestRequireRole(t *testing.T) {
	_, ts := newTestServer(t)

	resp := postForm(t, http.DefaultClient, ts.URL+server.RouteAuthLogin, url.Values{
		"username": {server.DevCustomerUsername}, "password": {devPassword},
	}, "", "")
	userToken := decode[apioauth2.TokenResponse](t, resp).AccessToken

	resp = getWithToken(t, ts.URL+server.RouteAPIDestinations, userToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[map[string][]server.Destination](t, resp)
	require.NotEmpty(t, body["destinations"])

	resp = getWithToken(t, ts.URL+server.RouteAdminAPIUsers, userToken)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	resp = getWithToken(t, ts.URL+server.RouteAPIGuides, "")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Contains(t, resp.Header.Get("WWW-Authenticate"), "invalid_token")
	resp.Body.Close()

	advanceClock(t, clockForward)
	resp = getWithToken(t, ts.URL+server.RouteAPIGuides, userToken)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, "Token expired", decode[apioauth2.ErrorResponse](t, resp).ErrorDescription)
}

func TestMetricsEndpoint(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + server.RouteWellKnownJWKS)
	require.NoError(t, err)
	resp.Body.Close()

	resp, err = http.Get(ts.URL + server.RouteMetrics)
	require.NoError(t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(b), "travel_stub_requests_total")
}

// TestSessionsEndToEnd drives both roles through the gateway against the stub
// server: login, expiry, concurrent refresh, role isolation and a denied refresh.
func TestSessionsEndToEnd(t *testing.T) {
	_, ts := newTestServer(t)
	ctx := context.Background()

	// customer: cookie session
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	jarClient := &http.Client{Jar: jar}
	userCred, err := refresher.CookieLogin(ctx, jarClient, ts.URL+server.RouteAuthLogin, server.DevCustomerUsername, devPassword)
	require.NoError(t, err)
	cookieRefresher, err := refresher.NewCookieRefresher(ts.URL+server.RouteAuthRefresh, jarClient)
	require.NoError(t, err)

	// admin: OAuth2 refresh grant found through discovery
	oauthCfg, err := refresher.DiscoverConfig(ctx, ts.URL, adminClient, adminSecret, ts.Client())
	require.NoError(t, err)
	oauthRefresher := refresher.NewOAuth2Refresher(oauthCfg, ts.Client())
	adminCred, err := oauthRefresher.PasswordLogin(ctx, server.DevAdminUsername, devPassword)
	require.NoError(t, err)
	require.NotEmpty(t, adminCred.RefreshToken)

	userStore := credentials.NewMemoryStore(userCred)
	adminStore := credentials.NewMemoryStore(adminCred)
	userSession, err := sessions.New(credentials.RoleUser, userStore, cookieRefresher)
	require.NoError(t, err)
	adminSession, err := sessions.New(credentials.RoleAdmin, adminStore, oauthRefresher)
	require.NoError(t, err)
	registry, err := sessions.NewRegistry(userSession, adminSession)
	require.NoError(t, err)
	gw := gateway.New(registry, gateway.WithCookieJar(credentials.RoleUser, jar))

	get := func(role credentials.Role, path string) (*http.Response, error) {
		req, err := http.NewRequest(http.MethodGet, ts.URL+path, nil)
		if err != nil {
			return nil, err
		}
		return gw.Send(ctx, role, req)
	}

	resp, err := get(credentials.RoleUser, server.RouteAPIDestinations)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
	require.Zero(t, userSession.Snapshot().CompletedCycles)

	// every access token is now expired
	advanceClock(t, clockForward)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	statuses := make(chan int, 8)
	for i := 0; i < 8; i++ {
		role, path := credentials.RoleUser, server.RouteAPIGuides
		if i%2 == 1 {
			role, path = credentials.RoleAdmin, server.RouteAdminAPIUsers
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := get(role, path)
			if err != nil {
				errs <- err
				return
			}
			statuses <- resp.StatusCode
			resp.Body.Close()
		}()
	}
	wg.Wait()
	close(errs)
	close(statuses)
	for err := range errs {
		require.NoError(t, err)
	}
	for status := range statuses {
		require.Equal(t, http.StatusOK, status)
	}
	require.GreaterOrEqual(t, userSession.Snapshot().CompletedCycles, uint64(1))
	require.GreaterOrEqual(t, adminSession.Snapshot().CompletedCycles, uint64(1))

	stored, err := adminStore.Get(ctx)
	require.NoError(t, err)
	require.NotEqual(t, adminCred.RefreshToken, stored.RefreshToken, "admin refresh token rotated")

	// a customer token on an admin route is a 403 and is not refreshed
	cycles := userSession.Snapshot().CompletedCycles
	resp, err = get(credentials.RoleUser, server.RouteAdminAPIUsers)
	require.NoError(t, err)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()
	require.Equal(t, cycles, userSession.Snapshot().CompletedCycles)

	// after logout the cookie is gone, so the next refresh is denied
	logout := postForm(t, jarClient, ts.URL+server.RouteAuthLogout, nil, "", "")
	logout.Body.Close()
	advanceClock(t, clockForward)

	_, err = get(credentials.RoleUser, server.RouteAPIGuides)
	require.ErrorIs(t, err, sessions.ErrRefreshDenied)
	require.ErrorIs(t, err, refresher.ErrRefreshRejected)

	// the admin session is unaffected
	resp, err = get(credentials.RoleAdmin, server.RouteAdminAPIUsers)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}

func TestCorsPreflight(t *testing.T) {
	_, ts := newTestServer(t)

	req, err := http.NewRequest(http.MethodOptions, ts.URL+server.RouteAuthRefresh, nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:3000")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "http://localhost:3000", resp.Header.Get("Access-Control-Allow-Origin"))
	require.Equal(t, "true", resp.Header.Get("Access-Control-Allow-Credentials"))

	req.Header.Set("Origin", "http://evil.example")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))
}
