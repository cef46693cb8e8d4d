package refresher

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/jrsteele09/go-travel-session/credentials"
	apioauth2 "github.com/jrsteele09/go-travel-session/oauth2"
	"github.com/jrsteele09/go-travel-session/sessions"
)

// maxResponseBytes bounds how much of a refresh response is read.
const maxResponseBytes = 1 << 20

// CookieRefresher refreshes a user session. The refresh credential is an
// HttpOnly cookie held in the client's jar, so the request carries no body and
// the rotated cookie lands back in the jar.
type CookieRefresher struct {
	client *http.Client
	url    string
}

var _ sessions.Refresher = (*CookieRefresher)(nil)

// NewCookieRefresher posts to refreshURL with client. client must have a Jar.
func NewCookieRefresher(refreshURL string, client *http.Client) (*CookieRefresher, error) {
	if client == nil || client.Jar == nil {
		return nil, fmt.Errorf("[refresher NewCookieRefresher] %w", ErrNoCookieJar)
	}
	if _, err := url.Parse(refreshURL); err != nil {
		return nil, fmt.Errorf("[refresher NewCookieRefresher] refresh url: %w", err)
	}
	return &CookieRefresher{client: client, url: refreshURL}, nil
}

// Refresh ignores current: the server identifies the session by its cookie.
func (r *CookieRefresher) Refresh(ctx context.Context, _ *credentials.Credential) (*credentials.Credential, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("[CookieRefresher Refresh] %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("[CookieRefresher Refresh] %w", err)
	}
	defer resp.Body.Close()

	return decodeTokenResponse(resp)
}

// CookieLogin signs a user in with a username and password. The server sets
// the refresh cookie in client's jar and returns the first access token.
func CookieLogin(ctx context.Context, client *http.Client, loginURL, username, password string) (*credentials.Credential, error) {
	form := url.Values{"username": {username}, "password": {password}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, loginURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("[refresher CookieLogin] %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("[refresher CookieLogin] %w", err)
	}
	defer resp.Body.Close()

	return decodeTokenResponse(resp)
}

func decodeTokenResponse(resp *http.Response) (*credentials.Credential, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read refresh response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		rejected := &RejectedError{StatusCode: resp.StatusCode}
		var er apioauth2.ErrorResponse
		if json.Unmarshal(body, &er) == nil {
			rejected.Code = er.Error
			rejected.Description = er.ErrorDescription
		}
		return nil, rejected
	}

	var tr apioauth2.TokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return nil, fmt.Errorf("decode refresh response: %w", err)
	}
	return credentials.FromTokenResponse(tr)
}
