package refresher

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/jrsteele09/go-travel-session/credentials"
	"github.com/jrsteele09/go-travel-session/sessions"
	"golang.org/x/oauth2"
)

// OAuth2Refresher refreshes an admin session with the refresh_token grant.
// The server rotates the refresh token on every exchange, so the returned
// credential carries the new one and the store replaces the old.
type OAuth2Refresher struct {
	config *oauth2.Config
	client *http.Client
}

var _ sessions.Refresher = (*OAuth2Refresher)(nil)

// NewOAuth2Refresher uses client for token requests. A nil client means http.DefaultClient.
func NewOAuth2Refresher(config *oauth2.Config, client *http.Client) *OAuth2Refresher {
	return &OAuth2Refresher{config: config, client: client}
}

func (r *OAuth2Refresher) Refresh(ctx context.Context, current *credentials.Credential) (*credentials.Credential, error) {
	if current == nil || current.RefreshToken == "" {
		return nil, fmt.Errorf("[OAuth2Refresher Refresh] %w", ErrNoRefreshToken)
	}

	// An empty access token is never Valid, so the source always hits the token endpoint.
	src := r.config.TokenSource(r.context(ctx), &oauth2.Token{RefreshToken: current.RefreshToken})
	tok, err := src.Token()
	if err != nil {
		return nil, fmt.Errorf("[OAuth2Refresher Refresh] %w", rejection(err))
	}
	return credentials.FromOAuth2Token(tok), nil
}

// PasswordLogin seeds an admin session with the password grant.
func (r *OAuth2Refresher) PasswordLogin(ctx context.Context, username, password string) (*credentials.Credential, error) {
	tok, err := r.config.PasswordCredentialsToken(r.context(ctx), username, password)
	if err != nil {
		return nil, fmt.Errorf("[OAuth2Refresher PasswordLogin] %w", rejection(err))
	}
	return credentials.FromOAuth2Token(tok), nil
}

func (r *OAuth2Refresher) context(ctx context.Context) context.Context {
	if r.client == nil {
		return ctx
	}
	return context.WithValue(ctx, oauth2.HTTPClient, r.client)
}

// rejection maps an oauth2.RetrieveError to a RejectedError. Transport errors pass through.
func rejection(err error) error {
	var re *oauth2.RetrieveError
	if !errors.As(err, &re) {
		return err
	}
	rejected := &RejectedError{Code: re.ErrorCode, Description: re.ErrorDescription}
	if re.Response != nil {
		rejected.StatusCode = re.Response.StatusCode
	}
	return rejected
}

// DiscoverConfig builds the admin oauth2.Config from the issuer's OpenID
// discovery document.
func DiscoverConfig(ctx context.Context, issuer, clientID, clientSecret string, client *http.Client) (*oauth2.Config, error) {
	if client != nil {
		ctx = oidc.ClientContext(ctx, client)
	}
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("[refresher DiscoverConfig] failed to create OIDC provider: %w", err)
	}

	endpoint := provider.Endpoint()
	endpoint.AuthStyle = oauth2.AuthStyleInHeader
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     endpoint,
		Scopes:       []string{oidc.ScopeOpenID, oidc.ScopeOfflineAccess},
	}, nil
}

// StaticConfig builds the admin oauth2.Config for a known token URL, skipping discovery.
func StaticConfig(tokenURL, clientID, clientSecret string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint: oauth2.Endpoint{
			TokenURL:  tokenURL,
			AuthStyle: oauth2.AuthStyleInHeader,
		},
	}
}
