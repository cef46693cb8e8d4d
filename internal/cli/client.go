package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"strings"

	"github.com/jrsteele09/go-travel-session/credentials"
	"github.com/jrsteele09/go-travel-session/credentials/redisstore"
	"github.com/jrsteele09/go-travel-session/gateway"
	"github.com/jrsteele09/go-travel-session/internal/config"
	"github.com/jrsteele09/go-travel-session/metrics"
	"github.com/jrsteele09/go-travel-session/refresher"
	"github.com/jrsteele09/go-travel-session/sessions"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

const loginPath = "/auth/login"

// Dev fixture usernames, one per role.
var defaultUsernames = map[credentials.Role]string{
	credentials.RoleUser:  "traveller",
	credentials.RoleAdmin: "admin",
}

// Client is one process worth of session plumbing: a Session per role, the
// gateway in front of them and the refresh metrics.
type Client struct {
	cfg        config.Config
	httpClient *http.Client
	rdb        *redis.Client

	Registry  *sessions.Registry
	Gateway   *gateway.Gateway
	Collector *metrics.Collector

	oauth  *refresher.OAuth2Refresher
	stores map[credentials.Role]credentials.Store
}

// NewClient builds the sessions described by cfg. Customer credentials are always
// kept in memory because their refresh cookie lives in this process's jar.
// Admin credentials go to Redis when CREDENTIAL_STORE=redis.
func NewClient(ctx context.Context, cfg config.Config, reg prometheus.Registerer) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("[cli NewClient] cookie jar: %w", err)
	}
	c := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Jar: jar},
		Collector:  metrics.NewCollector(),
	}
	if reg != nil {
		if err := c.Collector.Register(reg); err != nil {
			return nil, fmt.Errorf("[cli NewClient] metrics: %w", err)
		}
	}

	adminStore, err := c.adminStore()
	if err != nil {
		return nil, err
	}
	oauthConfig, err := c.adminOAuthConfig(ctx)
	if err != nil {
		return nil, err
	}
	c.oauth = refresher.NewOAuth2Refresher(oauthConfig, http.DefaultClient)

	cookieRefresher, err := refresher.NewCookieRefresher(cfg.GetUserRefreshURL(), c.httpClient)
	if err != nil {
		return nil, err
	}

	opts := []sessions.Option{
		sessions.WithObserver(c.Collector),
		sessions.WithRefreshTimeout(cfg.GetRefreshTimeout()),
	}
	c.stores = map[credentials.Role]credentials.Store{
		credentials.RoleUser:  credentials.NewMemoryStore(nil),
		credentials.RoleAdmin: adminStore,
	}
	userSession, err := sessions.New(credentials.RoleUser, c.stores[credentials.RoleUser], cookieRefresher, opts...)
	if err != nil {
		return nil, err
	}
	adminSession, err := sessions.New(credentials.RoleAdmin, adminStore, c.oauth, opts...)
	if err != nil {
		return nil, err
	}
	if c.Registry, err = sessions.NewRegistry(userSession, adminSession); err != nil {
		return nil, err
	}

	c.Gateway = gateway.New(c.Registry,
		gateway.WithCookieJar(credentials.RoleUser, jar),
		gateway.WithRetryObserver(c.Collector),
	)
	return c, nil
}

func (c *Client) adminStore() (credentials.Store, error) {
	switch c.cfg.GetCredentialStore() {
	case config.StoreMemory:
		return credentials.NewMemoryStore(nil), nil
	case config.StoreRedis:
		c.rdb = redis.NewClient(&redis.Options{Addr: c.cfg.GetRedisAddr()})
		return redisstore.New(c.rdb, c.cfg.GetRedisKeyPrefix(), credentials.RoleAdmin), nil
	default:
		return nil, fmt.Errorf("[cli adminStore] unknown credential store %q", c.cfg.GetCredentialStore())
	}
}

// adminOAuthConfig prefers an explicit token URL and falls back to discovery
// against the admin issuer, or the API base URL when no issuer is set.
func (c *Client) adminOAuthConfig(ctx context.Context) (*oauth2.Config, error) {
	if tokenURL := c.cfg.GetAdminTokenURL(); tokenURL != "" {
		return refresher.StaticConfig(tokenURL, c.cfg.GetAdminClientID(), c.cfg.GetAdminClientSecret()), nil
	}
	issuer := c.cfg.GetAdminIssuer()
	if issuer == "" {
		issuer = c.cfg.GetAPIBaseURL()
	}
	return refresher.DiscoverConfig(ctx, issuer, c.cfg.GetAdminClientID(), c.cfg.GetAdminClientSecret(), http.DefaultClient)
}

// Login signs in as the dev fixture for role and stores the credential.
// An empty username selects the role's default fixture.
func (c *Client) Login(ctx context.Context, role credentials.Role, username, password string) (*credentials.Credential, error) {
	if username == "" {
		username = defaultUsernames[role]
	}
	if password == "" {
		password = c.cfg.GetDevPassword()
	}

	var (
		cred *credentials.Credential
		err  error
	)
	switch role {
	case credentials.RoleUser:
		cred, err = refresher.CookieLogin(ctx, c.httpClient, c.url(loginPath), username, password)
	case credentials.RoleAdmin:
		cred, err = c.oauth.PasswordLogin(ctx, username, password)
	default:
		return nil, fmt.Errorf("[cli Login] %s: %w", role, sessions.ErrUnknownRole)
	}
	if err != nil {
		return nil, err
	}

	if err := c.stores[role].Set(ctx, *cred); err != nil {
		return nil, fmt.Errorf("[cli Login] store credential: %w", err)
	}
	log.Debug().Str("role", role.String()).Time("expiry", cred.Expiry).Msg("Logged in")
	return cred, nil
}

// EnsureLogin logs in only when role has no stored credential.
func (c *Client) EnsureLogin(ctx context.Context, role credentials.Role) error {
	session, err := c.Registry.Get(role)
	if err != nil {
		return err
	}
	if _, err := session.Credential(ctx); err == nil {
		return nil
	}
	_, err = c.Login(ctx, role, "", "")
	return err
}

// SpoilAccessToken replaces the stored access token with one the server rejects,
// so the next requests for role all take the refresh path.
func (c *Client) SpoilAccessToken(ctx context.Context, role credentials.Role) error {
	store, ok := c.stores[role]
	if !ok {
		return fmt.Errorf("[cli SpoilAccessToken] %s: %w", role, sessions.ErrUnknownRole)
	}
	cred, err := store.Get(ctx)
	if err != nil {
		return err
	}
	cred.AccessToken = "spoiled." + cred.AccessToken
	return store.Set(ctx, *cred)
}

// Get sends one authenticated GET for role through the gateway.
func (c *Client) Get(ctx context.Context, role credentials.Role, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url(path), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.Gateway.Send(ctx, role, req)
	if errors.Is(err, sessions.ErrRefreshDenied) {
		c.endSession(role)
	}
	return resp, err
}

// endSession clears the role's stored credential after a denied refresh.
func (c *Client) endSession(role credentials.Role) {
	session, err := c.Registry.Get(role)
	if err != nil {
		return
	}
	if err := session.EndSession(context.Background()); err != nil {
		log.Warn().Err(err).Str("role", role.String()).Msg("Failed to clear credential")
	}
}

// Close waits for in-flight refreshes and releases the Redis connection.
func (c *Client) Close() error {
	c.Registry.Wait()
	if c.rdb != nil {
		return c.rdb.Close()
	}
	return nil
}

func (c *Client) url(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return strings.TrimSuffix(c.cfg.GetAPIBaseURL(), "/") + "/" + strings.TrimPrefix(path, "/")
}
