package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	// Cookie based customer session
	RouteAuthLogin   = "/auth/login"
	RouteAuthRefresh = "/auth/refresh"
	RouteAuthLogout  = "/auth/logout"

	// OAuth2 / OIDC Routes (admin console)
	RouteWellKnownOpenIDConfig = "/.well-known/openid-configuration"
	RouteWellKnownJWKS         = "/.well-known/jwks.json"
	RouteOAuth2Token           = "/oauth2/token"

	// Travel API, customer role
	RouteAPIDestinations = "/api/destinations"
	RouteAPIGuides       = "/api/guides"

	// Travel API, admin role
	RouteAdminAPIUsers = "/admin/api/users"

	RouteMetrics = "/metrics"
	RouteHealth  = "/healthz"
)

// refreshCookieName is the HttpOnly cookie carrying a customer's refresh token.
const refreshCookieName = "refresh_token"
