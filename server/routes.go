package server

import (
	"net/http"

	"github.com/jrsteele09/go-travel-session/credentials"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) initRoutes() {
	// Customer login and cookie refresh
	s.RegisterRouteHandler("POST "+RouteAuthLogin, ChainMiddleware(s.Login(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteAuthRefresh, ChainMiddleware(s.CookieRefresh(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteAuthLogout, ChainMiddleware(s.Logout(), s.APIMiddleware()...))

	// OAuth2 / OIDC API routes
	s.RegisterRouteHandler("GET "+RouteWellKnownOpenIDConfig, ChainMiddleware(s.WellKnownOpenIDConfig(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteWellKnownJWKS, ChainMiddleware(s.JWKS(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteOAuth2Token, ChainMiddleware(s.Token(), s.APIMiddleware(s.RequireClientAuth())...))

	// Travel API
	s.RegisterRouteHandler("GET "+RouteAPIDestinations, ChainMiddleware(s.Destinations(), s.APIMiddleware(s.RequireRole(credentials.RoleUser))...))
	s.RegisterRouteHandler("GET "+RouteAPIGuides, ChainMiddleware(s.Guides(), s.APIMiddleware(s.RequireRole(credentials.RoleUser))...))
	s.RegisterRouteHandler("GET "+RouteAdminAPIUsers, ChainMiddleware(s.AdminUsers(), s.APIMiddleware(s.RequireRole(credentials.RoleAdmin))...))

	// CORS preflight for any API route
	s.RegisterRouteHandler("OPTIONS /", ChainMiddleware(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}, s.APIMiddleware()...))

	s.RegisterRouteHandler("GET "+RouteMetrics, promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	s.RegisterRouteFunc("GET "+RouteHealth, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
}
