package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/jrsteele09/go-travel-session/clients"
	"github.com/jrsteele09/go-travel-session/credentials"
	apperrors "github.com/jrsteele09/go-travel-session/internal/errors"
	apioauth2 "github.com/jrsteele09/go-travel-session/oauth2"
	"github.com/jrsteele09/go-travel-session/token/jwt"
	"github.com/rs/zerolog/log"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// ContextKeyClaims stores the validated access token claims
	ContextKeyClaims ContextKey = "claims"
	// ContextKeyClient stores the authenticated OAuth2 client
	ContextKeyClient ContextKey = "client"
)

// RequireRole validates the Bearer access token and checks its role.
// A missing, malformed or expired token is a 401, which the session client
// answers with a refresh. A valid token for the wrong role is a 403.
func (s *Server) RequireRole(role credentials.Role) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeUnauthorized(w, "Missing Authorization header")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				writeUnauthorized(w, "Invalid Authorization header format")
				return
			}

			claims, err := s.tokens.Inspect(parts[1])
			if err != nil {
				description := "Invalid token"
				if apperrors.Is(err, apperrors.ErrTokenExpired) {
					description = "Token expired"
				}
				log.Debug().Err(err).Str("path", r.URL.Path).Msg("Access token rejected")
				writeUnauthorized(w, description)
				return
			}

			if claims.Role != role.String() {
				writeJSONError(w, "forbidden", apperrors.ErrForbiddenRole.Error(), http.StatusForbidden)
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyClaims, claims)
			next(w, r.WithContext(ctx))
		}
	}
}

// RequireClientAuth validates client credentials for the token endpoint.
// Supports both HTTP Basic Auth and POST body client_id/client_secret
func (s *Server) RequireClientAuth() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			clientID, clientSecret, ok := r.BasicAuth()
			if !ok {
				if err := r.ParseForm(); err == nil {
					clientID = r.PostFormValue("client_id")
					clientSecret = r.PostFormValue("client_secret")
				}
			}

			if clientID == "" {
				w.Header().Set("WWW-Authenticate", `Basic realm="OAuth2 Client Authentication"`)
				writeJSONError(w, apioauth2.ErrCodeInvalidClient, "Client authentication required", http.StatusUnauthorized)
				return
			}

			client, err := s.repos.Clients.Get(clientID)
			if err != nil || !client.ValidateSecret(clientSecret) {
				w.Header().Set("WWW-Authenticate", `Basic realm="OAuth2 Client Authentication"`)
				writeJSONError(w, apioauth2.ErrCodeInvalidClient, apperrors.ErrInvalidClient.Error(), http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyClient, client)
			next(w, r.WithContext(ctx))
		}
	}
}

func claimsFromContext(ctx context.Context) *jwt.AccessClaims {
	claims, _ := ctx.Value(ContextKeyClaims).(*jwt.AccessClaims)
	return claims
}

func clientFromContext(ctx context.Context) *clients.Client {
	client, _ := ctx.Value(ContextKeyClient).(*clients.Client)
	return client
}

func writeUnauthorized(w http.ResponseWriter, description string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
	writeJSONError(w, apioauth2.ErrCodeUnauthorized, description, http.StatusUnauthorized)
}
