package server

import (
	"encoding/json"
	"net/http"

	"github.com/jrsteele09/go-travel-session/credentials"
	apperrors "github.com/jrsteele09/go-travel-session/internal/errors"
	apioauth2 "github.com/jrsteele09/go-travel-session/oauth2"
	"github.com/jrsteele09/go-travel-session/token/keys"
	"github.com/jrsteele09/go-travel-session/token/refresh"
	"github.com/jrsteele09/go-travel-session/users"
	"github.com/rs/zerolog/log"
)

const (
	contentTypeJSON = "application/json; charset=utf-8"
)

// Rotation result label values.
const (
	rotationRotated  = "rotated"
	rotationRejected = "rejected"
	rotationReused   = "reused"
)

// WellKnownOpenIDConfig serves the OIDC discovery document the admin console
// uses to find the token endpoint.
func (s *Server) WellKnownOpenIDConfig() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		baseURL := s.issuer

		resp := map[string]any{
			"issuer":                 baseURL,
			"authorization_endpoint": baseURL + RouteAuthLogin,
			"token_endpoint":         baseURL + RouteOAuth2Token,
			"jwks_uri":               baseURL + RouteWellKnownJWKS,

			"response_types_supported":              []string{"code"},
			"subject_types_supported":               []string{"public"},
			"id_token_signing_alg_values_supported": []string{keys.RS256},
			"scopes_supported":                      []string{"openid", "offline_access"},

			"token_endpoint_auth_methods_supported": []string{
				"client_secret_basic",
				"client_secret_post",
			},
			"grant_types_supported": []string{
				string(apioauth2.RefreshTokenGrant),
				string(apioauth2.PasswordGrant),
			},
		}

		w.Header().Set("Content-Type", contentTypeJSON)
		w.Header().Set("Cache-Control", "public, max-age=3600") // Cache for 1 hour
		_ = json.NewEncoder(w).Encode(resp)
	}
}

// JWKS returns the JSON Web Key Set used to validate tokens
func (s *Server) JWKS() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jwks, err := s.signer.GetJWKS()
		if err != nil {
			http.Error(w, "Failed to get JWKS: "+err.Error(), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", contentTypeJSON)
		w.Header().Set("Cache-Control", "public, max-age=3600") // Cache for 1 hour
		_ = json.NewEncoder(w).Encode(jwks)
	}
}

// Token is the admin token endpoint. It supports the refresh_token grant,
// which rotates the refresh token, and the password grant for dev logins.
func (s *Server) Token() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			writeJSONError(w, apioauth2.ErrCodeInvalidRequest, "Failed to parse form data", http.StatusBadRequest)
			return
		}
		client := clientFromContext(r.Context())

		var (
			rt  *refresh.StoredRefreshToken
			err error
		)
		switch apioauth2.GrantType(r.PostFormValue("grant_type")) {
		case apioauth2.RefreshTokenGrant:
			rt, err = s.refresh.Rotate(r.PostFormValue("refresh_token"), client.ID)
			s.recordRotation("token", err)
			if err != nil {
				log.Info().Err(err).Str("client_id", client.ID).Msg("Refresh grant rejected")
				writeJSONError(w, apioauth2.ErrCodeInvalidGrant, err.Error(), http.StatusBadRequest)
				return
			}

		case apioauth2.PasswordGrant:
			user, err := s.authenticate(r.PostFormValue("username"), r.PostFormValue("password"), client.Role)
			if err != nil {
				writeJSONError(w, apioauth2.ErrCodeInvalidGrant, err.Error(), http.StatusBadRequest)
				return
			}
			rt, err = s.refresh.Create(user.ID, client.ID, client.Role)
			if err != nil {
				writeJSONError(w, "server_error", err.Error(), http.StatusInternalServerError)
				return
			}

		default:
			writeJSONError(w, apioauth2.ErrCodeUnsupported, "Supported grants: refresh_token, password", http.StatusBadRequest)
			return
		}

		resp, err := s.tokenResponse(rt)
		if err != nil {
			writeJSONError(w, "server_error", err.Error(), http.StatusInternalServerError)
			return
		}
		writeTokenResponse(w, resp)
	}
}

// tokenResponse issues an access token for the session rt belongs to.
func (s *Server) tokenResponse(rt *refresh.StoredRefreshToken) (*apioauth2.TokenResponse, error) {
	access, ttl, err := s.creator.CreateAccessToken(rt.Subject, rt.ClientID, rt.Role)
	if err != nil {
		return nil, err
	}
	return &apioauth2.TokenResponse{
		AccessToken:  access,
		TokenType:    apioauth2.BearerTokenType,
		ExpiresIn:    int(ttl.Seconds()),
		RefreshToken: rt.Token,
		Role:         rt.Role.String(),
	}, nil
}

func (s *Server) recordRotation(endpoint string, err error) {
	result := rotationRotated
	switch {
	case apperrors.Is(err, apperrors.ErrRefreshTokenReused):
		result = rotationReused
	case err != nil:
		result = rotationRejected
	}
	s.metrics.rotations.WithLabelValues(endpoint, result).Inc()
}

// authenticate checks a dev fixture account and that it may act in role.
func (s *Server) authenticate(username, password string, role credentials.Role) (*users.User, error) {
	user, err := s.repos.Users.GetByUsername(username)
	if err != nil || user.Blocked || !user.CheckPassword(password) {
		return nil, apperrors.ErrInvalidCredentials
	}
	if user.Role != role {
		return nil, apperrors.ErrForbiddenRole
	}
	_ = s.repos.Users.SetLoggedIn(user.ID)
	return user, nil
}

func writeTokenResponse(w http.ResponseWriter, resp *apioauth2.TokenResponse) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
	_ = json.NewEncoder(w).Encode(resp)
}

// writeJSONError writes an OAuth2 error response
func writeJSONError(w http.ResponseWriter, errorCode, description string, statusCode int) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(apioauth2.ErrorResponse{
		Error:            errorCode,
		ErrorDescription: description,
	})
}
