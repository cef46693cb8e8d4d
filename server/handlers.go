package server

import (
	"encoding/json"
	"net/http"

	"github.com/jrsteele09/go-travel-session/credentials"
	apperrors "github.com/jrsteele09/go-travel-session/internal/errors"
	apioauth2 "github.com/jrsteele09/go-travel-session/oauth2"
	"github.com/jrsteele09/go-travel-session/token/refresh"
	"github.com/rs/zerolog/log"
)

// Login processes a username and password form. Customers get their refresh
// token as an HttpOnly cookie; admins get it in the body, like the token endpoint.
func (s *Server) Login() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			writeJSONError(w, apioauth2.ErrCodeInvalidRequest, "Invalid form data", http.StatusBadRequest)
			return
		}

		username := r.PostFormValue("username")
		user, err := s.repos.Users.GetByUsername(username)
		if err != nil {
			// Don't reveal if user exists or not
			writeJSONError(w, apioauth2.ErrCodeUnauthorized, apperrors.ErrInvalidCredentials.Error(), http.StatusUnauthorized)
			return
		}
		if _, err := s.authenticate(username, r.PostFormValue("password"), user.Role); err != nil {
			writeJSONError(w, apioauth2.ErrCodeUnauthorized, apperrors.ErrInvalidCredentials.Error(), http.StatusUnauthorized)
			return
		}

		clientID := ""
		if user.Role == credentials.RoleAdmin {
			clientID = s.config.GetAdminClientID()
		}
		rt, err := s.refresh.Create(user.ID, clientID, user.Role)
		if err != nil {
			writeJSONError(w, "server_error", err.Error(), http.StatusInternalServerError)
			return
		}

		resp, err := s.tokenResponse(rt)
		if err != nil {
			writeJSONError(w, "server_error", err.Error(), http.StatusInternalServerError)
			return
		}
		if user.Role == credentials.RoleUser {
			s.setRefreshCookie(w, rt)
			resp.RefreshToken = ""
		}

		log.Info().Str("user_id", user.ID).Str("role", user.Role.String()).Msg("Dev login")
		writeTokenResponse(w, resp)
	}
}

// CookieRefresh rotates the customer's refresh cookie and returns a new access token.
func (s *Server) CookieRefresh() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(refreshCookieName)
		if err != nil || cookie.Value == "" {
			writeJSONError(w, apioauth2.ErrCodeUnauthorized, "Missing refresh cookie", http.StatusUnauthorized)
			return
		}

		rt, err := s.refresh.Rotate(cookie.Value, "")
		if err == nil && rt.Role != credentials.RoleUser {
			err = apperrors.ErrForbiddenRole
		}
		s.recordRotation("cookie", err)
		if err != nil {
			log.Info().Err(err).Msg("Cookie refresh rejected")
			s.clearRefreshCookie(w)
			writeJSONError(w, apioauth2.ErrCodeInvalidGrant, err.Error(), http.StatusUnauthorized)
			return
		}

		resp, err := s.tokenResponse(rt)
		if err != nil {
			writeJSONError(w, "server_error", err.Error(), http.StatusInternalServerError)
			return
		}
		s.setRefreshCookie(w, rt)
		resp.RefreshToken = ""
		writeTokenResponse(w, resp)
	}
}

// Logout revokes the refresh cookie's whole family.
func (s *Server) Logout() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cookie, err := r.Cookie(refreshCookieName); err == nil {
			if err := s.refresh.Revoke(cookie.Value); err != nil {
				log.Warn().Err(err).Msg("Failed to revoke refresh token")
			}
		}
		s.clearRefreshCookie(w)
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) setRefreshCookie(w http.ResponseWriter, rt *refresh.StoredRefreshToken) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    rt.Token,
		Path:     "/auth",
		MaxAge:   int(s.config.GetRefreshTokenTTL().Seconds()),
		HttpOnly: true,
		Secure:   s.env == "PROD", // Only secure in production
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearRefreshCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    "",
		Path:     "/auth",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.env == "PROD",
		SameSite: http.SameSiteLaxMode,
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	_ = json.NewEncoder(w).Encode(v)
}
