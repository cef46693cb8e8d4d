package oauth2

// TokenResponse is the body returned by both refresh endpoints.
// The admin token endpoint follows RFC 6749 section 5.1. The user cookie
// endpoint returns the same shape without a refresh token: the refresh
// credential travels as an HttpOnly cookie and is never visible to the client.
type TokenResponse struct {
	// AccessToken is the JWT sent as "Authorization: Bearer <access_token>".
	// Lifespan: short (minutes). Expiry is in the JWT "exp" claim.
	AccessToken string `json:"access_token"`

	// TokenType is always "Bearer" in this implementation.
	TokenType string `json:"token_type,omitempty"`

	// ExpiresIn is the lifetime of the access token in seconds.
	// It is a hint. Clients fall back to the "exp" claim when it is absent.
	ExpiresIn int `json:"expires_in,omitempty"`

	// RefreshToken is the rotated refresh token (admin sessions only).
	// The previous refresh token is invalid once this response is issued.
	RefreshToken string `json:"refresh_token,omitempty"`

	// Role is the session role the token was issued for ("user" or "admin").
	Role string `json:"role,omitempty"`
}
