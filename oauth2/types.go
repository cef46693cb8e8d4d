package oauth2

// GrantType identifies the grant presented to the token endpoint.
type GrantType string

const (
	// RefreshTokenGrant exchanges a refresh token for a new access token.
	// Used by: admin sessions, which keep their refresh token in a local store.
	// The refresh token is rotated on every exchange; the old one stops working.
	RefreshTokenGrant GrantType = "refresh_token"

	// PasswordGrant is accepted only by the dev stub server to seed a session.
	// Not part of the refresh contract.
	PasswordGrant GrantType = "password"
)

// TokenType values returned in TokenResponse.TokenType.
const (
	BearerTokenType = "Bearer"
)

// ErrorResponse is the RFC 6749 section 5.2 error body.
// Example: {"error":"invalid_grant","error_description":"refresh token expired"}
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// Standard error codes used by the token and refresh endpoints.
const (
	ErrCodeInvalidRequest = "invalid_request"
	ErrCodeInvalidGrant   = "invalid_grant"
	ErrCodeInvalidClient  = "invalid_client"
	ErrCodeUnauthorized   = "unauthorized"
	ErrCodeUnsupported    = "unsupported_grant_type"
)
