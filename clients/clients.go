package clients

import (
	"errors"

	"github.com/jrsteele09/go-travel-session/credentials"
	"github.com/jrsteele09/go-travel-session/users"
)

var ErrClientNotFound = errors.New("client not found")

// Client is an OAuth2 confidential client allowed to use the token endpoint.
// Only the back-office admin console is registered on the dev server.
type Client struct {
	ID          string           `json:"id"`
	Description string           `json:"description"`
	SecretHash  string           `json:"-"`
	Role        credentials.Role `json:"role"` // role of every token issued to this client
}

// NewClient hashes secret with bcrypt.
func NewClient(id, description, secret string, role credentials.Role) (*Client, error) {
	hash, err := users.HashPassword(secret)
	if err != nil {
		return nil, err
	}
	return &Client{ID: id, Description: description, SecretHash: hash, Role: role}, nil
}

func (c *Client) ValidateSecret(secret string) bool {
	return users.CheckPasswordHash(secret, c.SecretHash)
}
