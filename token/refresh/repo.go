package refresh

import (
	"time"

	"github.com/jrsteele09/go-travel-session/credentials"
)

// StoredRefreshToken is the server side record of a refresh token.
// The client only ever sees Token. Every rotation of a login shares FamilyID,
// so a reused token can revoke the whole chain.
type StoredRefreshToken struct {
	Token    string
	FamilyID string
	Subject  string
	ClientID string
	Role     credentials.Role
	Iat      time.Time
	Used     bool
}

// Repo stores refresh token records keyed by the token string.
type Repo interface {
	Upsert(refreshToken *StoredRefreshToken) error
	Get(token string) (*StoredRefreshToken, error)
	Delete(token string) error
	DeleteFamily(familyID string) (int, error)
	List(offset, limit int) ([]*StoredRefreshToken, error)
}
