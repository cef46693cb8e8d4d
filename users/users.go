package users

import (
	"errors"
	"time"

	"github.com/jrsteele09/go-travel-session/credentials"
	"golang.org/x/crypto/bcrypt"
)

var ErrUserNotFound = errors.New("user not found")

// User is a dev fixture account on the stub server. Customers log in with
// RoleUser, back-office staff with RoleAdmin.
type User struct {
	ID           string           `json:"id,omitempty"`
	Username     string           `json:"username,omitempty"`
	DisplayName  string           `json:"display_name,omitempty"`
	PasswordHash string           `json:"-"` // never serialize
	Role         credentials.Role `json:"role"`
	DateJoined   time.Time        `json:"date_joined,omitempty"`
	LastLogin    time.Time        `json:"last_login,omitempty"`
	Blocked      bool             `json:"blocked,omitempty"`
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// CheckPassword checks password against the user's hash
func (u *User) CheckPassword(password string) bool {
	return CheckPasswordHash(password, u.PasswordHash)
}

// NewUser builds a user with a hashed password.
func NewUser(username, displayName, password string, role credentials.Role) (*User, error) {
	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	return &User{
		Username:     username,
		DisplayName:  displayName,
		PasswordHash: hash,
		Role:         role,
		DateJoined:   time.Now(),
	}, nil
}
