package server

import (
	"fmt"

	"github.com/jrsteele09/go-travel-session/clients"
	"github.com/jrsteele09/go-travel-session/credentials"
	"github.com/jrsteele09/go-travel-session/internal/config"
	"github.com/jrsteele09/go-travel-session/users"
	"github.com/rs/zerolog/log"
)

// Dev fixture accounts. Both use the configured dev password.
const (
	DevCustomerUsername = "traveller"
	DevAdminUsername    = "admin"
)

// InitialiseSystem seeds the dev accounts and the admin console client.
func (s *Server) InitialiseSystem(cfg config.Config) error {
	password := cfg.GetDevPassword()

	for _, account := range []struct {
		username, name string
		role           credentials.Role
	}{
		{DevCustomerUsername, "Dev Traveller", credentials.RoleUser},
		{DevAdminUsername, "Dev Administrator", credentials.RoleAdmin},
	} {
		if _, err := s.repos.Users.GetByUsername(account.username); err == nil {
			continue
		}
		user, err := users.NewUser(account.username, account.name, password, account.role)
		if err != nil {
			return fmt.Errorf("[Server InitialiseSystem] failed to create %s: %w", account.username, err)
		}
		if err := s.repos.Users.Upsert(user); err != nil {
			return fmt.Errorf("[Server InitialiseSystem] failed to store %s: %w", account.username, err)
		}
	}

	adminClient, err := clients.NewClient(cfg.GetAdminClientID(), "Back-office admin console", cfg.GetAdminClientSecret(), credentials.RoleAdmin)
	if err != nil {
		return fmt.Errorf("[Server InitialiseSystem] failed to create admin client: %w", err)
	}
	if err := s.repos.Clients.Upsert(adminClient); err != nil {
		return fmt.Errorf("[Server InitialiseSystem] failed to store admin client: %w", err)
	}

	if s.env == "DEV" {
		log.Info().
			Str("issuer", s.issuer).
			Str("customer", DevCustomerUsername).
			Str("admin", DevAdminUsername).
			Str("admin_client_id", adminClient.ID).
			Msg("Dev fixtures ready")
	}
	return nil
}
