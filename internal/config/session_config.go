package config

import "time"

const (
	userRefreshURLEnvVar     = "USER_REFRESH_URL"
	adminIssuerEnvVar        = "ADMIN_ISSUER"
	adminTokenURLEnvVar      = "ADMIN_TOKEN_URL"
	adminClientIDEnvVar      = "ADMIN_CLIENT_ID"
	adminClientSecretEnvVar  = "ADMIN_CLIENT_SECRET"
	refreshTimeoutEnvVar     = "REFRESH_TIMEOUT"
	credentialStoreEnvVar    = "CREDENTIAL_STORE"
	redisAddrEnvVar          = "REDIS_ADDR"
	redisKeyPrefixEnvVar     = "REDIS_KEY_PREFIX"
	accessTokenTTLEnvVar     = "ACCESS_TOKEN_TTL"
	refreshTokenTTLEnvVar    = "REFRESH_TOKEN_TTL"
	refreshTokenLengthEnvVar = "REFRESH_TOKEN_LENGTH"
)

const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

type Session struct {
	src source
}

var _ SessionConfig = Session{}

// GetUserRefreshURL is the cookie-authenticated refresh endpoint for customer sessions.
func (s Session) GetUserRefreshURL() string {
	return s.src.get(userRefreshURLEnvVar, EnvVars(s).GetAPIBaseURL()+"/auth/refresh")
}

// GetAdminIssuer is used for OIDC discovery when no explicit token URL is configured.
func (s Session) GetAdminIssuer() string {
	return s.src.get(adminIssuerEnvVar, "")
}

func (s Session) GetAdminTokenURL() string {
	return s.src.get(adminTokenURLEnvVar, "")
}

func (s Session) GetAdminClientID() string {
	return s.src.get(adminClientIDEnvVar, "travel-admin")
}

// GetAdminClientSecret defaults to the dev server's fixture secret.
func (s Session) GetAdminClientSecret() string {
	return s.src.get(adminClientSecretEnvVar, "travel-admin-dev")
}

func (s Session) GetRefreshTimeout() time.Duration {
	return s.src.duration(refreshTimeoutEnvVar, 15*time.Second)
}

type Store struct {
	src source
}

var _ StoreConfig = Store{}

// GetCredentialStore selects where the admin credential is persisted: "memory" or "redis".
func (s Store) GetCredentialStore() string {
	return s.src.get(credentialStoreEnvVar, StoreMemory)
}

func (s Store) GetRedisAddr() string {
	return s.src.get(redisAddrEnvVar, "localhost:6379")
}

func (s Store) GetRedisKeyPrefix() string {
	return s.src.get(redisKeyPrefixEnvVar, "travel:credential")
}

type Token struct {
	src source
}

var _ TokenConfig = Token{}

func (t Token) GetAccessTokenTTL() time.Duration {
	return t.src.duration(accessTokenTTLEnvVar, 5*time.Minute)
}

func (t Token) GetRefreshTokenTTL() time.Duration {
	return t.src.duration(refreshTokenTTLEnvVar, 7*24*time.Hour) // 7 days
}

func (t Token) GetRefreshTokenLength() int {
	return t.src.integer(refreshTokenLengthEnvVar, 32) // 32 bytes = 256 bits
}
