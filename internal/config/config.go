package config

import "time"

type Config interface {
	EnvConfig
	CorsConfig
	SessionConfig
	StoreConfig
	ServerConfig
	TokenConfig
}

type EnvConfig interface {
	GetAppName() string
	GetEnv() string
	GetLogLevel() string
	GetAPIBaseURL() string
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

// SessionConfig covers the client side: where each role refreshes its credential.
type SessionConfig interface {
	GetUserRefreshURL() string
	GetAdminIssuer() string
	GetAdminTokenURL() string
	GetAdminClientID() string
	GetAdminClientSecret() string
	GetRefreshTimeout() time.Duration
}

type StoreConfig interface {
	GetCredentialStore() string
	GetRedisAddr() string
	GetRedisKeyPrefix() string
}

// ServerConfig is only read by the dev stub server.
type ServerConfig interface {
	GetPort() string
	GetBaseURL() string
	GetDevPassword() string
}

type TokenConfig interface {
	GetAccessTokenTTL() time.Duration
	GetRefreshTokenTTL() time.Duration
	GetRefreshTokenLength() int
}

type mainConfig struct {
	EnvVars
	Cors
	Session
	Store
	Server
	Token
}

// New returns a Config backed by environment variables only.
func New() Config {
	return newConfig(source{})
}

// Load reads the YAML file at path (if any) and layers environment variables on top of it.
func Load(path string) (Config, error) {
	if path == "" {
		return New(), nil
	}
	fc, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	return newConfig(source{file: fc.values()}), nil
}

func newConfig(src source) Config {
	return mainConfig{
		EnvVars: EnvVars{src: src},
		Cors:    Cors{src: src},
		Session: Session{src: src},
		Store:   Store{src: src},
		Server:  Server{src: src},
		Token:   Token{src: src},
	}
}
