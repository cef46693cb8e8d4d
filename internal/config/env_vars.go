package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	appNameEnvVar     = "APP_NAME"
	envEnvVar         = "ENV"
	logLevelEnvVar    = "LOG_LEVEL"
	apiBaseURLEnvVar  = "API_BASE_URL"
	portEnvVar        = "PORT"
	baseURLEnvVar     = "BASE_URL"
	devPasswordEnvVar = "DEV_PASSWORD"
)

// source resolves a key from the environment first, then from the optional config file.
type source struct {
	file map[string]string
}

func (s source) get(envVar, defaultValue string) string {
	if value := os.Getenv(envVar); value != "" {
		return value
	}
	if value, ok := s.file[envVar]; ok && value != "" {
		return value
	}
	return defaultValue
}

func (s source) duration(envVar string, defaultValue time.Duration) time.Duration {
	raw := s.get(envVar, "")
	if raw == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		log.Warn().Str("key", envVar).Str("value", raw).Msg("Invalid duration, using default")
		return defaultValue
	}
	return d
}

func (s source) integer(envVar string, defaultValue int) int {
	raw := s.get(envVar, "")
	if raw == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		log.Warn().Str("key", envVar).Str("value", raw).Msg("Invalid integer, using default")
		return defaultValue
	}
	return n
}

type EnvVars struct {
	src source
}

var _ EnvConfig = EnvVars{}

func (e EnvVars) GetAppName() string {
	return e.src.get(appNameEnvVar, "Guided Travel")
}

func (e EnvVars) GetEnv() string {
	return e.src.get(envEnvVar, "DEV")
}

func (e EnvVars) GetLogLevel() string {
	return e.src.get(logLevelEnvVar, "info")
}

// GetAPIBaseURL returns the base URL of the travel REST backend (e.g., "https://api.example.com")
func (e EnvVars) GetAPIBaseURL() string {
	return e.src.get(apiBaseURLEnvVar, "http://localhost:8080")
}

type Server struct {
	src source
}

var _ ServerConfig = Server{}

func (s Server) GetPort() string {
	port := s.src.get(portEnvVar, "8080")
	if port[0] != ':' {
		port = fmt.Sprintf(":%s", port)
	}
	return port
}

// GetBaseURL returns the externally visible URL of the dev server. It is used as the token issuer.
func (s Server) GetBaseURL() string {
	return s.src.get(baseURLEnvVar, "http://localhost:8080")
}

func (s Server) GetDevPassword() string {
	return s.src.get(devPasswordEnvVar, "travel-dev")
}

// GetEnv reads a single environment variable with a default.
func GetEnv(envVar, defaultValue string) string {
	return source{}.get(envVar, defaultValue)
}
