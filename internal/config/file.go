package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// FileConfig is the optional YAML configuration. Environment variables always win over it.
type FileConfig struct {
	AppName    string      `yaml:"app_name"`
	Env        string      `yaml:"env"`
	LogLevel   string      `yaml:"log_level"`
	APIBaseURL string      `yaml:"api_base_url"`
	Session    SessionFile `yaml:"session"`
	Store      StoreFile   `yaml:"store"`
	Server     ServerFile  `yaml:"server"`
	Tokens     TokenFile   `yaml:"tokens"`
	Cors       CorsFile    `yaml:"cors"`
}

type SessionFile struct {
	UserRefreshURL    string        `yaml:"user_refresh_url"`
	AdminIssuer       string        `yaml:"admin_issuer"`
	AdminTokenURL     string        `yaml:"admin_token_url"`
	AdminClientID     string        `yaml:"admin_client_id"`
	AdminClientSecret string        `yaml:"admin_client_secret"`
	RefreshTimeout    time.Duration `yaml:"refresh_timeout"`
}

type StoreFile struct {
	Backend   string `yaml:"backend"`
	RedisAddr string `yaml:"redis_addr"`
	KeyPrefix string `yaml:"key_prefix"`
}

type ServerFile struct {
	Port        string `yaml:"port"`
	BaseURL     string `yaml:"base_url"`
	DevPassword string `yaml:"dev_password"`
}

type TokenFile struct {
	AccessTTL     time.Duration `yaml:"access_ttl"`
	RefreshTTL    time.Duration `yaml:"refresh_ttl"`
	RefreshLength int           `yaml:"refresh_length"`
}

type CorsFile struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// ReadFile parses a YAML config file, rejecting unknown fields.
func ReadFile(path string) (*FileConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("[config ReadFile] read %s: %w", path, err)
	}
	return Parse(b)
}

// Parse decodes YAML config bytes. An empty document yields an empty FileConfig.
func Parse(b []byte) (*FileConfig, error) {
	fc := &FileConfig{}
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(fc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("[config Parse] decode yaml: %w", err)
	}
	return fc, nil
}

// values flattens the file into the same keys the environment uses.
func (fc *FileConfig) values() map[string]string {
	v := map[string]string{
		appNameEnvVar:           fc.AppName,
		envEnvVar:               fc.Env,
		logLevelEnvVar:          fc.LogLevel,
		apiBaseURLEnvVar:        fc.APIBaseURL,
		userRefreshURLEnvVar:    fc.Session.UserRefreshURL,
		adminIssuerEnvVar:       fc.Session.AdminIssuer,
		adminTokenURLEnvVar:     fc.Session.AdminTokenURL,
		adminClientIDEnvVar:     fc.Session.AdminClientID,
		adminClientSecretEnvVar: fc.Session.AdminClientSecret,
		credentialStoreEnvVar:   fc.Store.Backend,
		redisAddrEnvVar:         fc.Store.RedisAddr,
		redisKeyPrefixEnvVar:    fc.Store.KeyPrefix,
		portEnvVar:              fc.Server.Port,
		baseURLEnvVar:           fc.Server.BaseURL,
		devPasswordEnvVar:       fc.Server.DevPassword,
	}
	if fc.Session.RefreshTimeout > 0 {
		v[refreshTimeoutEnvVar] = fc.Session.RefreshTimeout.String()
	}
	if fc.Tokens.AccessTTL > 0 {
		v[accessTokenTTLEnvVar] = fc.Tokens.AccessTTL.String()
	}
	if fc.Tokens.RefreshTTL > 0 {
		v[refreshTokenTTLEnvVar] = fc.Tokens.RefreshTTL.String()
	}
	if fc.Tokens.RefreshLength > 0 {
		v[refreshTokenLengthEnvVar] = fmt.Sprint(fc.Tokens.RefreshLength)
	}
	if len(fc.Cors.AllowedOrigins) > 0 {
		v[allowedOriginsEnvVar] = strings.Join(fc.Cors.AllowedOrigins, ",")
	}
	return v
}
