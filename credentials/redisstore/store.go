package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jrsteele09/go-travel-session/credentials"
	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable wraps transport failures talking to Redis.
var ErrRedisUnavailable = errors.New("redis unavailable")

var _ credentials.Store = (*Store)(nil)

// Store persists one role's credential in Redis under "<prefix>:<role>".
// It survives process restarts, which is what admin sessions need since their
// refresh token only exists client side.
type Store struct {
	rdb redis.UniversalClient
	key string
	ttl time.Duration
}

// Option configures a Store.
type Option func(*Store)

// WithTTL expires the stored credential after d. Zero keeps it until cleared.
func WithTTL(d time.Duration) Option {
	return func(s *Store) {
		s.ttl = d
	}
}

// New creates a Redis backed credential store for role.
func New(rdb redis.UniversalClient, prefix string, role credentials.Role, opts ...Option) *Store {
	s := &Store{
		rdb: rdb,
		key: Key(prefix, role),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Key returns the Redis key used for role.
func Key(prefix string, role credentials.Role) string {
	if prefix == "" {
		return "credential:" + role.String()
	}
	return prefix + ":" + role.String()
}

func (s *Store) Get(ctx context.Context) (*credentials.Credential, error) {
	b, err := s.rdb.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, credentials.ErrNoCredential
	}
	if err != nil {
		return nil, fmt.Errorf("[redisstore Get] %w: %v", ErrRedisUnavailable, err)
	}

	var c credentials.Credential
	if err := json.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("[redisstore Get] corrupt credential at %s: %w", s.key, err)
	}
	return &c, nil
}

func (s *Store) Set(ctx context.Context, c credentials.Credential) error {
	b, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("[redisstore Set] encode credential: %w", err)
	}
	if err := s.rdb.Set(ctx, s.key, b, s.ttl).Err(); err != nil {
		return fmt.Errorf("[redisstore Set] %w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func (s *Store) Clear(ctx context.Context) error {
	if err := s.rdb.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("[redisstore Clear] %w: %v", ErrRedisUnavailable, err)
	}
	return nil
}
