// Package blacklist keeps revoked refresh-token identifiers in Redis so a
// logged-out token stops working before its natural expiry.
package blacklist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrUnavailable indicates the revocation store could not be reached
var ErrUnavailable = errors.New("blacklist unavailable")

// Store records revoked token identifiers with a TTL equal to the remaining
// token lifetime, so entries disappear together with the tokens they block.
type Store struct {
	client redis.UniversalClient
	prefix string
}

// New creates a blacklist store on the given Redis client
func New(client redis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = "motolens"
	}
	return &Store{client: client, prefix: prefix}
}

func (s *Store) key(jti string) string {
	return fmt.Sprintf("%s:revoked:%s", s.prefix, jti)
}

// Revoke marks a token identifier as no longer honored. The reason is stored
// as the value for operator inspection.
func (s *Store) Revoke(ctx context.Context, jti, reason string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := s.client.Set(ctx, s.key(jti), reason, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// IsRevoked reports whether a token identifier has been blacklisted
func (s *Store) IsRevoked(ctx context.Context, jti string) (bool, error) {
	_, err := s.client.Get(ctx, s.key(jti)).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return true, nil
}
