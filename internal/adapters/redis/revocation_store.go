package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RevocationStore is the logout denylist for refresh tokens. A revoked
// jti is held until the token's own expiry; after that the signature
// check rejects it anyway.
type RevocationStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRevocationStore creates a Redis-backed refresh-token denylist.
func NewRevocationStore(client redis.UniversalClient) *RevocationStore {
	return &RevocationStore{client: client, prefix: "revoked_token:"}
}

// Revoke denylists the token ID until the given time.
func (s *RevocationStore) Revoke(ctx context.Context, tokenID string, until time.Time) error {
	if tokenID == "" {
		return errors.New("token ID cannot be empty")
	}

	ttl := time.Until(until)
	if ttl <= 0 {
		// Already past expiry; nothing to record.
		return nil
	}
	return s.client.Set(ctx, s.prefix+tokenID, "1", ttl).Err()
}

// IsRevoked reports whether the token ID has been denylisted.
func (s *RevocationStore) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	if tokenID == "" {
		return false, nil
	}

	_, err := s.client.Get(ctx, s.prefix+tokenID).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("redis get: %w", err)
	}
	return true, nil
}
