package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	domainauth "github.com/savitara/savitara-api/internal/domain/auth"
	"github.com/savitara/savitara-api/internal/ports"
)

// ErrNotFound aliases the port sentinel for session misses.
var ErrNotFound = ports.ErrSessionNotFound

// SessionStore is a Redis-based session store. A session record is the
// token pair plus the user summary; the whole record lives and dies as
// one key, so the access and refresh tokens can never be present
// independently.
type SessionStore struct {
	client redis.UniversalClient
	prefix string
}

// NewSessionStore creates a new Redis-based session store.
func NewSessionStore(client redis.UniversalClient) *SessionStore {
	return &SessionStore{client: client, prefix: "session:"}
}

// NewSessionStoreWithPrefix creates a Redis session store with a custom key prefix.
func NewSessionStoreWithPrefix(client redis.UniversalClient, prefix string) *SessionStore {
	return &SessionStore{client: client, prefix: prefix}
}

func (s *SessionStore) Save(ctx context.Context, sess domainauth.Session) error {
	if sess.ID == "" {
		return errors.New("session ID cannot be empty")
	}

	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	ttl := time.Until(sess.ExpiresAt)
	if ttl <= 0 {
		return errors.New("session is expired")
	}

	return s.client.Set(ctx, s.prefix+sess.ID, data, ttl).Err()
}

func (s *SessionStore) Get(ctx context.Context, id string) (domainauth.Session, error) {
	if id == "" {
		return domainauth.Session{}, ErrNotFound
	}

	data, err := s.client.Get(ctx, s.prefix+id).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domainauth.Session{}, ErrNotFound
		}
		return domainauth.Session{}, fmt.Errorf("redis get: %w", err)
	}

	var sess domainauth.Session
	if unmarshalErr := json.Unmarshal([]byte(data), &sess); unmarshalErr != nil {
		return domainauth.Session{}, fmt.Errorf("unmarshal session: %w", unmarshalErr)
	}

	// Redis TTL should have retired it already; never hand back a
	// half-expired session.
	if time.Now().After(sess.ExpiresAt) {
		if deleteErr := s.Delete(ctx, id); deleteErr != nil {
			return domainauth.Session{}, fmt.Errorf("cleanup expired session: %w", deleteErr)
		}
		return domainauth.Session{}, ErrNotFound
	}

	return sess, nil
}

func (s *SessionStore) Delete(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	return s.client.Del(ctx, s.prefix+id).Err()
}
