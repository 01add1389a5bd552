package redis

// Package redis provides Redis-based adapters for the Savitara auth
// flows.

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

// ErrNoPending aliases the port sentinel so callers of this package can
// match without importing ports.
var ErrNoPending = ports.ErrNoPending

// DefaultPendingTTL bounds how long a credential may sit awaiting role
// selection. Provider ID tokens live about an hour; a role choice
// should be prompt, and expiry here is what retires abandoned flows
// (no reaper process needed).
const DefaultPendingTTL = 10 * time.Minute

// PendingStore holds at most one awaiting-role-selection credential per
// flow ID. Writes are last-write-wins by construction (plain SET).
type PendingStore struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewPendingStore creates a Redis-backed pending-auth store.
func NewPendingStore(client redis.UniversalClient) *PendingStore {
	return &PendingStore{client: client, prefix: "pending_auth:", ttl: DefaultPendingTTL}
}

// NewPendingStoreWithTTL creates a pending-auth store with a custom TTL.
func NewPendingStoreWithTTL(client redis.UniversalClient, ttl time.Duration) *PendingStore {
	return &PendingStore{client: client, prefix: "pending_auth:", ttl: ttl}
}

// Put stores the pending auth, overwriting any existing one for the
// same flow.
func (s *PendingStore) Put(ctx context.Context, pending domainauth.PendingAuth) error {
	if pending.FlowID == "" {
		return errors.New("flow ID cannot be empty")
	}

	data, err := json.Marshal(pending)
	if err != nil {
		return fmt.Errorf("marshal pending auth: %w", err)
	}

	return s.client.Set(ctx, s.prefix+pending.FlowID, data, s.ttl).Err()
}

// Get returns the pending auth without consuming it.
func (s *PendingStore) Get(ctx context.Context, flowID string) (domainauth.PendingAuth, error) {
	if flowID == "" {
		return domainauth.PendingAuth{}, ErrNoPending
	}

	data, err := s.client.Get(ctx, s.prefix+flowID).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domainauth.PendingAuth{}, ErrNoPending
		}
		return domainauth.PendingAuth{}, fmt.Errorf("redis get: %w", err)
	}

	var pending domainauth.PendingAuth
	if unmarshalErr := json.Unmarshal([]byte(data), &pending); unmarshalErr != nil {
		return domainauth.PendingAuth{}, fmt.Errorf("unmarshal pending auth: %w", unmarshalErr)
	}
	return pending, nil
}

// Take atomically reads and deletes the pending auth. The delete
// happens regardless of what the caller does next, which is what makes
// the held credential single-use.
func (s *PendingStore) Take(ctx context.Context, flowID string) (domainauth.PendingAuth, error) {
	if flowID == "" {
		return domainauth.PendingAuth{}, ErrNoPending
	}

	data, err := s.client.GetDel(ctx, s.prefix+flowID).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domainauth.PendingAuth{}, ErrNoPending
		}
		return domainauth.PendingAuth{}, fmt.Errorf("redis getdel: %w", err)
	}

	var pending domainauth.PendingAuth
	if unmarshalErr := json.Unmarshal([]byte(data), &pending); unmarshalErr != nil {
		return domainauth.PendingAuth{}, fmt.Errorf("unmarshal pending auth: %w", unmarshalErr)
	}
	return pending, nil
}

// Delete removes the pending auth, if any.
func (s *PendingStore) Delete(ctx context.Context, flowID string) error {
	if flowID == "" {
		return nil
	}
	return s.client.Del(ctx, s.prefix+flowID).Err()
}
