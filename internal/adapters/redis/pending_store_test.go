package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	domainauth "github.com/savitara/savitara-api/internal/domain/auth"
	"github.com/savitara/savitara-api/internal/testutil"
)

func TestPendingStore_PutAndGet(t *testing.T) {
	client := testutil.SetupTestRedis(t)
	store := NewPendingStore(client)
	ctx := context.Background()

	pending := domainauth.PendingAuth{
		FlowID: "flow-put-get",
		Credential: domainauth.Credential{
			Subject:       "google-sub-1",
			Email:         "user@example.com",
			EmailVerified: true,
			Name:          "Test User",
		},
		State:     domainauth.FlowAwaitingRoleSelection,
		CreatedAt: time.Now().UTC(),
	}

	require.NoError(t, store.Put(ctx, pending))
	t.Cleanup(func() { _ = store.Delete(ctx, pending.FlowID) })

	got, err := store.Get(ctx, "flow-put-get")
	require.NoError(t, err)
	assert.Equal(t, pending.Credential.Email, got.Credential.Email)
	assert.Equal(t, domainauth.FlowAwaitingRoleSelection, got.State)

	// Get does not consume.
	_, err = store.Get(ctx, "flow-put-get")
	require.NoError(t, err)
}

func TestPendingStore_PutOverwrites(t *testing.T) {
	client := testutil.SetupTestRedis(t)
	store := NewPendingStore(client)
	ctx := context.Background()

	first := domainauth.PendingAuth{
		FlowID:     "flow-overwrite",
		Credential: domainauth.Credential{Email: "first@example.com"},
		State:      domainauth.FlowAwaitingRoleSelection,
	}
	second := first
	second.Credential.Email = "second@example.com"

	require.NoError(t, store.Put(ctx, first))
	require.NoError(t, store.Put(ctx, second))
	t.Cleanup(func() { _ = store.Delete(ctx, "flow-overwrite") })

	got, err := store.Get(ctx, "flow-overwrite")
	require.NoError(t, err)
	assert.Equal(t, "second@example.com", got.Credential.Email)
}

func TestPendingStore_TakeIsDestructive(t *testing.T) {
	client := testutil.SetupTestRedis(t)
	store := NewPendingStore(client)
	ctx := context.Background()

	pending := domainauth.PendingAuth{
		FlowID:     "flow-take",
		Credential: domainauth.Credential{Email: "user@example.com"},
		State:      domainauth.FlowAwaitingRoleSelection,
	}
	require.NoError(t, store.Put(ctx, pending))

	got, err := store.Take(ctx, "flow-take")
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", got.Credential.Email)

	_, err = store.Take(ctx, "flow-take")
	assert.ErrorIs(t, err, ErrNoPending)

	_, err = store.Get(ctx, "flow-take")
	assert.ErrorIs(t, err, ErrNoPending)
}

func TestPendingStore_GetNonExistent(t *testing.T) {
	client := testutil.SetupTestRedis(t)
	store := NewPendingStore(client)

	_, err := store.Get(context.Background(), "no-such-flow")
	assert.ErrorIs(t, err, ErrNoPending)
}

func TestPendingStore_TTLExpiry(t *testing.T) {
	client := testutil.SetupTestRedis(t)
	store := NewPendingStoreWithTTL(client, 50*time.Millisecond)
	ctx := context.Background()

	pending := domainauth.PendingAuth{
		FlowID:     "flow-ttl",
		Credential: domainauth.Credential{Email: "user@example.com"},
		State:      domainauth.FlowAwaitingRoleSelection,
	}
	require.NoError(t, store.Put(ctx, pending))

	time.Sleep(100 * time.Millisecond)

	_, err := store.Get(ctx, "flow-ttl")
	assert.ErrorIs(t, err, ErrNoPending)
}

func TestPendingStore_EmptyFlowID(t *testing.T) {
	client := testutil.SetupTestRedis(t)
	store := NewPendingStore(client)
	ctx := context.Background()

	err := store.Put(ctx, domainauth.PendingAuth{})
	require.Error(t, err)

	_, err = store.Get(ctx, "")
	assert.ErrorIs(t, err, ErrNoPending)
}
