// Package testutil provides testing helpers for the Savitara auth system.
package testutil

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// GetTestRedisAddr returns the Redis address for integration tests.
// Set TEST_REDIS_ADDR to override the default localhost address.
func GetTestRedisAddr() string {
	if addr := os.Getenv("TEST_REDIS_ADDR"); addr != "" {
		return addr
	}
	return "localhost:6379"
}

// requireRedis reports whether tests must fail (rather than skip) when
// Redis is unavailable. Set REQUIRE_REDIS=true in CI.
func requireRedis() bool {
	return strings.EqualFold(os.Getenv("REQUIRE_REDIS"), "true")
}

// SetupTestRedis creates a Redis client for testing. Tests are skipped
// if Redis is not available, unless REQUIRE_REDIS=true.
func SetupTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	addr := GetTestRedisAddr()
	client := redis.NewClient(&redis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		if cerr := client.Close(); cerr != nil {
			t.Logf("warning: failed to close redis client after ping error: %v", cerr)
		}
		if requireRedis() {
			t.Fatalf("Redis not available for testing at %s: %v", addr, err)
		}
		t.Skipf("Redis not available for testing at %s: %v", addr, err)
	}

	t.Cleanup(func() {
		if err := client.Close(); err != nil {
			t.Logf("warning: failed to close redis client: %v", err)
		}
	})

	return client
}
