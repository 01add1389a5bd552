package data

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFixedTimeProvider(t *testing.T) {
	start := time.Date(2026, time.March, 14, 9, 30, 0, 0, time.UTC)
	tp := NewFixedTimeProvider(start)

	assert.Equal(t, start, tp.Now())

	tp.AddTime(45 * time.Minute)
	assert.Equal(t, start.Add(45*time.Minute), tp.Now())

	// Time only moves when advanced.
	assert.Equal(t, start.Add(45*time.Minute), tp.Now())
}

func TestNewUserRepoTimeProviders(t *testing.T) {
	repo := NewUserRepo(nil)
	require.NotNil(t, repo.timeProvider)
	assert.IsType(t, &RealTimeProvider{}, repo.timeProvider)

	fixed := NewFixedTimeProvider(time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC))
	repo = NewUserRepoWithTimeProvider(nil, fixed)
	assert.Equal(t, fixed.Now(), repo.timeProvider.Now())
}

func TestRealTimeProviderTracksClock(t *testing.T) {
	tp := &RealTimeProvider{}
	assert.WithinDuration(t, time.Now(), tp.Now(), time.Second)
}
