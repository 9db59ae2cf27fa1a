package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) (*CacheManager, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewCacheManager(client), mr
}

func TestCacheOrExecute(t *testing.T) {
	ctx := context.Background()
	cm, mr := newTestManager(t)

	calls := 0
	fetch := func() (interface{}, error) {
		calls++
		return map[string]int{"attempts": 3}, nil
	}

	var first, second map[string]int
	require.NoError(t, cm.Stats.CacheOrExecute(ctx, "quiz:q1:analytics", &first, time.Minute, fetch))
	require.NoError(t, cm.Stats.CacheOrExecute(ctx, "quiz:q1:analytics", &second, time.Minute, fetch))

	assert.Equal(t, 1, calls)
	assert.Equal(t, 3, second["attempts"])
	assert.True(t, mr.Exists("stats:quiz:q1:analytics"))

	mr.FastForward(2 * time.Minute)
	var third map[string]int
	require.NoError(t, cm.Stats.CacheOrExecute(ctx, "quiz:q1:analytics", &third, time.Minute, fetch))
	assert.Equal(t, 2, calls, "expired entries are refetched")
}

func TestCacheOrExecute_FetchError(t *testing.T) {
	cm, mr := newTestManager(t)
	boom := errors.New("db down")

	var dest map[string]int
	err := cm.Stats.CacheOrExecute(context.Background(), "quiz:q1:analytics", &dest, time.Minute, func() (interface{}, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.False(t, mr.Exists("stats:quiz:q1:analytics"))
}

func TestCacheOrExecute_NoClient(t *testing.T) {
	cm := NewCacheManager(nil)
	assert.False(t, cm.Enabled())

	var dest string
	require.NoError(t, cm.Quiz.CacheOrExecute(context.Background(), "id:q1", &dest, time.Minute, func() (interface{}, error) {
		return "from db", nil
	}))
	assert.Equal(t, "from db", dest)
	assert.ErrorIs(t, cm.Quiz.Get(context.Background(), "id:q1", &dest), ErrCacheNotAvailable)
}

func TestInvalidateQuizCache(t *testing.T) {
	ctx := context.Background()
	cm, mr := newTestManager(t)

	require.NoError(t, cm.Quiz.Set(ctx, "id:q1", "quiz", time.Minute))
	require.NoError(t, cm.Quiz.Set(ctx, "questions:q1", []string{"a"}, time.Minute))
	require.NoError(t, cm.Quiz.Set(ctx, "id:q2", "other", time.Minute))
	require.NoError(t, cm.Stats.Set(ctx, "quiz:q1:analytics", 1, time.Minute))
	require.NoError(t, cm.Stats.Set(ctx, "quiz:q1:export", 1, time.Minute))
	require.NoError(t, cm.Stats.Set(ctx, "quiz:q2:analytics", 1, time.Minute))

	InvalidateQuizCache(ctx, cm, "q1")

	assert.False(t, mr.Exists("quiz:id:q1"))
	assert.False(t, mr.Exists("quiz:questions:q1"))
	assert.False(t, mr.Exists("stats:quiz:q1:analytics"))
	assert.False(t, mr.Exists("stats:quiz:q1:export"))
	assert.True(t, mr.Exists("quiz:id:q2"))
	assert.True(t, mr.Exists("stats:quiz:q2:analytics"))

	InvalidateQuizStats(ctx, cm, "q2")
	assert.False(t, mr.Exists("stats:quiz:q2:analytics"))
	assert.True(t, mr.Exists("quiz:id:q2"), "stats invalidation leaves the quiz entry")

	var missing string
	assert.ErrorIs(t, cm.Quiz.Get(ctx, "id:q1", &missing), ErrCacheNotFound)
}
