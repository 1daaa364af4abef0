package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/messenger/internal/model"
)

type countingSource struct {
	count int64
	calls int
}

func (s *countingSource) UserUnreadMessagesCount(_ context.Context, _ string, _ model.Ref) (int64, error) {
	s.calls++
	return s.count, nil
}

func setupCache(t *testing.T, source UnreadSource, ttl time.Duration) (*UnreadCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewUnreadCache(source, client, ttl), mr
}

func TestCountCacheAside(t *testing.T) {
	source := &countingSource{count: 3}
	c, _ := setupCache(t, source, time.Minute)
	ctx := context.Background()
	user := model.Ref{ID: "u1", Type: "User"}

	n, err := c.Count(ctx, "t1", user)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)
	assert.Equal(t, 1, source.calls)

	// 第二次命中缓存，不再回源
	n, err = c.Count(ctx, "t1", user)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)
	assert.Equal(t, 1, source.calls)
}

func TestCountKeyedPerThreadAndUser(t *testing.T) {
	source := &countingSource{count: 1}
	c, _ := setupCache(t, source, time.Minute)
	ctx := context.Background()

	_, err := c.Count(ctx, "t1", model.Ref{ID: "u1", Type: "User"})
	require.NoError(t, err)
	_, err = c.Count(ctx, "t2", model.Ref{ID: "u1", Type: "User"})
	require.NoError(t, err)
	_, err = c.Count(ctx, "t1", model.Ref{ID: "u1", Type: "Admin"})
	require.NoError(t, err)

	assert.Equal(t, 3, source.calls)
}

func TestInvalidateForcesRecompute(t *testing.T) {
	source := &countingSource{count: 2}
	c, _ := setupCache(t, source, time.Minute)
	ctx := context.Background()
	user := model.Ref{ID: "u1", Type: "User"}

	_, err := c.Count(ctx, "t1", user)
	require.NoError(t, err)

	source.count = 5
	c.Invalidate(ctx, "t1", user)

	n, err := c.Count(ctx, "t1", user)
	require.NoError(t, err)
	assert.EqualValues(t, 5, n)
	assert.Equal(t, 2, source.calls)
}

func TestCountExpiresWithTTL(t *testing.T) {
	source := &countingSource{count: 4}
	c, mr := setupCache(t, source, time.Second)
	ctx := context.Background()
	user := model.Ref{ID: "u1", Type: "User"}

	_, err := c.Count(ctx, "t1", user)
	require.NoError(t, err)

	mr.FastForward(2 * time.Second)

	_, err = c.Count(ctx, "t1", user)
	require.NoError(t, err)
	assert.Equal(t, 2, source.calls)
}
