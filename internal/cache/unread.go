package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/d60-Lab/messenger/internal/model"
	"github.com/d60-Lab/messenger/pkg/logger"
)

// UnreadSource is anything that can compute the exact unread count,
// in practice the thread service.
type UnreadSource interface {
	UserUnreadMessagesCount(ctx context.Context, threadID string, user model.Ref) (int64, error)
}

// UnreadCache keeps per-(thread, user) unread counts in Redis with a TTL.
// Reads are cache-aside; writers call Invalidate after sending a message or
// marking a thread read. Cache failures degrade to the source, never to an
// error.
type UnreadCache struct {
	source UnreadSource
	cache  *redis.Client
	ttl    time.Duration
}

func NewUnreadCache(source UnreadSource, cache *redis.Client, ttl time.Duration) *UnreadCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &UnreadCache{source: source, cache: cache, ttl: ttl}
}

func unreadKey(threadID string, user model.Ref) string {
	return fmt.Sprintf("unread:%s:%s:%s", threadID, user.Type, user.ID)
}

func (c *UnreadCache) Count(ctx context.Context, threadID string, user model.Ref) (int64, error) {
	key := unreadKey(threadID, user)
	if n, err := c.cache.Get(ctx, key).Int64(); err == nil {
		return n, nil
	}

	n, err := c.source.UserUnreadMessagesCount(ctx, threadID, user)
	if err != nil {
		return 0, err
	}
	if err := c.cache.Set(ctx, key, n, c.ttl).Err(); err != nil {
		logger.Warn("unread cache set failed", zap.String("key", key), zap.Error(err))
	}
	return n, nil
}

// Invalidate drops cached counts for the given users in a thread.
func (c *UnreadCache) Invalidate(ctx context.Context, threadID string, users ...model.Ref) {
	if len(users) == 0 {
		return
	}
	keys := make([]string, len(users))
	for i, u := range users {
		keys[i] = unreadKey(threadID, u)
	}
	if err := c.cache.Del(ctx, keys...).Err(); err != nil {
		logger.Warn("unread cache invalidate failed", zap.String("thread", threadID), zap.Error(err))
	}
}
