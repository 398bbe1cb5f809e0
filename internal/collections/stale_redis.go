package collections

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisStaleTimeout = 500 * time.Millisecond

type redisCounter interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	Get(ctx context.Context, key string) *redis.StringCmd
}

type redisStaleTracker struct {
	client redisCounter
	prefix string
}

// NewRedisStaleTracker comparte los flags de stale entre procesos del mismo viewer.
func NewRedisStaleTracker(client *redis.Client) StaleTracker {
	if client == nil {
		return nil
	}
	return &redisStaleTracker{
		client: client,
		prefix: "coach:stale:",
	}
}

func (t *redisStaleTracker) key(viewerID int64, c Collection) string {
	return t.prefix + strconv.FormatInt(viewerID, 10) + ":" + string(c)
}

func (t *redisStaleTracker) MarkStale(ctx context.Context, viewerID int64, c Collection) (uint64, error) {
	ctx, cancel := context.WithTimeout(ctx, redisStaleTimeout)
	defer cancel()
	n, err := t.client.Incr(ctx, t.key(viewerID, c)).Result()
	if err != nil {
		return 0, fmt.Errorf("redis incr stale: %w", err)
	}
	return uint64(n), nil
}

func (t *redisStaleTracker) Generation(ctx context.Context, viewerID int64, c Collection) (uint64, error) {
	ctx, cancel := context.WithTimeout(ctx, redisStaleTimeout)
	defer cancel()
	n, err := t.client.Get(ctx, t.key(viewerID, c)).Uint64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis get stale: %w", err)
	}
	return n, nil
}
