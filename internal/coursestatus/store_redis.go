package coursestatus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/p-n-ai/cloudmaster/internal/platform/cache"
	"github.com/p-n-ai/cloudmaster/internal/question"
)

const redisTimeout = 3 * time.Second

// RedisStore keeps statuses as JSON values in Redis/Dragonfly.
type RedisStore struct {
	client redis.Cmdable
}

// NewRedisStore creates a store backed by client.
func NewRedisStore(client redis.Cmdable) (*RedisStore, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	return &RedisStore{client: client}, nil
}

func statusKey(course question.CourseID) string {
	return cache.Key("course_status", string(course))
}

func (r *RedisStore) Get(ctx context.Context, course question.CourseID) (Status, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, redisTimeout)
	defer cancel()

	data, err := r.client.Get(ctx, statusKey(course)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Status{}, false, nil
	}
	if err != nil {
		return Status{}, false, fmt.Errorf("get status %s: %w", course, err)
	}

	var s Status
	if err := json.Unmarshal(data, &s); err != nil {
		return Status{}, false, fmt.Errorf("decode status %s: %w", course, err)
	}
	return s, true, nil
}

func (r *RedisStore) Set(ctx context.Context, course question.CourseID, s Status) error {
	ctx, cancel := context.WithTimeout(ctx, redisTimeout)
	defer cancel()

	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode status %s: %w", course, err)
	}
	if err := r.client.Set(ctx, statusKey(course), data, 0).Err(); err != nil {
		return fmt.Errorf("set status %s: %w", course, err)
	}
	return nil
}

func (r *RedisStore) Delete(ctx context.Context, course question.CourseID) error {
	ctx, cancel := context.WithTimeout(ctx, redisTimeout)
	defer cancel()

	if err := r.client.Del(ctx, statusKey(course)).Err(); err != nil {
		return fmt.Errorf("delete status %s: %w", course, err)
	}
	return nil
}
