package airport

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisKey is the hash holding the shared dataset snapshot.
const DefaultRedisKey = "crewmap:airports:snapshot"

// RedisSnapshots keeps the newest dataset body in a Redis hash so every
// replica can warm from the same copy.
type RedisSnapshots struct {
	client redis.Cmdable
	key    string
}

// NewRedisSnapshots stores snapshots under key, or DefaultRedisKey if empty.
func NewRedisSnapshots(client redis.Cmdable, key string) *RedisSnapshots {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisSnapshots{client: client, key: key}
}

// Save overwrites the stored snapshot. Concurrent replicas are last writer wins.
func (r *RedisSnapshots) Save(ctx context.Context, data []byte, ts time.Time) error {
	if err := r.client.HSet(ctx, r.key, "data", data, "fetched_at", ts.Unix()).Err(); err != nil {
		return fmt.Errorf("saving snapshot to redis: %w", err)
	}
	return nil
}

// LoadLatest returns the stored snapshot or ErrNoSnapshot.
func (r *RedisSnapshots) LoadLatest(ctx context.Context) ([]byte, time.Time, error) {
	vals, err := r.client.HGetAll(ctx, r.key).Result()
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("loading snapshot from redis: %w", err)
	}
	data, ok := vals["data"]
	if !ok {
		return nil, time.Time{}, ErrNoSnapshot
	}
	unix, err := strconv.ParseInt(vals["fetched_at"], 10, 64)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("invalid snapshot timestamp %q: %w", vals["fetched_at"], err)
	}
	return []byte(data), time.Unix(unix, 0), nil
}
