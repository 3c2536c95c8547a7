package presence

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "presence:"

type RedisStore struct {
	cli *redis.Client
}

func NewRedis(ctx context.Context, url string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis parse url: %w", err)
	}
	cli := redis.NewClient(opts)
	if err := cli.Ping(ctx).Err(); err != nil {
		if closeErr := cli.Close(); closeErr != nil {
			return nil, fmt.Errorf("redis ping: %w (close: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisStore{cli: cli}, nil
}

func (s *RedisStore) Close() error {
	return s.cli.Close()
}

func (s *RedisStore) SetOnline(ctx context.Context, userID string, online bool) error {
	if online {
		return s.cli.Set(ctx, keyPrefix+userID, "1", 0).Err()
	}
	return s.cli.Del(ctx, keyPrefix+userID).Err()
}

func (s *RedisStore) CountOnline(ctx context.Context, userIDs []string) (int, error) {
	if len(userIDs) == 0 {
		return 0, nil
	}
	keys := make([]string, len(userIDs))
	for i, id := range userIDs {
		keys[i] = keyPrefix + id
	}
	vals, err := s.cli.MGet(ctx, keys...).Result()
	if err != nil {
		return 0, fmt.Errorf("presence count: %w", err)
	}
	count := 0
	for _, v := range vals {
		if v != nil {
			count++
		}
	}
	return count, nil
}

// Reset deletes all presence keys. SCAN keeps this safe on shared Redis
// instances where FLUSHDB would be destructive.
func (s *RedisStore) Reset(ctx context.Context) error {
	iter := s.cli.Scan(ctx, 0, keyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		if err := s.cli.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("presence reset: %w", err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("presence reset scan: %w", err)
	}
	return nil
}
