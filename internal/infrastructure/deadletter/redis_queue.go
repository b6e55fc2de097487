package deadletter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DefaultKey is the Redis list holding dead letters
const DefaultKey = "mpgw:dlq"

// RedisQueue stores dead letters in a Redis list. Push uses LPUSH and Pop uses
// RPOP, so the list tail is always the oldest entry.
type RedisQueue struct {
	client *redis.Client
	key    string
	logger *zap.Logger
}

// NewRedisQueue creates a queue on an existing client
func NewRedisQueue(client *redis.Client, key string, logger *zap.Logger) *RedisQueue {
	if key == "" {
		key = DefaultKey
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisQueue{client: client, key: key, logger: logger}
}

// Push appends a dead letter
func (q *RedisQueue) Push(ctx context.Context, letter DeadLetter) error {
	b, err := json.Marshal(letter)
	if err != nil {
		return fmt.Errorf("failed to encode dead letter: %w", err)
	}
	if err := q.client.LPush(ctx, q.key, b).Err(); err != nil {
		return fmt.Errorf("redis dead-letter push failed: %w", err)
	}
	return nil
}

// Pop removes and returns up to n of the oldest dead letters.
// Entries that cannot be decoded are logged and dropped.
func (q *RedisQueue) Pop(ctx context.Context, n int) ([]DeadLetter, error) {
	if n <= 0 {
		return nil, nil
	}

	values, err := q.client.RPopCount(ctx, q.key, n).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis dead-letter pop failed: %w", err)
	}

	letters := make([]DeadLetter, 0, len(values))
	for _, v := range values {
		var letter DeadLetter
		if err := json.Unmarshal([]byte(v), &letter); err != nil {
			q.logger.Error("dropping undecodable dead letter", zap.Error(err))
			continue
		}
		letters = append(letters, letter)
	}
	return letters, nil
}

// Len returns the number of queued dead letters
func (q *RedisQueue) Len(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.key).Result()
}

// Close is a no-op; the client is owned by whoever created it
func (q *RedisQueue) Close() error {
	return nil
}

var _ Queue = (*RedisQueue)(nil)
