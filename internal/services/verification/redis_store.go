package verification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps pending codes in Redis; the TTL is enforced by the key
// expiry and GETDEL gives the single-consume semantics for free.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func key(email string) string { return "verification:code:" + email }

func (s *RedisStore) Save(ctx context.Context, email, code string, ttl time.Duration) error {
	err := s.client.Set(ctx, key(email), code, ttl).Err()
	if err != nil {
		return fmt.Errorf("redis set: %w", err)
	}

	return nil
}

func (s *RedisStore) Consume(ctx context.Context, email string) (string, error) {
	code, err := s.client.GetDel(ctx, key(email)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}

		return "", fmt.Errorf("redis getdel: %w", err)
	}

	return code, nil
}
