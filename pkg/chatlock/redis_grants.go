package chatlock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisGrantStore implements GrantStore on Redis. Expiry is delegated to the
// key TTL, so grants vanish on schedule with no sweeper and are visible to
// every instance sharing the Redis.
type RedisGrantStore struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisGrantStore creates a grant store on the given client. The prefix
// namespaces grant keys; pass "" for the default.
func NewRedisGrantStore(client *redis.Client, keyPrefix string) (*RedisGrantStore, error) {
	if client == nil {
		return nil, ErrGrantsRequired
	}
	if keyPrefix == "" {
		keyPrefix = "chatlock:grant"
	}
	return &RedisGrantStore{client: client, keyPrefix: keyPrefix}, nil
}

func (gs *RedisGrantStore) key(owner, peer string) string {
	return fmt.Sprintf("%s:%s:%s", gs.keyPrefix, owner, peer)
}

func (gs *RedisGrantStore) Grant(ctx context.Context, owner, peer string, ttl time.Duration) error {
	if err := gs.client.Set(ctx, gs.key(owner, peer), "1", ttl).Err(); err != nil {
		return fmt.Errorf("failed to store unlock grant: %w", err)
	}
	return nil
}

func (gs *RedisGrantStore) Active(ctx context.Context, owner, peer string) (bool, error) {
	err := gs.client.Get(ctx, gs.key(owner, peer)).Err()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check unlock grant: %w", err)
	}
	return true, nil
}

func (gs *RedisGrantStore) Revoke(ctx context.Context, owner, peer string) error {
	if err := gs.client.Del(ctx, gs.key(owner, peer)).Err(); err != nil {
		return fmt.Errorf("failed to revoke unlock grant: %w", err)
	}
	return nil
}
