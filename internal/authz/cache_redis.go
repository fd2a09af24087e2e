package authz

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore implements CacheStore on Redis. Tag grouping uses one set
// per tag holding the member keys; invalidating a tag deletes the
// members and the set itself. Tag sets share the entry TTL, refreshed
// on every write, so a set never outlives the entries it indexes.
type RedisStore struct {
	client    *redis.Client
	namespace string
}

// NewRedisStore constructs a RedisStore. The namespace bounds what a
// full Flush scans, keeping unrelated keys in the same database alive.
func NewRedisStore(client *redis.Client, namespace string) *RedisStore {
	if namespace == "" {
		namespace = "dominion"
	}
	return &RedisStore{client: client, namespace: namespace}
}

func (s *RedisStore) Get(ctx context.Context, key string) (bool, bool, error) {
	value, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return false, false, nil
	}
	if err != nil {
		return false, false, err
	}
	return value == "1", true, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value bool, ttl time.Duration, tags []string) error {
	payload := "0"
	if value {
		payload = "1"
	}
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, key, payload, ttl)
	for _, tag := range tags {
		pipe.SAdd(ctx, s.tagKey(tag), key)
		pipe.Expire(ctx, s.tagKey(tag), ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (s *RedisStore) Invalidate(ctx context.Context, tags ...string) error {
	for _, tag := range tags {
		members, err := s.client.SMembers(ctx, s.tagKey(tag)).Result()
		if err != nil && err != redis.Nil {
			return err
		}
		if len(members) > 0 {
			if err := s.client.Del(ctx, members...).Err(); err != nil {
				return err
			}
		}
		if err := s.client.Del(ctx, s.tagKey(tag)).Err(); err != nil {
			return err
		}
	}
	return nil
}

func (s *RedisStore) SupportsTags() bool {
	return true
}

// Flush removes every key in the store's namespace.
func (s *RedisStore) Flush(ctx context.Context) error {
	iter := s.client.Scan(ctx, 0, s.namespace+":*", 256).Iterator()
	batch := make([]string, 0, 256)
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == cap(batch) {
			if err := s.client.Del(ctx, batch...).Err(); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(batch) > 0 {
		return s.client.Del(ctx, batch...).Err()
	}
	return nil
}

func (s *RedisStore) tagKey(tag string) string {
	return tag + ":keys"
}

var _ CacheStore = (*RedisStore)(nil)
