package alerts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/xbklairith/aubit-poly/pkg/cache"
)

// DefaultSeenTTL is how long a dispatched id is remembered.
const DefaultSeenTTL = 24 * time.Hour

// ErrSeenDropped is returned when the backing cache refused to admit an id.
var ErrSeenDropped = errors.New("seen entry dropped by cache")

// SeenStore remembers dispatched opportunity ids for a bounded window.
type SeenStore interface {
	Seen(ctx context.Context, id string) (bool, error)
	MarkSeen(ctx context.Context, ids ...string) error
	Clear(ctx context.Context) error
	Close() error
}

// CacheSeenStore keeps seen ids in an in-process TTL cache.
type CacheSeenStore struct {
	cache cache.Cache
	ttl   time.Duration
}

// NewCacheSeenStore wraps c. A non-positive ttl uses DefaultSeenTTL.
func NewCacheSeenStore(c cache.Cache, ttl time.Duration) *CacheSeenStore {
	if ttl <= 0 {
		ttl = DefaultSeenTTL
	}
	return &CacheSeenStore{cache: c, ttl: ttl}
}

// Seen reports whether id was marked within the TTL window.
func (s *CacheSeenStore) Seen(_ context.Context, id string) (bool, error) {
	_, ok := s.cache.Get(seenKey(id))
	return ok, nil
}

// MarkSeen records ids and waits until they are visible to Seen.
func (s *CacheSeenStore) MarkSeen(_ context.Context, ids ...string) error {
	var dropped []string
	for _, id := range ids {
		if !s.cache.Set(seenKey(id), true, s.ttl) {
			dropped = append(dropped, id)
		}
	}
	s.cache.Wait()

	if len(dropped) > 0 {
		return fmt.Errorf("mark %d ids: %w", len(dropped), ErrSeenDropped)
	}
	return nil
}

// Clear forgets every id.
func (s *CacheSeenStore) Clear(_ context.Context) error {
	s.cache.Clear()
	return nil
}

// Close releases the cache.
func (s *CacheSeenStore) Close() error {
	s.cache.Close()
	return nil
}

// redisClient is the subset of *redis.Client used by RedisSeenStore.
type redisClient interface {
	Exists(ctx context.Context, keys ...string) *redis.IntCmd
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Scan(ctx context.Context, cursor uint64, match string, count int64) *redis.ScanCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Close() error
}

// RedisSeenStore keeps seen ids in Redis so the window survives restarts and
// can be shared by replicas.
type RedisSeenStore struct {
	client redisClient
	ttl    time.Duration
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// NewRedisSeenStore connects to Redis and verifies the connection.
func NewRedisSeenStore(ctx context.Context, cfg RedisConfig) (*RedisSeenStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	err := client.Ping(ctx).Err()
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return newRedisSeenStore(client, cfg.TTL), nil
}

func newRedisSeenStore(client redisClient, ttl time.Duration) *RedisSeenStore {
	if ttl <= 0 {
		ttl = DefaultSeenTTL
	}
	return &RedisSeenStore{client: client, ttl: ttl}
}

// Seen reports whether id exists in Redis.
func (s *RedisSeenStore) Seen(ctx context.Context, id string) (bool, error) {
	n, err := s.client.Exists(ctx, seenKey(id)).Result()
	if err != nil {
		return false, fmt.Errorf("exists %s: %w", id, err)
	}
	return n > 0, nil
}

// MarkSeen sets each id with the TTL. Existing entries keep their expiry.
func (s *RedisSeenStore) MarkSeen(ctx context.Context, ids ...string) error {
	for _, id := range ids {
		err := s.client.SetNX(ctx, seenKey(id), 1, s.ttl).Err()
		if err != nil {
			return fmt.Errorf("setnx %s: %w", id, err)
		}
	}
	return nil
}

// Clear deletes every seen key.
func (s *RedisSeenStore) Clear(ctx context.Context) error {
	var cursor uint64
	for {
		keys, next, err := s.client.Scan(ctx, cursor, seenKeyPrefix+"*", 100).Result()
		if err != nil {
			return fmt.Errorf("scan seen keys: %w", err)
		}

		if len(keys) > 0 {
			err = s.client.Del(ctx, keys...).Err()
			if err != nil {
				return fmt.Errorf("delete seen keys: %w", err)
			}
		}

		if next == 0 {
			return nil
		}
		cursor = next
	}
}

// Close closes the Redis client.
func (s *RedisSeenStore) Close() error {
	return s.client.Close()
}

const seenKeyPrefix = "alerts:seen:"

func seenKey(id string) string {
	return seenKeyPrefix + id
}
