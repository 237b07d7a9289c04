package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/channelsync/backend/internal/domain/channel"
	"github.com/redis/go-redis/v9"
)

// RedisStateStore implements channel.OAuthStateStore using Redis. Entries
// expire on their TTL and are consumed atomically with GETDEL, so a state
// value can complete at most one authorization.
type RedisStateStore struct {
	client    *redis.Client
	keyPrefix string
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// NewRedisStateStore creates a new Redis-based authorization state store
func NewRedisStateStore(cfg RedisConfig) (*RedisStateStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisStateStoreWithClient(client, ""), nil
}

// NewRedisStateStoreWithClient creates a store with an existing Redis client.
// This is useful when sharing a client across components.
func NewRedisStateStoreWithClient(client *redis.Client, keyPrefix string) *RedisStateStore {
	if keyPrefix == "" {
		keyPrefix = "oauth:state:"
	}
	return &RedisStateStore{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

var _ channel.OAuthStateStore = (*RedisStateStore)(nil)

// SaveState stores the verifier under (platform, state) with a TTL
func (s *RedisStateStore) SaveState(ctx context.Context, platform channel.PlatformCode, state, verifier string, ttl time.Duration) error {
	if err := s.client.Set(ctx, s.key(platform, state), verifier, ttl).Err(); err != nil {
		return fmt.Errorf("failed to save authorization state: %w", err)
	}
	return nil
}

// ConsumeState returns and deletes the verifier, or channel.ErrStateNotFound
func (s *RedisStateStore) ConsumeState(ctx context.Context, platform channel.PlatformCode, state string) (string, error) {
	verifier, err := s.client.GetDel(ctx, s.key(platform, state)).Result()
	if errors.Is(err, redis.Nil) {
		return "", channel.ErrStateNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to consume authorization state: %w", err)
	}
	return verifier, nil
}

// Close closes the Redis client
func (s *RedisStateStore) Close() error {
	return s.client.Close()
}

func (s *RedisStateStore) key(platform channel.PlatformCode, state string) string {
	return s.keyPrefix + platform.String() + ":" + state
}
