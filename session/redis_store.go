// Package session caches the mapping from identity-provider uids to actors
// so authenticated requests skip the user lookup.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"taskboard/services"
)

// actorData is the JSON stored under each uid.
type actorData struct {
	UserID   string    `json:"user_id"`
	Admin    bool      `json:"admin"`
	CachedAt time.Time `json:"cached_at"`
}

// RedisStore implements services.ActorCache on Redis with a fixed TTL.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisStore(redisURL string, ttl time.Duration) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return NewRedisStoreWithClient(client, ttl), nil
}

func NewRedisStoreWithClient(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: "identity:",
		ttl:    ttl,
	}
}

func (s *RedisStore) key(uid string) string {
	return s.prefix + uid
}

func (s *RedisStore) SaveActor(ctx context.Context, uid string, actor services.Actor) error {
	data, err := json.Marshal(actorData{UserID: actor.UserID, Admin: actor.Admin, CachedAt: time.Now()})
	if err != nil {
		return fmt.Errorf("marshal actor: %w", err)
	}
	if err := s.client.Set(ctx, s.key(uid), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("save actor: %w", err)
	}
	return nil
}

// LookupActor returns nil, nil when nothing is cached for uid.
func (s *RedisStore) LookupActor(ctx context.Context, uid string) (*services.Actor, error) {
	raw, err := s.client.Get(ctx, s.key(uid)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup actor: %w", err)
	}

	var data actorData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("unmarshal actor: %w", err)
	}
	return &services.Actor{UserID: data.UserID, Admin: data.Admin}, nil
}

func (s *RedisStore) EvictActor(ctx context.Context, uid string) error {
	if err := s.client.Del(ctx, s.key(uid)).Err(); err != nil {
		return fmt.Errorf("evict actor: %w", err)
	}
	return nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
