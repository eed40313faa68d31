package sessions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "filekeeper:challenge:"

type redisClient interface {
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisStore keeps challenges in Redis so they survive restarts and are
// shared between bot replicas.
type RedisStore struct {
	client redisClient
	ttl    time.Duration
}

// NewRedisStore wraps client. A zero ttl stores keys without expiry.
func NewRedisStore(client redisClient, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func redisKey(requesterID int64) string {
	return redisKeyPrefix + strconv.FormatInt(requesterID, 10)
}

func (s *RedisStore) Put(ctx context.Context, requesterID int64, c Challenge) error {
	body, err := json.Marshal(c)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, redisKey(requesterID), body, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, requesterID int64) (Challenge, error) {
	raw, err := s.client.Get(ctx, redisKey(requesterID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Challenge{}, ErrNotFound
		}
		return Challenge{}, fmt.Errorf("redis get: %w", err)
	}

	var c Challenge
	if err := json.Unmarshal(raw, &c); err != nil {
		return Challenge{}, fmt.Errorf("decode challenge: %w", err)
	}
	return c, nil
}

func (s *RedisStore) Delete(ctx context.Context, requesterID int64) error {
	if err := s.client.Del(ctx, redisKey(requesterID)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// NewRedisClient connects to addr and pings it with a short timeout.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}
