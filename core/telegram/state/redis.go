package state

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "schoolbot:state:"

// RedisClient is the subset of *redis.Client used by RedisStore.
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisStore keeps states in Redis so they survive restarts of the bot process.
// Keys carry no TTL: a pending step lasts until the user answers or sends /start.
type RedisStore struct {
	client RedisClient
}

// NewRedisStore wraps an existing client.
func NewRedisStore(client RedisClient) *RedisStore {
	return &RedisStore{client: client}
}

// DialRedis opens a client and verifies the server answers PING.
func DialRedis(ctx context.Context, opts RedisOptions) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:        opts.Addr,
		Password:    opts.Password,
		DB:          opts.DB,
		DialTimeout: 5 * time.Second,
		MaxRetries:  3,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", opts.Addr, err)
	}
	return client, nil
}

// RedisOptions selects the Redis server backing the store.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

func redisKey(userID int64) string {
	return redisKeyPrefix + strconv.FormatInt(userID, 10)
}

// Get returns the stored state; a missing key means StateIdle.
func (s *RedisStore) Get(ctx context.Context, userID int64) (State, error) {
	val, err := s.client.Get(ctx, redisKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return StateIdle, nil
	}
	if err != nil {
		return StateIdle, fmt.Errorf("state get %d: %w", userID, err)
	}
	return decodeState(val), nil
}

// Set stores the state. Setting StateIdle deletes the key.
func (s *RedisStore) Set(ctx context.Context, userID int64, st State) error {
	if st == StateIdle || st == "" {
		return s.Clear(ctx, userID)
	}
	if err := s.client.Set(ctx, redisKey(userID), string(st), 0).Err(); err != nil {
		return fmt.Errorf("state set %d: %w", userID, err)
	}
	return nil
}

// Clear deletes the key of the user.
func (s *RedisStore) Clear(ctx context.Context, userID int64) error {
	if err := s.client.Del(ctx, redisKey(userID)).Err(); err != nil {
		return fmt.Errorf("state clear %d: %w", userID, err)
	}
	return nil
}

func decodeState(val string) State {
	val = strings.TrimSpace(val)
	if val == "" {
		return StateIdle
	}
	return State(val)
}
