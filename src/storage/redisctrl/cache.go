package redisctrl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"kbchat/src/core/assistant"
)

const defaultTTL = 15 * time.Minute

// AnswerCache stores finalized answers in redis under a bounded TTL. It
// implements assistant.AnswerCache.
type AnswerCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewAnswerCache(addr, password string, db int, ttl time.Duration) *AnswerCache {
	if ttl <= 0 {
		ttl = defaultTTL
	}

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	return &AnswerCache{
		client: client,
		ttl:    ttl,
	}
}

// NewAnswerCacheWithClient wraps an existing client, for tests.
func NewAnswerCacheWithClient(client *redis.Client, ttl time.Duration) *AnswerCache {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &AnswerCache{client: client, ttl: ttl}
}

func (c *AnswerCache) Get(ctx context.Context, key string) (*assistant.Answer, error) {
	raw, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get cached answer: %w", err)
	}

	var answer assistant.Answer
	if err := json.Unmarshal([]byte(raw), &answer); err != nil {
		return nil, fmt.Errorf("failed to decode cached answer: %w", err)
	}

	return &answer, nil
}

func (c *AnswerCache) Set(ctx context.Context, key string, answer *assistant.Answer) error {
	raw, err := json.Marshal(answer)
	if err != nil {
		return fmt.Errorf("failed to encode answer: %w", err)
	}

	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache answer: %w", err)
	}

	return nil
}

// Ping tests the redis connection
func (c *AnswerCache) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

// Close closes the redis connection
func (c *AnswerCache) Close() error {
	return c.client.Close()
}
