// Package store persists conversation memory and the retrieval cache in
// Redis. It owns the trim/expiry policy for conversation turns.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/metassist/kb-assistant/internal/core"
)

type Redis struct {
	client   *redis.Client
	ttl      time.Duration
	maxTurns int
}

// NewRedis connects to the Redis instance at url. ttl bounds both the turn
// list and the summary slot; maxTurns bounds the list to maxTurns
// user+assistant pairs.
func NewRedis(url string, ttl time.Duration, maxTurns int) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return &Redis{
		client:   redis.NewClient(opts),
		ttl:      ttl,
		maxTurns: maxTurns,
	}, nil
}

// NewRedisWithClient wires an existing client; used by tests.
func NewRedisWithClient(client *redis.Client, ttl time.Duration, maxTurns int) *Redis {
	return &Redis{client: client, ttl: ttl, maxTurns: maxTurns}
}

func convKey(conversationID string) string {
	return fmt.Sprintf("conv:%s:msgs", conversationID)
}

func summaryKey(conversationID string) string {
	return fmt.Sprintf("conv:%s:summary", conversationID)
}

// Append pushes a turn, trims the list to the most recent 2*maxTurns
// entries and resets the expiry. The three commands run in one MULTI/EXEC
// transaction so concurrent appends to the same conversation cannot lose
// the trim or the TTL reset.
func (s *Redis) Append(ctx context.Context, conversationID, role, content string) error {
	payload, err := json.Marshal(core.Turn{Role: role, Content: content})
	if err != nil {
		return fmt.Errorf("encode turn: %w", err)
	}
	key := convKey(conversationID)
	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, key, payload)
	pipe.LTrim(ctx, key, int64(-s.maxTurns*2), -1)
	pipe.Expire(ctx, key, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("append turn: %w", err)
	}
	return nil
}

// History returns the stored turns oldest-first. Entries that fail to
// decode are dropped; a broken record must not fail the whole read.
func (s *Redis) History(ctx context.Context, conversationID string) ([]core.Turn, error) {
	items, err := s.client.LRange(ctx, convKey(conversationID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}
	turns := make([]core.Turn, 0, len(items))
	for _, item := range items {
		var t core.Turn
		if err := json.Unmarshal([]byte(item), &t); err != nil {
			continue
		}
		turns = append(turns, t)
	}
	return turns, nil
}

// Summary returns the cached conversation summary; absence is not an error.
func (s *Redis) Summary(ctx context.Context, conversationID string) (string, error) {
	v, err := s.client.Get(ctx, summaryKey(conversationID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read summary: %w", err)
	}
	return v, nil
}

func (s *Redis) SetSummary(ctx context.Context, conversationID, summary string) error {
	if err := s.client.Set(ctx, summaryKey(conversationID), summary, s.ttl).Err(); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	return nil
}

// Get reads a retrieval-cache entry. The second return reports presence so
// callers can distinguish a miss from an empty value.
func (s *Redis) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("cache read: %w", err)
	}
	return v, true, nil
}

// Set writes a retrieval-cache entry with its own TTL, independent of any
// conversation expiry.
func (s *Redis) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("cache write: %w", err)
	}
	return nil
}

// Ping verifies connectivity at startup.
func (s *Redis) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *Redis) Close() error {
	return s.client.Close()
}
