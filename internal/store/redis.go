package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"

	"github.com/lahnaomar31/ubo-relay-char/internal/metrics"
	"github.com/lahnaomar31/ubo-relay-char/internal/models"
)

// RedisStore holds the message logs, session tokens and rate limit
// counters. Each message log is a Redis list: RPUSH on append, LRANGE on
// read, so ordering is whatever order Redis serialized the pushes in.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(ctx context.Context, redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &RedisStore{client: client}, nil
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Ping checks the Redis connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// ConversationLogKey returns the log key for a 1:1 exchange between two
// user IDs, identical regardless of argument order.
func ConversationLogKey(idA, idB string) string {
	return conversationLogKey(ConversationKey(idA, idB))
}

// RoomLogKey returns the log key for a room.
func RoomLogKey(roomID string) string {
	return roomLogKey(roomID)
}

// Append serializes a message and pushes it onto the end of the log
// identified by logKey. The log is created on first append. A missing ID
// is filled in with a fresh ULID; the timestamp is the caller's business.
func (s *RedisStore) Append(ctx context.Context, logKey string, msg *models.Message) error {
	if msg.ID == "" {
		msg.ID = ulid.Make().String()
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	start := time.Now()
	err = s.client.RPush(ctx, logKey, string(data)).Err()
	metrics.RedisLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		return fmt.Errorf("append to %s: %w", logKey, err)
	}
	return nil
}

// ReadAll returns the full log under logKey, oldest first. A key with no
// log yields an empty slice, not an error.
func (s *RedisStore) ReadAll(ctx context.Context, logKey string) ([]models.Message, error) {
	start := time.Now()
	entries, err := s.client.LRange(ctx, logKey, 0, -1).Result()
	metrics.RedisLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", logKey, err)
	}

	messages := make([]models.Message, 0, len(entries))
	for _, entry := range entries {
		var msg models.Message
		if err := json.Unmarshal([]byte(entry), &msg); err != nil {
			// A corrupt entry is skipped rather than poisoning the
			// whole history.
			continue
		}
		messages = append(messages, msg)
	}

	return messages, nil
}

// SaveSession stores the user under a session token with a TTL.
func (s *RedisStore) SaveSession(ctx context.Context, token string, user *models.User, ttl time.Duration) error {
	data, err := json.Marshal(user)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, sessionKey(token), string(data), ttl).Err()
}

// SessionUser resolves a session token to its user. Returns (nil, nil)
// when the token is unknown or expired.
func (s *RedisStore) SessionUser(ctx context.Context, token string) (*models.User, error) {
	data, err := s.client.Get(ctx, sessionKey(token)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var user models.User
	if err := json.Unmarshal([]byte(data), &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// DeleteSession invalidates a session token.
func (s *RedisStore) DeleteSession(ctx context.Context, token string) error {
	return s.client.Del(ctx, sessionKey(token)).Err()
}

// IncrRateLimit bumps a fixed-window counter and returns the new count.
// The window TTL is reset on every hit, which is slightly stricter than a
// true fixed window but keeps it to one round trip.
func (s *RedisStore) IncrRateLimit(ctx context.Context, bucket, caller string, window time.Duration) (int64, error) {
	key := rateLimitKey(bucket, caller)

	pipe := s.client.Pipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}
