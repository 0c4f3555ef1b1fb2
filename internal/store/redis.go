package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/astanafx/fxbot/internal/chat"
)

const chatKeyPrefix = "chat:"

// redisMessage is the JSON shape stored in Redis.
type redisMessage struct {
	Speaker string `json:"speaker"`
	Content string `json:"content"`
}

// RedisStore persists each (user, role) history as a JSON blob. A per-user
// set of role keys supports clearing every role at once.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a Redis-backed history store. The client dials
// lazily on first use.
func NewRedisStore(addr, password string, db int) *RedisStore {
	return &RedisStore{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		}),
	}
}

func (s *RedisStore) key(userID int64, role string) string {
	return fmt.Sprintf("%s%d:%s", chatKeyPrefix, userID, role)
}

func (s *RedisStore) rolesKey(userID int64) string {
	return fmt.Sprintf("%s%d:roles", chatKeyPrefix, userID)
}

func (s *RedisStore) load(ctx context.Context, userID int64, role string) ([]redisMessage, error) {
	val, err := s.client.Get(ctx, s.key(userID, role)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	var msgs []redisMessage
	if err := json.Unmarshal([]byte(val), &msgs); err != nil {
		return nil, fmt.Errorf("decode stored history: %w", err)
	}
	return msgs, nil
}

func (s *RedisStore) save(ctx context.Context, userID int64, role string, msgs []redisMessage) error {
	val, err := json.Marshal(msgs)
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}
	if err := s.client.Set(ctx, s.key(userID, role), val, 0).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	if err := s.client.SAdd(ctx, s.rolesKey(userID), role).Err(); err != nil {
		return fmt.Errorf("redis track role: %w", err)
	}
	return nil
}

func (s *RedisStore) GetHistory(ctx context.Context, userID int64, role string) ([]chat.Message, error) {
	stored, err := s.load(ctx, userID, role)
	if err != nil {
		return nil, err
	}
	msgs := make([]chat.Message, 0, len(stored))
	for _, m := range stored {
		msgs = append(msgs, chat.Message{Speaker: chat.Speaker(m.Speaker), Content: m.Content})
	}
	return msgs, nil
}

func (s *RedisStore) Append(ctx context.Context, userID int64, role string, speaker chat.Speaker, content string) error {
	stored, err := s.load(ctx, userID, role)
	if err != nil {
		return err
	}
	stored = append(stored, redisMessage{Speaker: string(speaker), Content: content})
	return s.save(ctx, userID, role, stored)
}

func (s *RedisStore) ReplaceAll(ctx context.Context, userID int64, role string, msgs []chat.Message) error {
	stored := make([]redisMessage, 0, len(msgs))
	for _, m := range msgs {
		stored = append(stored, redisMessage{Speaker: string(m.Speaker), Content: m.Content})
	}
	return s.save(ctx, userID, role, stored)
}

func (s *RedisStore) Clear(ctx context.Context, userID int64, role string) error {
	if role != "" {
		if err := s.client.Del(ctx, s.key(userID, role)).Err(); err != nil {
			return fmt.Errorf("redis del: %w", err)
		}
		if err := s.client.SRem(ctx, s.rolesKey(userID), role).Err(); err != nil {
			return fmt.Errorf("redis untrack role: %w", err)
		}
		return nil
	}

	roles, err := s.client.SMembers(ctx, s.rolesKey(userID)).Result()
	if err != nil && err != redis.Nil {
		return fmt.Errorf("redis list roles: %w", err)
	}
	keys := make([]string, 0, len(roles)+1)
	for _, r := range roles {
		keys = append(keys, s.key(userID, r))
	}
	keys = append(keys, s.rolesKey(userID))
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis del all: %w", err)
	}
	return nil
}

func (s *RedisStore) Count(ctx context.Context, userID int64, role string) (int, error) {
	stored, err := s.load(ctx, userID, role)
	if err != nil {
		return 0, err
	}
	return len(stored), nil
}

func (s *RedisStore) Close() error { return s.client.Close() }
