package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"moodboard-backend/internal/model"
)

const (
	chatTTL     = 24 * time.Hour
	chatMaxSize = 200
)

// RedisClient wraps Redis for the recent room-chat cache. The database
// stays the source of truth; this only spares it the hot reads when a
// client re-joins a room.
type RedisClient struct {
	client *redis.Client
}

// NewRedisClient connects and pings.
func NewRedisClient(addr, password string, db int) (*RedisClient, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	log.Printf("[Redis] connected to %s", addr)
	return &RedisClient{client: client}, nil
}

func chatKey(roomID int64) string {
	return fmt.Sprintf("room:%d:chat", roomID)
}

// AppendChat appends one message to a room's cached log, trimming the
// list to its size cap and refreshing the TTL.
func (r *RedisClient) AppendChat(ctx context.Context, msg *model.ChatMessage) error {
	key := chatKey(msg.RoomID)

	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	pipe := r.client.Pipeline()
	pipe.RPush(ctx, key, data)
	pipe.LTrim(ctx, key, -chatMaxSize, -1)
	pipe.Expire(ctx, key, chatTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		log.Printf("[Redis] append chat failed: %v", err)
		return err
	}
	return nil
}

// RecentChat returns the last count cached messages in chronological
// order. An empty result just means a cache miss.
func (r *RedisClient) RecentChat(ctx context.Context, roomID int64, count int64) ([]model.ChatMessage, error) {
	results, err := r.client.LRange(ctx, chatKey(roomID), -count, -1).Result()
	if err != nil {
		return nil, err
	}

	messages := make([]model.ChatMessage, 0, len(results))
	for _, data := range results {
		var msg model.ChatMessage
		if err := json.Unmarshal([]byte(data), &msg); err != nil {
			continue
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

// WarmChat replaces a room's cached log with messages loaded from the
// database, oldest first.
func (r *RedisClient) WarmChat(ctx context.Context, roomID int64, messages []model.ChatMessage) error {
	key := chatKey(roomID)

	pipe := r.client.Pipeline()
	pipe.Del(ctx, key)
	for i := range messages {
		data, err := json.Marshal(&messages[i])
		if err != nil {
			return err
		}
		pipe.RPush(ctx, key, data)
	}
	pipe.Expire(ctx, key, chatTTL)
	_, err := pipe.Exec(ctx)
	return err
}

// DropRoom discards a room's cached chat.
func (r *RedisClient) DropRoom(ctx context.Context, roomID int64) error {
	return r.client.Del(ctx, chatKey(roomID)).Err()
}

// Close closes the underlying client.
func (r *RedisClient) Close() error {
	return r.client.Close()
}
