package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisChannel is the pub/sub channel notifications are published on.
const DefaultRedisChannel = "empire-bot:notifications"

// RedisPublisher publishes messages on a Redis pub/sub channel so other
// tools can follow the bot's activity.
type RedisPublisher struct {
	rdb     *redis.Client
	channel string
}

// NewRedisPublisher connects to the Redis server at url (redis://...).
func NewRedisPublisher(url, channel string) (*RedisPublisher, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if channel == "" {
		channel = DefaultRedisChannel
	}
	return &RedisPublisher{rdb: redis.NewClient(opts), channel: channel}, nil
}

type redisPayload struct {
	Category string    `json:"category"`
	Text     string    `json:"text"`
	Ts       time.Time `json:"ts"`
}

func encodeMessage(m Message) ([]byte, error) {
	return json.Marshal(redisPayload{Category: string(m.Category), Text: m.Text, Ts: m.Ts})
}

// Send implements Sink.
func (p *RedisPublisher) Send(ctx context.Context, m Message) error {
	data, err := encodeMessage(m)
	if err != nil {
		return err
	}
	return p.rdb.Publish(ctx, p.channel, data).Err()
}

// Close releases the connection pool.
func (p *RedisPublisher) Close() error {
	return p.rdb.Close()
}
