package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Stream names
const (
	BetEventsStream     = "bets.events"
	NotificationsStream = "notifications.sent"
)

// Bet event kinds
const (
	BetCreated = "created"
	BetUpdated = "updated"
	BetDeleted = "deleted"
)

// streamMaxLen caps each stream; trimming is approximate
const streamMaxLen = 10000

// BetEvent is published on every bet write
type BetEvent struct {
	Kind  string      `json:"kind"`
	BetID string      `json:"bet_id"`
	Bet   interface{} `json:"bet,omitempty"`
}

// RedisStreamPublisher publishes events to Redis streams
type RedisStreamPublisher struct {
	client *redis.Client
	now    func() time.Time
}

// NewRedisStreamPublisher creates a new Redis stream publisher from existing client
func NewRedisStreamPublisher(client *redis.Client) *RedisStreamPublisher {
	return &RedisStreamPublisher{client: client, now: time.Now}
}

// PublishBetEvent appends a bet write to the bets stream
func (p *RedisStreamPublisher) PublishBetEvent(ctx context.Context, event BetEvent) error {
	return p.publish(ctx, BetEventsStream, event.Kind, event)
}

// PublishNotification appends a sent notification to the notifications stream
func (p *RedisStreamPublisher) PublishNotification(ctx context.Context, notification interface{}) error {
	return p.publish(ctx, NotificationsStream, "sent", notification)
}

func (p *RedisStreamPublisher) publish(ctx context.Context, stream, kind string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding %s event: %w", stream, err)
	}

	err = p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		MaxLen: streamMaxLen,
		Approx: true,
		Values: map[string]interface{}{
			"kind":      kind,
			"data":      string(data),
			"timestamp": p.now().Unix(),
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("publishing to %s: %w", stream, err)
	}
	return nil
}
