// Package notify delivers match-created events to whatever sends push
// notifications. Delivery itself happens outside this service.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/gdugdh24/nearmatch-backend/internal/domain"
	"github.com/redis/go-redis/v9"
)

// RedisNotifier publishes each event as JSON on a pub/sub channel.
type RedisNotifier struct {
	client  *redis.Client
	channel string
}

func NewRedisNotifier(client *redis.Client, channel string) *RedisNotifier {
	return &RedisNotifier{client: client, channel: channel}
}

func (n *RedisNotifier) MatchCreated(ctx context.Context, event domain.MatchCreated) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	if err := n.client.Publish(ctx, n.channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", n.channel, err)
	}
	return nil
}

// LogNotifier only logs events. It is used when redis is not configured.
type LogNotifier struct{}

func (LogNotifier) MatchCreated(ctx context.Context, event domain.MatchCreated) error {
	log.Printf("[Notify] match %s created for %s and %s", event.MatchID, event.UserA, event.UserB)
	return nil
}
