// Package redispub publishes control-plane order events to Redis.
package redispub

import (
	"context"
	"encoding/json"
	"strings"

	"betexec/internal/event"

	"github.com/redis/go-redis/v9"
)

const defaultChannel = "betexec:{strategy}:orders"

// Publisher publishes order events on a pub/sub channel. The channel may
// contain a {strategy} placeholder.
type Publisher struct {
	client      *redis.Client
	channel     string
	perStrategy bool
}

// NewPublisher creates a publisher.
func NewPublisher(client *redis.Client, channel string) *Publisher {
	if channel == "" {
		channel = defaultChannel
	}
	return &Publisher{
		client:      client,
		channel:     channel,
		perStrategy: strings.Contains(channel, "{strategy}"),
	}
}

// PublishOrderEvent publishes one placed/replaced event.
func (p *Publisher) PublishOrderEvent(ctx context.Context, ev *event.OrderEvent) error {
	payload := map[string]interface{}{
		"channel": "orders",
		"event":   ev.Kind,
		"data":    ev,
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return p.client.Publish(ctx, p.target(ev.Strategy), raw).Err()
}

func (p *Publisher) target(strategy string) string {
	if !p.perStrategy {
		return p.channel
	}
	return strings.ReplaceAll(p.channel, "{strategy}", strategy)
}
