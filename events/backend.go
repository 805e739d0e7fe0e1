package events

import (
	"context"
	"fmt"
	"strings"

	"github.com/deep3/social/config"
)

// NewBackend opens the broker selected in cfg. It returns nil, nil when events stay in-process.
func NewBackend(ctx context.Context, cfg config.EventsConfig) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", "none", "local":
		return nil, nil
	case "nats":
		return NewNATSClient(cfg.NATS)
	case "rabbitmq":
		return NewRabbitMQClient(cfg.RabbitMQ)
	case "pubsub":
		return NewPubSubClient(ctx, cfg.PubSub)
	default:
		return nil, fmt.Errorf("unknown events backend %q", cfg.Backend)
	}
}
