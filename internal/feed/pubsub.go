package feed

import (
	"context"
	"encoding/json"
	"fmt"

	"fixmycity/backend/internal/logging"
	"fixmycity/backend/internal/models"

	"github.com/redis/go-redis/v9"
)

// Channel is the Redis pub/sub channel shared by all API instances.
const Channel = "complaints:events"

// Publisher announces complaint events.
type Publisher interface {
	Publish(ctx context.Context, ev models.ComplaintEvent) error
}

// RedisPublisher publishes events to Channel so every instance's hub
// receives them through Listen.
type RedisPublisher struct {
	client *redis.Client
}

func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{client: client}
}

func (p *RedisPublisher) Publish(ctx context.Context, ev models.ComplaintEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	return p.client.Publish(ctx, Channel, data).Err()
}

// Listen forwards events from Channel to the hub until ctx is done.
func Listen(ctx context.Context, client *redis.Client, hub *Hub) {
	log := logging.With("feed")
	sub := client.Subscribe(ctx, Channel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var ev models.ComplaintEvent
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				log.Warn().Err(err).Msg("discarding malformed feed event")
				continue
			}
			hub.Deliver(ctx, ev)
		}
	}
}

// LocalPublisher delivers straight to an in-process hub. Used when the API
// runs as a single instance without Redis.
type LocalPublisher struct {
	Hub *Hub
}

func (p LocalPublisher) Publish(ctx context.Context, ev models.ComplaintEvent) error {
	p.Hub.Deliver(ctx, ev)
	return nil
}
