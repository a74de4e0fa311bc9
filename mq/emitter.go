package mq

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"storefront/models"
)

// Emitter publishes order events to a Redis channel. A nil client turns
// Emit into a no-op.
type Emitter struct {
	conn    *redis.Client
	channel string
}

func NewEmitter(conn *redis.Client, channel string) *Emitter {
	return &Emitter{conn: conn, channel: channel}
}

// Emit is best effort: failures are logged and never reach the caller.
func (e *Emitter) Emit(ctx context.Context, event models.OrderEvent) {
	if e == nil || e.conn == nil {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		slog.Error("marshal order event", "type", event.Type, "err", err)
		return
	}
	if err := e.conn.Publish(context.WithoutCancel(ctx), e.channel, data).Err(); err != nil {
		slog.Warn("publish order event", "type", event.Type, "order", event.OrderID, "err", err)
		return
	}
	slog.Debug("order event published", "type", event.Type, "order", event.OrderID, "channel", e.channel)
}

// Listen relays raw payloads from the channel to handle until ctx ends.
func Listen(ctx context.Context, conn *redis.Client, channel string, handle func([]byte)) {
	if conn == nil {
		return
	}
	sub := conn.Subscribe(ctx, channel)
	defer sub.Close()
	ch := sub.Channel()

	slog.Info("listening for events", "channel", channel)
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			handle([]byte(msg.Payload))
		}
	}
}
