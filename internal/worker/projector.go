// Package worker projects order lifecycle events into redis: per-user order
// counters and the order status cache the API reads from.
package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"

	kafkax "github.com/ariefcatur/go-shop-backend/internal/kafka"
	"github.com/ariefcatur/go-shop-backend/internal/orders"
	"github.com/ariefcatur/go-shop-backend/internal/redisx"
)

type Projector struct {
	Redis *redis.Client
	Name  string // dedup namespace
}

// seen marks the event id processed; a second delivery is dropped.
func (p *Projector) seen(ctx context.Context, eventID string) bool {
	key := fmt.Sprintf(redisx.KeyDedup, p.Name, eventID)
	exists, _ := redisx.Exists(ctx, p.Redis, key)
	if exists {
		return true
	}
	_ = p.Redis.Set(ctx, key, "1", redisx.TTLDedup).Err()
	return false
}

func (p *Projector) HandleOrderCreated(ctx context.Context, m kafkago.Message) error {
	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return err
	}
	if env.EventType != orders.EventOrderCreated {
		return nil
	}
	if p.seen(ctx, env.EventID) {
		return nil
	}
	pay, err := kafkax.UnwrapPayload[orders.OrderCreatedPayload](env.Payload)
	if err != nil {
		return err
	}

	if err := p.Redis.Incr(ctx, fmt.Sprintf(redisx.KeyUserOrderCount, pay.UserID)).Err(); err != nil {
		return err
	}
	return p.cacheStatus(ctx, pay.OrderID, pay.OrderNumber, orders.StatusPending)
}

func (p *Projector) HandleStatusChanged(ctx context.Context, m kafkago.Message) error {
	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return err
	}
	if env.EventType != orders.EventOrderStatusChanged {
		return nil
	}
	if p.seen(ctx, env.EventID) {
		return nil
	}
	pay, err := kafkax.UnwrapPayload[orders.OrderStatusChangedPayload](env.Payload)
	if err != nil {
		return err
	}
	return p.cacheStatus(ctx, pay.OrderID, pay.OrderNumber, pay.To)
}

func (p *Projector) cacheStatus(ctx context.Context, orderID, number string, st orders.Status) error {
	body, _ := json.Marshal(map[string]any{"status": st, "order_number": number})
	key := fmt.Sprintf(redisx.KeyOrderStatus, orderID)
	return p.Redis.Set(ctx, key, body, redisx.TTLStatusCache).Err()
}
