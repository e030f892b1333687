// Package statuscache keeps the Redis order-status projection in sync with
// the order lifecycle stream, so status reads stay off the database.
package statuscache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	kafkago "github.com/segmentio/kafka-go"

	kafkax "github.com/tfinproject/shop-api/internal/kafka"
	"github.com/tfinproject/shop-api/internal/orders"
	"github.com/tfinproject/shop-api/internal/redisx"
)

type Service struct {
	Redis *redis.Client
	Log   zerolog.Logger
}

// Handle is mounted as the consumer handler for all lifecycle topics.
func (s *Service) Handle(ctx context.Context, m kafkago.Message) error {
	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return err
	}

	var status orders.Status
	switch env.EventType {
	case orders.EventOrderCreated:
		status = orders.StatusPending
	case orders.EventPaymentInitiated:
		status = orders.StatusPaymentInitiated
	case orders.EventOrderPaid:
		status = orders.StatusPaid
	case orders.EventOrderCancelled:
		status = orders.StatusCancelled
	default:
		return nil // ignore
	}

	// dedup on event id: redeliveries are expected on rebalance
	dkey := fmt.Sprintf(redisx.KeyDedup, "statuscache", env.EventID)
	if exists, _ := redisx.Exists(ctx, s.Redis, dkey); exists {
		return nil
	}

	body := map[string]any{"status": status}
	switch env.EventType {
	case orders.EventOrderPaid:
		if p, err := kafkax.UnwrapPayload[orders.OrderPaidPayload](env.Payload); err == nil {
			body["paid_at"] = p.PaidAt
		}
	case orders.EventOrderCancelled:
		if p, err := kafkax.UnwrapPayload[orders.OrderCancelledPayload](env.Payload); err == nil && p.Reason != "" {
			body["reason"] = p.Reason
		}
	}

	key := fmt.Sprintf(redisx.KeyOrderStatus, env.CorrelationID)
	if err := s.Redis.Set(ctx, key, kafkax.MustMarshal(body), redisx.TTLStatusCache).Err(); err != nil {
		return err
	}
	// marked seen only after the projection is written; a failed write gets
	// retried on redelivery instead of being swallowed by the dedup check
	_ = s.Redis.Set(ctx, dkey, "1", redisx.TTLDedup).Err()

	s.Log.Debug().Str("order_id", env.CorrelationID).Str("status", string(status)).
		Msg("order status cached")
	return nil
}
