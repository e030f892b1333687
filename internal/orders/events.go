package orders

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	kafkago "github.com/segmentio/kafka-go"

	kafkax "github.com/tfinproject/shop-api/internal/kafka"
)

const (
	EventOrderCreated     = "OrderCreated"
	EventPaymentInitiated = "PaymentInitiated"
	EventOrderPaid        = "OrderPaid"
	EventOrderCancelled   = "OrderCancelled"
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order_id
	Payload       json.RawMessage `json:"payload"`
}

type LineQty struct {
	ProductID string `json:"product_id"`
	Qty       int    `json:"qty"`
}

type OrderCreatedPayload struct {
	OrderID     string    `json:"order_id"`
	UserID      string    `json:"user_id"`
	Items       []LineQty `json:"items"`
	TotalAmount float64   `json:"total_amount"`
}

type PaymentInitiatedPayload struct {
	OrderID       string  `json:"order_id"`
	TransactionID string  `json:"transaction_id"`
	Amount        float64 `json:"amount"`
}

type OrderPaidPayload struct {
	OrderID       string    `json:"order_id"`
	TransactionID string    `json:"transaction_id"`
	Items         []LineQty `json:"items"`
	PaidAt        time.Time `json:"paid_at"`
}

type OrderCancelledPayload struct {
	OrderID       string `json:"order_id"`
	TransactionID string `json:"transaction_id"`
	Reason        string `json:"reason,omitempty"`
}

// Publisher is the slice of the event producer the lifecycle services need.
type Publisher interface {
	Publish(ctx context.Context, topic string, key, value []byte, headers ...kafkago.Header) error
}

func publishEvent(ctx context.Context, p Publisher, log zerolog.Logger, producer, topic, eventType, orderID string, payload any) {
	if p == nil {
		return
	}
	ev := Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      producer,
		CorrelationID: orderID,
		Payload:       kafkax.MustMarshal(payload),
	}
	err := p.Publish(ctx, topic, PartitionKey(orderID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
	if err != nil {
		log.Error().Err(err).Str("topic", topic).Str("order_id", orderID).Msg("event publish failed")
	}
}

func lineQtys(items []Line) []LineQty {
	out := make([]LineQty, 0, len(items))
	for _, l := range items {
		out = append(out, LineQty{ProductID: l.ProductID, Qty: l.Quantity})
	}
	return out
}
