package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/tfinproject/shop-api/internal/payment"
	"github.com/tfinproject/shop-api/internal/redisx"
)

// Outcome of processing one webhook delivery.
type Outcome string

const (
	OutcomePaid      Outcome = "PAID"
	OutcomeCancelled Outcome = "CANCELLED"
	// OutcomeIgnored covers duplicates, out-of-order deliveries, unknown
	// statuses and deliveries against terminal orders. All are acked.
	OutcomeIgnored Outcome = "IGNORED"
)

// Reconciler consumes asynchronous payment notifications and advances order
// state. Every transition goes through the repository's compare-and-swap, so
// reprocessing the same delivery never double-applies its effects.
type Reconciler struct {
	Repo        Repository
	Publisher   Publisher
	Redis       *redis.Client // optional dedup fast-path; correctness holds without it
	Log         zerolog.Logger
	ServiceName string
}

// Process applies one notification. ErrOrderNotFound is the only caller-visible
// failure; everything stale or duplicated resolves to OutcomeIgnored.
func (r *Reconciler) Process(ctx context.Context, n payment.Notification) (Outcome, error) {
	if _, err := r.Repo.FindByTransactionID(ctx, n.TransactionID); err != nil {
		return "", err
	}

	if r.seen(ctx, n) {
		r.Log.Info().Str("transaction_id", n.TransactionID).Msg("duplicate webhook delivery, skipped")
		return OutcomeIgnored, nil
	}

	switch {
	case n.Confirmed():
		return r.settle(ctx, n)
	case n.Refused():
		return r.reject(ctx, n)
	default:
		r.Log.Info().Str("transaction_id", n.TransactionID).Str("status", n.Status).
			Msg("webhook with non-final status, acknowledged")
		return OutcomeIgnored, nil
	}
}

func (r *Reconciler) settle(ctx context.Context, n payment.Notification) (Outcome, error) {
	o, clamps, applied, err := r.Repo.Settle(ctx, n.TransactionID)
	if err != nil {
		return "", err
	}
	if !applied {
		r.Log.Info().Str("order_id", o.ID).Str("status", string(o.Status)).
			Msg("confirmation for non-initiated order, no-op")
		r.markSeen(ctx, n)
		return OutcomeIgnored, nil
	}

	for _, c := range clamps {
		r.Log.Warn().Str("order_id", o.ID).Str("product_id", c.ProductID).
			Int("requested", c.Requested).Int("available", c.Available).
			Msg("oversold stock clamped to zero at settlement")
	}

	r.Log.Info().Str("order_id", o.ID).Str("transaction_id", n.TransactionID).Msg("order paid")
	paidAt := time.Now().UTC()
	if o.PaidAt != nil {
		paidAt = *o.PaidAt
	}
	r.publish(ctx, TopicOrderPaid, EventOrderPaid, o.ID, OrderPaidPayload{
		OrderID:       o.ID,
		TransactionID: n.TransactionID,
		Items:         lineQtys(o.Items),
		PaidAt:        paidAt,
	})
	r.markSeen(ctx, n)
	return OutcomePaid, nil
}

func (r *Reconciler) reject(ctx context.Context, n payment.Notification) (Outcome, error) {
	reason := n.RejectionReason
	if reason == "" {
		reason = "Unknown reason"
	}
	note := fmt.Sprintf("Payment refused: %s", reason)

	o, applied, err := r.Repo.Reject(ctx, n.TransactionID, note)
	if err != nil {
		return "", err
	}
	if !applied {
		r.Log.Info().Str("order_id", o.ID).Str("status", string(o.Status)).
			Msg("refusal for non-initiated order, no-op")
		r.markSeen(ctx, n)
		return OutcomeIgnored, nil
	}

	r.Log.Info().Str("order_id", o.ID).Str("transaction_id", n.TransactionID).
		Str("reason", reason).Msg("order cancelled")
	r.publish(ctx, TopicOrderCancelled, EventOrderCancelled, o.ID, OrderCancelledPayload{
		OrderID:       o.ID,
		TransactionID: n.TransactionID,
		Reason:        reason,
	})
	r.markSeen(ctx, n)
	return OutcomeCancelled, nil
}

func dedupID(n payment.Notification) string {
	valid := "absent"
	if n.Valid != nil {
		valid = fmt.Sprintf("%t", *n.Valid)
	}
	return fmt.Sprintf("%s:%s:%s", n.TransactionID, n.Status, valid)
}

func (r *Reconciler) seen(ctx context.Context, n payment.Notification) bool {
	if r.Redis == nil {
		return false
	}
	ok, _ := redisx.Exists(ctx, r.Redis, fmt.Sprintf(redisx.KeyDedup, "webhook", dedupID(n)))
	return ok
}

func (r *Reconciler) markSeen(ctx context.Context, n payment.Notification) {
	if r.Redis == nil {
		return
	}
	_ = r.Redis.Set(ctx, fmt.Sprintf(redisx.KeyDedup, "webhook", dedupID(n)), "1", redisx.TTLDedup).Err()
}

func (r *Reconciler) publish(ctx context.Context, topic, eventType, orderID string, payload any) {
	publishEvent(ctx, r.Publisher, r.Log, r.ServiceName, topic, eventType, orderID, payload)
}
