package orders

import (
	"context"
	"net/url"
	"strings"

	"github.com/rs/zerolog"

	"github.com/tfinproject/shop-api/internal/auth"
	"github.com/tfinproject/shop-api/internal/payment"
)

type Service struct {
	Repo        Repository
	Gateway     payment.Gateway
	Publisher   Publisher
	Log         zerolog.Logger
	ServiceName string

	// handed to the gateway so its webhook finds the way back
	WebhookURL string
	// payment page the caller is redirected to
	FrontendURL string
}

// CreateOrder snapshots the caller's cart into a PENDING order.
func (s *Service) CreateOrder(ctx context.Context, user auth.User, shipping ShippingInfo) (*Order, error) {
	if !shipping.Complete() {
		return nil, ErrInvalidShipping
	}

	o, err := s.Repo.CreateFromCart(ctx, user.UserID, shipping)
	if err != nil {
		return nil, err
	}

	s.Log.Info().Str("order_id", o.ID).Str("user_id", user.UserID).
		Float64("total", o.TotalAmount).Msg("order created")

	s.publish(ctx, TopicOrderCreated, EventOrderCreated, o.ID, OrderCreatedPayload{
		OrderID:     o.ID,
		UserID:      o.UserID,
		Items:       lineQtys(o.Items),
		TotalAmount: o.TotalAmount,
	})
	return o, nil
}

type PaymentIntent struct {
	RedirectURL   string `json:"redirect_url"`
	TransactionID string `json:"transaction_id"`
}

// InitiatePayment calls the gateway and, on success, moves the order to
// PAYMENT_INITIATED recording the transaction id. Any gateway failure or
// timeout leaves the order PENDING so the caller can retry.
func (s *Service) InitiatePayment(ctx context.Context, user auth.User, orderID string) (*PaymentIntent, error) {
	o, err := s.Repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.UserID != user.UserID {
		return nil, ErrNotOwner
	}
	if o.Status != StatusPending {
		return nil, ErrInvalidState
	}

	tx, err := s.Gateway.CreateTransaction(ctx, payment.TransactionRequest{
		Amount:           o.TotalAmount,
		UserEmail:        user.Email,
		UserID:           o.UserID,
		WebhookReturnURL: s.WebhookURL,
	})
	if err != nil {
		s.Log.Error().Err(err).Str("order_id", o.ID).Msg("payment initiation failed")
		return nil, err
	}

	if err := s.Repo.MarkPaymentInitiated(ctx, o.ID, tx.ID); err != nil {
		// the gateway transaction is now dangling; its webhook will find no
		// PAYMENT_INITIATED order and be absorbed as a no-op
		s.Log.Warn().Err(err).Str("order_id", o.ID).Str("transaction_id", tx.ID).
			Msg("order left PENDING after gateway call")
		return nil, err
	}

	s.Log.Info().Str("order_id", o.ID).Str("transaction_id", tx.ID).Msg("payment initiated")

	s.publish(ctx, TopicPaymentInitiated, EventPaymentInitiated, o.ID, PaymentInitiatedPayload{
		OrderID:       o.ID,
		TransactionID: tx.ID,
		Amount:        o.TotalAmount,
	})

	return &PaymentIntent{
		RedirectURL:   s.redirectURL(tx.ID, o.ID),
		TransactionID: tx.ID,
	}, nil
}

func (s *Service) redirectURL(transactionID, orderID string) string {
	q := url.Values{}
	q.Set("transactionId", transactionID)
	q.Set("orderId", orderID)
	return strings.TrimRight(s.FrontendURL, "/") + "/payment?" + q.Encode()
}

// GetOrder returns the order only to its owner.
func (s *Service) GetOrder(ctx context.Context, user auth.User, orderID string) (*Order, error) {
	o, err := s.Repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.UserID != user.UserID {
		return nil, ErrNotOwner
	}
	return o, nil
}

func (s *Service) ListOrders(ctx context.Context, user auth.User) ([]Order, error) {
	return s.Repo.ListByUser(ctx, user.UserID)
}

func (s *Service) publish(ctx context.Context, topic, eventType, orderID string, payload any) {
	publishEvent(ctx, s.Publisher, s.Log, s.ServiceName, topic, eventType, orderID, payload)
}
