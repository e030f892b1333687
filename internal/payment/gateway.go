package payment

import (
	"context"
	"fmt"
)

// Gateway is the outbound payment provider. The returned transaction id is
// the sole correlation key between an order and the webhook that settles it.
type Gateway interface {
	CreateTransaction(ctx context.Context, req TransactionRequest) (*Transaction, error)
}

type TransactionRequest struct {
	Amount           float64 `json:"amount"`
	UserEmail        string  `json:"userEmail"`
	UserID           string  `json:"userId"`
	WebhookReturnURL string  `json:"webhookReturnURL"`
}

type Transaction struct {
	ID string `json:"id"`
}

// GatewayError is an upstream failure; the order stays PENDING and the caller
// may retry.
type GatewayError struct {
	StatusCode int
	Message    string
}

func (e *GatewayError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("payment gateway error (status %d)", e.StatusCode)
	}
	return fmt.Sprintf("payment gateway error (status %d): %s", e.StatusCode, e.Message)
}

// Notification is the inbound webhook body. Valid is a pointer because the
// provider may omit it; an absent value must not be read as "invalid".
type Notification struct {
	TransactionID   string  `json:"transactionId"`
	UserID          string  `json:"userId"`
	Status          string  `json:"status"`
	Amount          float64 `json:"amount"`
	Currency        string  `json:"currency"`
	Valid           *bool   `json:"valid"`
	RejectionReason string  `json:"rejectionReason"`
}

const (
	NotificationConfirmed = "CONFIRMED"
	NotificationRefused   = "REFUSED"
)

// Confirmed: the provider settled the payment.
func (n Notification) Confirmed() bool {
	return n.Status == NotificationConfirmed && n.Valid != nil && *n.Valid
}

// Refused: explicit refusal, or an explicitly invalid payment.
func (n Notification) Refused() bool {
	return n.Status == NotificationRefused || (n.Valid != nil && !*n.Valid)
}
