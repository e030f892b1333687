package orders_test

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tfinproject/shop-api/internal/auth"
	"github.com/tfinproject/shop-api/internal/orders"
	"github.com/tfinproject/shop-api/internal/payment"
)

func boolPtr(b bool) *bool { return &b }

func confirmed(txID string) payment.Notification {
	return payment.Notification{TransactionID: txID, Status: payment.NotificationConfirmed, Valid: boolPtr(true)}
}

func refused(txID, reason string) payment.Notification {
	return payment.Notification{TransactionID: txID, Status: payment.NotificationRefused, Valid: boolPtr(false), RejectionReason: reason}
}

// newInitiatedOrder drives a fixture to an order sitting in PAYMENT_INITIATED
// with transaction id "tx-1".
func newInitiatedOrder(t *testing.T, f *fixture) *orders.Order {
	t.Helper()
	o, err := f.svc.CreateOrder(context.Background(), f.user, shipping)
	require.NoError(t, err)
	_, err = f.svc.InitiatePayment(context.Background(), f.user, o.ID)
	require.NoError(t, err)
	o, err = f.svc.GetOrder(context.Background(), f.user, o.ID)
	require.NoError(t, err)
	return o
}

func (f *fixture) reconciler() *orders.Reconciler {
	return &orders.Reconciler{
		Repo:        f.db.Orders(),
		Publisher:   f.events,
		Log:         zerolog.Nop(),
		ServiceName: "shop-api-test",
	}
}

func TestReconciler_Confirmed(t *testing.T) {
	f := newFixture(t)
	f.seedProduct(t, "p1", "Headphones", 10.00, 5)
	f.addToCart(t, "p1", 2)
	o := newInitiatedOrder(t, f)

	outcome, err := f.reconciler().Process(context.Background(), confirmed("tx-1"))
	require.NoError(t, err)
	assert.Equal(t, orders.OutcomePaid, outcome)

	got, err := f.svc.GetOrder(context.Background(), f.user, o.ID)
	require.NoError(t, err)
	assert.Equal(t, orders.StatusPaid, got.Status)
	require.NotNil(t, got.PaidAt)

	// stock decremented exactly by the order quantity
	assert.Equal(t, 3, f.db.Stock("p1"))
}

func TestReconciler_Confirmed_Idempotent(t *testing.T) {
	f := newFixture(t)
	f.seedProduct(t, "p1", "Headphones", 10.00, 5)
	f.addToCart(t, "p1", 2)
	newInitiatedOrder(t, f)

	rec := f.reconciler()
	_, err := rec.Process(context.Background(), confirmed("tx-1"))
	require.NoError(t, err)

	outcome, err := rec.Process(context.Background(), confirmed("tx-1"))
	require.NoError(t, err)
	assert.Equal(t, orders.OutcomeIgnored, outcome)

	// second delivery did not decrement again
	assert.Equal(t, 3, f.db.Stock("p1"))
}

func TestReconciler_Refused(t *testing.T) {
	f := newFixture(t)
	f.seedProduct(t, "p1", "Headphones", 10.00, 5)
	f.addToCart(t, "p1", 2)
	o := newInitiatedOrder(t, f)

	outcome, err := f.reconciler().Process(context.Background(), refused("tx-1", "card declined"))
	require.NoError(t, err)
	assert.Equal(t, orders.OutcomeCancelled, outcome)

	got, err := f.svc.GetOrder(context.Background(), f.user, o.ID)
	require.NoError(t, err)
	assert.Equal(t, orders.StatusCancelled, got.Status)
	require.NotNil(t, got.CancelledAt)
	assert.Equal(t, "Payment refused: card declined", got.Notes)

	// nothing was ever decremented
	assert.Equal(t, 5, f.db.Stock("p1"))
}

func TestReconciler_Refused_NoReason(t *testing.T) {
	f := newFixture(t)
	f.seedProduct(t, "p1", "Headphones", 10.00, 5)
	f.addToCart(t, "p1", 1)
	o := newInitiatedOrder(t, f)

	_, err := f.reconciler().Process(context.Background(), refused("tx-1", ""))
	require.NoError(t, err)

	got, _ := f.svc.GetOrder(context.Background(), f.user, o.ID)
	assert.Equal(t, "Payment refused: Unknown reason", got.Notes)
}

func TestReconciler_InvalidFlagAloneRefuses(t *testing.T) {
	f := newFixture(t)
	f.seedProduct(t, "p1", "Headphones", 10.00, 5)
	f.addToCart(t, "p1", 1)
	o := newInitiatedOrder(t, f)

	// valid=false with a non-REFUSED status still cancels
	n := payment.Notification{TransactionID: "tx-1", Status: payment.NotificationConfirmed, Valid: boolPtr(false)}
	outcome, err := f.reconciler().Process(context.Background(), n)
	require.NoError(t, err)
	assert.Equal(t, orders.OutcomeCancelled, outcome)

	got, _ := f.svc.GetOrder(context.Background(), f.user, o.ID)
	assert.Equal(t, orders.StatusCancelled, got.Status)
}

func TestReconciler_TerminalStatesAreSticky(t *testing.T) {
	f := newFixture(t)
	f.seedProduct(t, "p1", "Headphones", 10.00, 5)
	f.addToCart(t, "p1", 2)
	o := newInitiatedOrder(t, f)

	rec := f.reconciler()
	_, err := rec.Process(context.Background(), confirmed("tx-1"))
	require.NoError(t, err)

	// no sequence of deliveries moves the order out of PAID
	deliveries := []payment.Notification{
		refused("tx-1", "late refusal"),
		confirmed("tx-1"),
		{TransactionID: "tx-1", Status: "PENDING"},
	}
	for _, n := range deliveries {
		outcome, err := rec.Process(context.Background(), n)
		require.NoError(t, err)
		assert.Equal(t, orders.OutcomeIgnored, outcome)
	}

	got, _ := f.svc.GetOrder(context.Background(), f.user, o.ID)
	assert.Equal(t, orders.StatusPaid, got.Status)
	assert.Nil(t, got.CancelledAt)
	assert.Equal(t, 3, f.db.Stock("p1"))
}

func TestReconciler_NonFinalStatusIsAcked(t *testing.T) {
	f := newFixture(t)
	f.seedProduct(t, "p1", "Headphones", 10.00, 5)
	f.addToCart(t, "p1", 1)
	o := newInitiatedOrder(t, f)

	// PENDING with no valid flag must not touch the order
	n := payment.Notification{TransactionID: "tx-1", Status: "PENDING"}
	outcome, err := f.reconciler().Process(context.Background(), n)
	require.NoError(t, err)
	assert.Equal(t, orders.OutcomeIgnored, outcome)

	got, _ := f.svc.GetOrder(context.Background(), f.user, o.ID)
	assert.Equal(t, orders.StatusPaymentInitiated, got.Status)
}

func TestReconciler_UnknownTransaction(t *testing.T) {
	f := newFixture(t)
	_, err := f.reconciler().Process(context.Background(), confirmed("tx-unknown"))
	assert.ErrorIs(t, err, orders.ErrOrderNotFound)
}

func TestReconciler_OversoldDecrementClampsAtZero(t *testing.T) {
	f := newFixture(t)
	f.seedProduct(t, "p1", "Headphones", 10.00, 3)

	// two pending orders for the same stock: creation reserves nothing, so
	// both build fine
	f.addToCart(t, "p1", 2)
	o1, err := f.svc.CreateOrder(context.Background(), f.user, shipping)
	require.NoError(t, err)
	_, err = f.svc.InitiatePayment(context.Background(), f.user, o1.ID)
	require.NoError(t, err)

	other := auth.User{UserID: "u2", Email: "u2@example.com"}
	require.NoError(t, f.db.Carts().AddItem(context.Background(), other.UserID, "p1", 2))
	o2, err := f.svc.CreateOrder(context.Background(), other, shipping)
	require.NoError(t, err)
	f.gateway.tx = &payment.Transaction{ID: "tx-2"}
	_, err = f.svc.InitiatePayment(context.Background(), other, o2.ID)
	require.NoError(t, err)

	rec := f.reconciler()
	_, err = rec.Process(context.Background(), confirmed("tx-1"))
	require.NoError(t, err)
	assert.Equal(t, 1, f.db.Stock("p1"))

	// second confirmation would go negative; it clamps at zero
	outcome, err := rec.Process(context.Background(), confirmed("tx-2"))
	require.NoError(t, err)
	assert.Equal(t, orders.OutcomePaid, outcome)
	assert.Equal(t, 0, f.db.Stock("p1"))

	got, _ := f.svc.GetOrder(context.Background(), other, o2.ID)
	assert.Equal(t, orders.StatusPaid, got.Status)
}
