package statuscache

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kafkax "github.com/tfinproject/shop-api/internal/kafka"
	"github.com/tfinproject/shop-api/internal/orders"
	"github.com/tfinproject/shop-api/internal/redisx"
)

func newService(t *testing.T) (*Service, *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return &Service{Redis: rdb, Log: zerolog.Nop()}, srv
}

func eventMsg(eventID, eventType, orderID string, payload any) kafkago.Message {
	env := orders.Envelope{
		EventID:       eventID,
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      "shop-api-test",
		CorrelationID: orderID,
		Payload:       kafkax.MustMarshal(payload),
	}
	return kafkago.Message{Value: kafkax.MustMarshal(env)}
}

func statusKey(orderID string) string { return fmt.Sprintf(redisx.KeyOrderStatus, orderID) }

func TestHandle_CachesStatus(t *testing.T) {
	svc, srv := newService(t)

	m := eventMsg("ev-1", orders.EventOrderCreated, "o1", orders.OrderCreatedPayload{OrderID: "o1"})
	require.NoError(t, svc.Handle(context.Background(), m))

	raw, err := srv.Get(statusKey("o1"))
	require.NoError(t, err)
	var body map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &body))
	assert.Equal(t, string(orders.StatusPending), body["status"])
}

func TestHandle_CancelledCachesReason(t *testing.T) {
	svc, srv := newService(t)

	m := eventMsg("ev-1", orders.EventOrderCancelled, "o1",
		orders.OrderCancelledPayload{OrderID: "o1", TransactionID: "tx-1", Reason: "card declined"})
	require.NoError(t, svc.Handle(context.Background(), m))

	raw, err := srv.Get(statusKey("o1"))
	require.NoError(t, err)
	var body map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &body))
	assert.Equal(t, string(orders.StatusCancelled), body["status"])
	assert.Equal(t, "card declined", body["reason"])
}

func TestHandle_DuplicateEventSkipped(t *testing.T) {
	svc, srv := newService(t)

	m := eventMsg("ev-1", orders.EventOrderCreated, "o1", orders.OrderCreatedPayload{OrderID: "o1"})
	require.NoError(t, svc.Handle(context.Background(), m))

	// drop the projection and redeliver the same event id: the dedup key must
	// win and the projection stays gone
	srv.Del(statusKey("o1"))
	require.NoError(t, svc.Handle(context.Background(), m))
	assert.False(t, srv.Exists(statusKey("o1")))
}

func TestHandle_FailedWriteIsRetriable(t *testing.T) {
	svc, srv := newService(t)

	m := eventMsg("ev-1", orders.EventOrderPaid, "o1",
		orders.OrderPaidPayload{OrderID: "o1", TransactionID: "tx-1", PaidAt: time.Now().UTC()})

	// redis down: the handler must error without marking the event seen
	srv.SetError("connection refused")
	require.Error(t, svc.Handle(context.Background(), m))

	// redelivery after recovery applies the projection
	srv.SetError("")
	require.NoError(t, svc.Handle(context.Background(), m))

	raw, err := srv.Get(statusKey("o1"))
	require.NoError(t, err)
	var body map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &body))
	assert.Equal(t, string(orders.StatusPaid), body["status"])
}

func TestHandle_UnknownEventTypeIgnored(t *testing.T) {
	svc, srv := newService(t)

	m := eventMsg("ev-1", "SomethingElse", "o1", map[string]any{})
	require.NoError(t, svc.Handle(context.Background(), m))
	assert.False(t, srv.Exists(statusKey("o1")))
}
