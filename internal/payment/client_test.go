package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_CreateTransaction(t *testing.T) {
	var gotReq TransactionRequest
	var gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("x-api-key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		_ = json.NewEncoder(w).Encode(map[string]any{"id": "tx-42"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret-key", 2*time.Second)
	tx, err := c.CreateTransaction(context.Background(), TransactionRequest{
		Amount:           20.00,
		UserEmail:        "u1@example.com",
		UserID:           "u1",
		WebhookReturnURL: "https://shop.example.com/api/webhook/payment",
	})
	require.NoError(t, err)

	assert.Equal(t, "tx-42", tx.ID)
	assert.Equal(t, "secret-key", gotKey)
	assert.Equal(t, 20.00, gotReq.Amount)
	assert.Equal(t, "u1@example.com", gotReq.UserEmail)
	assert.Equal(t, "https://shop.example.com/api/webhook/payment", gotReq.WebhookReturnURL)
}

func TestClient_CreateTransaction_ProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"statusCode": 402, "message": "insufficient funds"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k", 2*time.Second)
	_, err := c.CreateTransaction(context.Background(), TransactionRequest{Amount: 1})

	var gwErr *GatewayError
	require.ErrorAs(t, err, &gwErr)
	assert.Equal(t, 402, gwErr.StatusCode)
	assert.Equal(t, "insufficient funds", gwErr.Message)
}

func TestClient_CreateTransaction_MissingID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k", 2*time.Second)
	_, err := c.CreateTransaction(context.Background(), TransactionRequest{Amount: 1})

	var gwErr *GatewayError
	require.ErrorAs(t, err, &gwErr)
	assert.Equal(t, http.StatusOK, gwErr.StatusCode)
}

func TestClient_CreateTransaction_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k", 20*time.Millisecond)
	_, err := c.CreateTransaction(context.Background(), TransactionRequest{Amount: 1})
	assert.Error(t, err)
}

func TestNotification_Outcomes(t *testing.T) {
	yes, no := true, false

	assert.True(t, Notification{Status: NotificationConfirmed, Valid: &yes}.Confirmed())
	assert.False(t, Notification{Status: NotificationConfirmed, Valid: &no}.Confirmed())
	assert.False(t, Notification{Status: NotificationConfirmed}.Confirmed(), "absent valid flag never confirms")

	assert.True(t, Notification{Status: NotificationRefused}.Refused())
	assert.True(t, Notification{Status: "PENDING", Valid: &no}.Refused())
	assert.False(t, Notification{Status: "PENDING"}.Refused(), "absent valid flag is not a refusal")
}
