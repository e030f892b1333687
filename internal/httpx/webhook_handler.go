package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tfinproject/shop-api/internal/orders"
	"github.com/tfinproject/shop-api/internal/payment"
)

type WebhookHandler struct {
	Reconciler *orders.Reconciler
}

func (h *WebhookHandler) Register(r chi.Router) {
	r.Post("/webhook/payment", h.handlePayment)
}

// handlePayment acks every semantically-stale delivery with 200; the provider
// retries on errors and must not be stormed by no-ops. Only a missing
// transaction id (400) or an unknown one (404) are reported back.
func (h *WebhookHandler) handlePayment(w http.ResponseWriter, r *http.Request) {
	var n payment.Notification
	if err := json.NewDecoder(r.Body).Decode(&n); err != nil {
		writeJSON(w, http.StatusBadRequest, errBody{Message: "invalid json"})
		return
	}
	if n.TransactionID == "" {
		writeJSON(w, http.StatusBadRequest, errBody{Message: "Transaction ID required"})
		return
	}

	outcome, err := h.Reconciler.Process(r.Context(), n)
	if err != nil {
		if errors.Is(err, orders.ErrOrderNotFound) {
			writeJSON(w, http.StatusNotFound, errBody{Message: "Order not found"})
			return
		}
		respondError(w, err)
		return
	}

	msg := "Webhook received"
	switch outcome {
	case orders.OutcomePaid:
		msg = "Payment confirmed, order updated"
	case orders.OutcomeCancelled:
		msg = "Payment refused, order cancelled"
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": msg})
}
