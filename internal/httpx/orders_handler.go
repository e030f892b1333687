package httpx

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/tfinproject/shop-api/internal/auth"
	"github.com/tfinproject/shop-api/internal/orders"
	"github.com/tfinproject/shop-api/internal/redisx"
)

type OrdersHandler struct {
	Service *orders.Service
	Redis   *redis.Client // optional status cache
}

func (h *OrdersHandler) Register(r chi.Router) {
	r.Post("/orders", h.createOrder)
	r.Get("/orders", h.listOrders)
	r.Get("/orders/{id}", h.getOrder)
	r.Post("/orders/{id}/payment", h.initiatePayment)
}

func (h *OrdersHandler) createOrder(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.UserFrom(r.Context())

	var shipping orders.ShippingInfo
	if err := json.NewDecoder(r.Body).Decode(&shipping); err != nil {
		writeJSON(w, http.StatusBadRequest, errBody{Message: "invalid json"})
		return
	}

	o, err := h.Service.CreateOrder(r.Context(), u, shipping)
	if err != nil {
		respondError(w, err)
		return
	}
	h.cacheStatus(r, o)
	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Order created successfully",
		"order":   o,
	})
}

func (h *OrdersHandler) initiatePayment(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.UserFrom(r.Context())
	orderID := chi.URLParam(r, "id")

	intent, err := h.Service.InitiatePayment(r.Context(), u, orderID)
	if err != nil {
		respondError(w, err)
		return
	}
	h.dropStatus(r, orderID)
	writeJSON(w, http.StatusOK, map[string]any{
		"message":        "Payment initiated successfully",
		"redirect_url":   intent.RedirectURL,
		"transaction_id": intent.TransactionID,
	})
}

func (h *OrdersHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.UserFrom(r.Context())

	out, err := h.Service.ListOrders(r.Context(), u)
	if err != nil {
		respondError(w, err)
		return
	}
	if out == nil {
		out = []orders.Order{}
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.UserFrom(r.Context())

	o, err := h.Service.GetOrder(r.Context(), u, chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}
	h.cacheStatus(r, o)
	writeJSON(w, http.StatusOK, o)
}

// cacheStatus keeps a small status projection warm for dashboards; the
// database stays the source of truth.
func (h *OrdersHandler) cacheStatus(r *http.Request, o *orders.Order) {
	if h.Redis == nil {
		return
	}
	key := fmt.Sprintf(redisx.KeyOrderStatus, o.ID)
	body, _ := json.Marshal(map[string]any{"status": o.Status})
	_ = h.Redis.Set(r.Context(), key, body, redisx.TTLStatusCache).Err()
}

func (h *OrdersHandler) dropStatus(r *http.Request, orderID string) {
	if h.Redis == nil {
		return
	}
	_ = h.Redis.Del(r.Context(), fmt.Sprintf(redisx.KeyOrderStatus, orderID)).Err()
}
