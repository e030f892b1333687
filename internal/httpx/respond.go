package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	zlog "github.com/rs/zerolog/log"

	"github.com/tfinproject/shop-api/internal/cart"
	"github.com/tfinproject/shop-api/internal/catalog"
	"github.com/tfinproject/shop-api/internal/orders"
	"github.com/tfinproject/shop-api/internal/payment"
)

type errBody struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// respondError maps the domain error taxonomy onto HTTP statuses in one
// place. Unknown errors become a generic 500 without leaking internals.
func respondError(w http.ResponseWriter, err error) {
	var (
		stockErr   *orders.InsufficientStockError
		gatewayErr *payment.GatewayError
	)
	switch {
	case errors.Is(err, catalog.ErrNotFound),
		errors.Is(err, cart.ErrItemNotFound),
		errors.Is(err, orders.ErrOrderNotFound):
		writeJSON(w, http.StatusNotFound, errBody{Message: err.Error()})
	case errors.Is(err, orders.ErrNotOwner):
		writeJSON(w, http.StatusForbidden, errBody{Message: "Unauthorized"})
	case errors.Is(err, orders.ErrInvalidState):
		writeJSON(w, http.StatusConflict, errBody{Message: "Order payment already initiated or completed"})
	case errors.Is(err, cart.ErrInvalidQuantity),
		errors.Is(err, cart.ErrOutOfStock),
		errors.Is(err, cart.ErrProductInactive),
		errors.Is(err, orders.ErrEmptyCart),
		errors.Is(err, orders.ErrInvalidShipping):
		writeJSON(w, http.StatusBadRequest, errBody{Message: err.Error()})
	case errors.As(err, &stockErr):
		writeJSON(w, http.StatusBadRequest, errBody{Message: "Insufficient stock for " + stockErr.ProductName})
	case errors.As(err, &gatewayErr):
		code := http.StatusBadGateway
		if gatewayErr.StatusCode >= 400 && gatewayErr.StatusCode < 500 {
			code = gatewayErr.StatusCode
		}
		writeJSON(w, code, errBody{Message: "Payment initiation failed"})
	default:
		zlog.Error().Err(err).Msg("internal error")
		writeJSON(w, http.StatusInternalServerError, errBody{Message: "Internal server error"})
	}
}
