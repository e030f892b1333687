package httpx

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tfinproject/shop-api/internal/auth"
	"github.com/tfinproject/shop-api/internal/cart"
	"github.com/tfinproject/shop-api/internal/catalog"
	"github.com/tfinproject/shop-api/internal/orders"
)

type CartHandler struct {
	Store    cart.Store
	Products catalog.Repository
}

func (h *CartHandler) Register(r chi.Router) {
	r.Get("/cart", h.getCart)
	r.Post("/cart/items", h.addItem)
	r.Put("/cart/items/{productId}", h.updateItem)
	r.Delete("/cart/items/{productId}", h.removeItem)
	r.Delete("/cart", h.clearCart)
}

type cartItemView struct {
	Product  catalog.Product `json:"product"`
	Quantity int             `json:"quantity"`
	Subtotal float64         `json:"subtotal"`
}

type cartView struct {
	ID         string         `json:"id"`
	UserID     string         `json:"userId"`
	Items      []cartItemView `json:"items"`
	TotalItems int            `json:"totalItems"`
	TotalPrice float64        `json:"totalPrice"`
}

func (h *CartHandler) view(r *http.Request, userID string) (*cartView, error) {
	c, err := h.Store.Get(r.Context(), userID)
	if err != nil {
		return nil, err
	}
	v := &cartView{ID: c.ID, UserID: c.UserID, Items: []cartItemView{}}
	for _, l := range c.Lines {
		p, err := h.Products.FindByID(r.Context(), l.ProductID)
		if err != nil {
			return nil, err
		}
		sub := orders.Round2(p.Price * float64(l.Quantity))
		v.Items = append(v.Items, cartItemView{Product: *p, Quantity: l.Quantity, Subtotal: sub})
		v.TotalItems += l.Quantity
		v.TotalPrice += p.Price * float64(l.Quantity)
	}
	v.TotalPrice = orders.Round2(v.TotalPrice)
	return v, nil
}

func (h *CartHandler) getCart(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.UserFrom(r.Context())
	v, err := h.view(r, u.UserID)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

type addItemReq struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

func (h *CartHandler) addItem(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.UserFrom(r.Context())

	var req addItemReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errBody{Message: "invalid json"})
		return
	}
	if req.ProductID == "" {
		writeJSON(w, http.StatusBadRequest, errBody{Message: "Product ID required"})
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	if err := h.Store.AddItem(r.Context(), u.UserID, req.ProductID, req.Quantity); err != nil {
		respondError(w, err)
		return
	}
	v, err := h.view(r, u.UserID)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

type updateItemReq struct {
	Quantity int `json:"quantity"`
}

func (h *CartHandler) updateItem(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.UserFrom(r.Context())
	productID := chi.URLParam(r, "productId")

	var req updateItemReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errBody{Message: "invalid json"})
		return
	}

	if err := h.Store.UpdateQuantity(r.Context(), u.UserID, productID, req.Quantity); err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Cart updated"})
}

func (h *CartHandler) removeItem(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.UserFrom(r.Context())
	productID := chi.URLParam(r, "productId")

	if err := h.Store.RemoveItem(r.Context(), u.UserID, productID); err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Item removed from cart"})
}

func (h *CartHandler) clearCart(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.UserFrom(r.Context())

	if err := h.Store.Clear(r.Context(), u.UserID); err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Cart cleared"})
}
