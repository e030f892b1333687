package httpx

import (
	"net/http"

	"github.com/tfinproject/shop-api/internal/auth"
)

// RequireUser trusts the identity headers set by the upstream auth layer.
// Token verification happens there; requests reaching this API without the
// headers are rejected.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := r.Header.Get("X-User-Id")
		email := r.Header.Get("X-User-Email")
		if userID == "" {
			writeJSON(w, http.StatusUnauthorized, errBody{Message: "authentication required"})
			return
		}
		ctx := auth.WithUser(r.Context(), auth.User{UserID: userID, Email: email})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
