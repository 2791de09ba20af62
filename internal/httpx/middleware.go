package httpx

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/canteenworks/go-canteen-orders/internal/auth"
	"github.com/canteenworks/go-canteen-orders/internal/orders"
)

// IdentitySource resolves a bearer token to the caller's identity.
// *auth.Sessions is the Redis-backed implementation.
type IdentitySource interface {
	Lookup(ctx context.Context, token string) (auth.Identity, error)
}

type ctxKey int

const identityKey ctxKey = 0

func identityFrom(ctx context.Context) auth.Identity {
	id, _ := ctx.Value(identityKey).(auth.Identity)
	return id
}

func Authenticate(src IdentitySource) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
			if token == "" || token == r.Header.Get("Authorization") {
				writeJSON(w, http.StatusUnauthorized, errBody{Error: "missing bearer token"})
				return
			}
			id, err := src.Lookup(r.Context(), token)
			if errors.Is(err, auth.ErrNoSession) {
				writeJSON(w, http.StatusUnauthorized, errBody{Error: "invalid or expired token"})
				return
			}
			if err != nil {
				writeErr(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), identityKey, id)))
		})
	}
}

func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !identityFrom(r.Context()).IsAdmin() {
			writeErr(w, orders.Forbidden("admin only"))
			return
		}
		next.ServeHTTP(w, r)
	})
}
