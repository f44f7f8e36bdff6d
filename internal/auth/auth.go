// Package auth resolves the verified auctioneer identity attached to a
// request. Verification itself happens upstream (gateway strips and re-sets
// the header); this package only carries the identity to handlers.
package auth

import (
	"context"
	"net/http"
)

const ownerHeader = "X-Auctioneer-ID"

type ctxKey struct{}

// OwnerID pulls the tenant identity off a request. Browser websocket
// handshakes can't set headers, so the query parameter is accepted too.
func OwnerID(r *http.Request) string {
	if id := r.Header.Get(ownerHeader); id != "" {
		return id
	}
	return r.URL.Query().Get("auctioneer")
}

func WithOwner(ctx context.Context, ownerID string) context.Context {
	return context.WithValue(ctx, ctxKey{}, ownerID)
}

func FromContext(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

// Middleware rejects requests that carry no tenant identity and stashes the
// identity in the context for everyone else.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := OwnerID(r)
		if id == "" {
			http.Error(w, "missing auctioneer identity", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithOwner(r.Context(), id)))
	})
}
