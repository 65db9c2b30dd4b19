// Package auth provides the minimal bearer-token introspection this service
// needs: the real authentication/authorization service is out of scope per
// the top-level specification, so this checks the Authorization header
// against a configured shared secret and injects the resulting owner
// principal into the request context, following the context-injection shape
// of the teacher's own auth middleware (a context key plus an accessor
// function) without its JWT/cookie machinery.
package auth

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
)

type ownerKey struct{}

// Middleware checks the Authorization: Bearer <token> header against token.
// A match injects owner into the request context as the authenticated
// principal. A missing bearer header is rejected with 401 and a wrong token
// with 403, both before reaching next.
func Middleware(token, owner string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := r.Header.Get("Authorization")
			const prefix = "Bearer "
			if !strings.HasPrefix(h, prefix) {
				http.Error(w, "missing bearer token", http.StatusUnauthorized)
				return
			}
			presented := strings.TrimPrefix(h, prefix)
			if subtle.ConstantTimeCompare([]byte(presented), []byte(token)) == 1 {
				ctx := context.WithValue(r.Context(), ownerKey{}, owner)
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}
			http.Error(w, "invalid bearer token", http.StatusForbidden)
		})
	}
}

// Owner retrieves the authenticated principal injected by Middleware, or
// the empty string if absent (unauthenticated request reached the handler,
// which should not happen behind Middleware).
func Owner(ctx context.Context) string {
	owner, _ := ctx.Value(ownerKey{}).(string)
	return owner
}
