// internal/common/auth/middleware.go
package auth

import (
	"context"
	"net/http"
	"strings"

	"campaign-engine/internal/common/errors"
)

type contextKey string

const sessionKey contextKey = "auth.session"

// Middleware authenticates every request with the session client and stashes
// the session in the request context. Requests without a valid bearer token
// get a 401 before any handler runs.
func Middleware(client *SessionClient) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				errors.WriteHTTP(w, errors.NewAuthRequiredError("missing bearer token"))
				return
			}

			session, err := client.Lookup(r.Context(), strings.TrimPrefix(header, "Bearer "))
			if err != nil {
				errors.WriteHTTP(w, err)
				return
			}

			ctx := context.WithValue(r.Context(), sessionKey, session)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SessionFrom extracts the authenticated session from a request context.
func SessionFrom(ctx context.Context) (*Session, bool) {
	session, ok := ctx.Value(sessionKey).(*Session)
	return session, ok
}

// WithSession returns a context carrying the given session, used by tests
// and internal callers that bypass the HTTP middleware.
func WithSession(ctx context.Context, session *Session) context.Context {
	return context.WithValue(ctx, sessionKey, session)
}
