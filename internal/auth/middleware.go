// ABOUTME: HTTP middleware that resolves the session cookie to a known user
// ABOUTME: Puts the user id in the request context for handlers

package auth

import (
	"context"
	"net/http"

	"github.com/2389/coven-chat/internal/store"
)

// UserStore looks up users by id.
type UserStore interface {
	GetUser(ctx context.Context, id string) (*store.User, error)
}

type userKey struct{}

// WithUser returns a context carrying userID.
func WithUser(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userKey{}, userID)
}

// UserFromContext returns the authenticated user id, or "" if none.
func UserFromContext(ctx context.Context) string {
	id, _ := ctx.Value(userKey{}).(string)
	return id
}

// RequireSession rejects requests without a valid session for an existing user.
func RequireSession(sessions *Sessions, users UserStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(CookieName)
			if err != nil || cookie.Value == "" {
				http.Error(w, `{"error":"not logged in"}`, http.StatusUnauthorized)
				return
			}

			userID, err := sessions.Verify(cookie.Value)
			if err != nil {
				http.Error(w, `{"error":"invalid session"}`, http.StatusUnauthorized)
				return
			}

			if _, err := users.GetUser(r.Context(), userID); err != nil {
				http.Error(w, `{"error":"unknown user"}`, http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), userID)))
		})
	}
}
