package auth

import (
	"context"
	"net/http"

	"github.com/Nunusavi/guestlist-pro-sub000/internal/models"
)

type contextKey string

const actorKey contextKey = "actor"

// Middleware verifies the bearer token on every request and stores the
// actor identity in the request context.
func Middleware(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, err := ExtractTokenFromRequest(r)
			if err != nil {
				http.Error(w, "Authorization required: "+err.Error(), http.StatusUnauthorized)
				return
			}

			actor, err := ParseActorClaims(tokenString, secret)
			if err != nil {
				http.Error(w, "Invalid token: "+err.Error(), http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), actorKey, actor)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin rejects requests whose actor does not carry the admin role.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor := Actor(r.Context())
		if actor == nil || actor.Role != models.RoleAdmin {
			http.Error(w, "admin role required", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Actor returns the verified actor identity from the context, or nil.
func Actor(ctx context.Context) *ActorClaims {
	if actor, ok := ctx.Value(actorKey).(*ActorClaims); ok {
		return actor
	}
	return nil
}
