// Package middleware provides HTTP middleware for authentication.
package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/jonathan/applydesk/internal/types"
)

// ContextKey is a typed key for context values to avoid collisions.
type ContextKey string

// actorKey is the context key for the authenticated actor.
const actorKey ContextKey = "actor"

// TokenValidator validates bearer tokens.
// This allows the middleware to work with any JWT service implementation.
type TokenValidator interface {
	ValidateToken(tokenString string) (ActorGetter, error)
}

// ActorGetter extracts the caller from validated token claims.
type ActorGetter interface {
	GetActor() types.Actor
}

// AuthMiddleware validates the bearer token and stores the actor in the request context.
func AuthMiddleware(validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Handle case-insensitive "Bearer" prefix
			parts := strings.Fields(r.Header.Get("Authorization"))
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				unauthorized(w, "missing bearer token")
				return
			}

			claims, err := validator.ValidateToken(parts[1])
			if err != nil {
				unauthorized(w, "invalid or expired token")
				return
			}
			actor := claims.GetActor()
			if !actor.Role.Valid() {
				unauthorized(w, "token carries an unknown role")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
		})
	}
}

// WithActor returns a context carrying the actor.
func WithActor(ctx context.Context, actor types.Actor) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

// GetActor extracts the authenticated actor from the request context.
func GetActor(r *http.Request) (types.Actor, error) {
	actor, ok := r.Context().Value(actorKey).(types.Actor)
	if !ok {
		return types.Actor{}, fmt.Errorf("actor not found in request context")
	}
	return actor, nil
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="applydesk"`)
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized", "message": message})
}
