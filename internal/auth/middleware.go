package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/monkeyscms/monkeys/internal/server"
)

type contextKey string

const (
	// ContextKeyAdminID is the context key for the authenticated admin's UUID.
	ContextKeyAdminID contextKey = "admin_id"
	// ContextKeyEmail is the context key for the authenticated admin's email.
	ContextKeyEmail contextKey = "email"
)

// Middleware validates JWT bearer tokens from the Authorization header and
// stores the admin's identity in the request context. Failures get a 401
// JSON error.
func Middleware(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				server.Error(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing authorization header", nil)
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				server.Error(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid authorization header format", nil)
				return
			}

			claims, err := ValidateAccessToken(parts[1], jwtSecret)
			if err != nil {
				server.Error(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid or expired token", nil)
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyAdminID, claims.AdminID())
			ctx = context.WithValue(ctx, ContextKeyEmail, claims.Email)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AdminIDFromContext extracts the authenticated admin's UUID from the
// request context, or "" when unauthenticated.
func AdminIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(ContextKeyAdminID).(string)
	return v
}

// EmailFromContext extracts the authenticated admin's email from the
// request context, or "" when unauthenticated.
func EmailFromContext(ctx context.Context) string {
	v, _ := ctx.Value(ContextKeyEmail).(string)
	return v
}
