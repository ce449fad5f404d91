package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/ticketdesk/ticketdesk/internal/auth"
	"github.com/ticketdesk/ticketdesk/internal/core/ports"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	// UserClaimsKey is the key used to store user claims in the request context.
	UserClaimsKey contextKey = "userClaims"
	// RawTokenKey holds the bearer token string so the logout handler can
	// revoke it.
	RawTokenKey contextKey = "rawToken"
)

// JWTMiddleware validates the JWT token from the Authorization header. When a
// revoker is supplied, tokens that were revoked at logout are rejected even
// though their signature is still valid.
func JWTMiddleware(tm *auth.TokenManager, revoker ports.TokenRevoker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, "Authorization header is required", http.StatusUnauthorized)
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				http.Error(w, "Authorization header format must be Bearer {token}", http.StatusUnauthorized)
				return
			}

			tokenString := parts[1]
			claims, err := tm.ValidateToken(tokenString)
			if err != nil {
				http.Error(w, "Invalid or expired token", http.StatusUnauthorized)
				return
			}

			if revoker != nil {
				revoked, err := revoker.IsRevoked(r.Context(), tokenString)
				if err != nil {
					http.Error(w, "Could not verify token", http.StatusInternalServerError)
					return
				}
				if revoked {
					http.Error(w, "Token has been revoked", http.StatusUnauthorized)
					return
				}
			}

			// Add the claims to the context for downstream handlers to use.
			ctx := context.WithValue(r.Context(), UserClaimsKey, claims)
			ctx = context.WithValue(ctx, RawTokenKey, tokenString)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClaimsFromContext returns the validated claims set by JWTMiddleware.
func ClaimsFromContext(ctx context.Context) (*auth.Claims, bool) {
	claims, ok := ctx.Value(UserClaimsKey).(*auth.Claims)
	return claims, ok
}

// RawTokenFromContext returns the bearer token string set by JWTMiddleware.
func RawTokenFromContext(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(RawTokenKey).(string)
	return token, ok
}
