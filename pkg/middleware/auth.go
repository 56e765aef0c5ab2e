package middleware

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/fkhayef/rentguard/pkg/response"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// AdminIDKey is the context key for the authenticated admin principal
	AdminIDKey ContextKey = "admin_id"

	// AdminHeader carries the caller's subject id
	AdminHeader = "X-Admin-ID"
)

// AdminAuthority decides who may mutate entitlements
type AdminAuthority interface {
	IsAdmin(ctx context.Context, subjectID int64) bool
	// EnrollIfEmpty makes subjectID an admin when no admin exists yet.
	EnrollIfEmpty(ctx context.Context, subjectID int64) (bool, error)
}

// WebhookAuth checks the bearer token the platform layer sends with
// inbound events. An empty secret disables the check.
func WebhookAuth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				next.ServeHTTP(w, r)
				return
			}

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				response.Unauthorized(w, "Authorization header required")
				return
			}

			// Extract token from "Bearer <token>"
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				response.Unauthorized(w, "Invalid authorization header format")
				return
			}

			if subtle.ConstantTimeCompare([]byte(parts[1]), []byte(secret)) != 1 {
				response.Unauthorized(w, "Invalid webhook token")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin admits only registered admin principals, identified by the
// X-Admin-ID header. With bootstrapFirstCaller set, the first caller is
// enrolled while the registry is still empty.
func RequireAdmin(admins AdminAuthority, bootstrapFirstCaller bool, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := r.Header.Get(AdminHeader)
			if raw == "" {
				response.Unauthorized(w, AdminHeader+" header required")
				return
			}
			adminID, err := strconv.ParseInt(raw, 10, 64)
			if err != nil || adminID == 0 {
				response.Unauthorized(w, "Invalid "+AdminHeader+" header")
				return
			}

			ctx := r.Context()
			if !admins.IsAdmin(ctx, adminID) {
				enrolled := false
				if bootstrapFirstCaller {
					enrolled, err = admins.EnrollIfEmpty(ctx, adminID)
					if err != nil {
						logger.ErrorContext(ctx, "admin bootstrap failed", "subject", adminID, "error", err)
						response.InternalError(w, "Failed to enroll admin")
						return
					}
				}
				if !enrolled {
					response.Forbidden(w, "Not an admin")
					return
				}
				logger.InfoContext(ctx, "first caller enrolled as admin", "subject", adminID)
			}

			ctx = context.WithValue(ctx, AdminIDKey, adminID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetAdminID extracts the admin id from the request context
func GetAdminID(ctx context.Context) (int64, bool) {
	adminID, ok := ctx.Value(AdminIDKey).(int64)
	return adminID, ok
}
